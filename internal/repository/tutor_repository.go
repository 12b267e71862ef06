package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/Freeeeeet/tutor_matching/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const tutorColumns = `id, user_id, name, subjects, availability, status, experience_years, created_at`

// TutorRepository управляет профилями учителей и их собственными списками учеников
type TutorRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewTutorRepository(pool *pgxpool.Pool, logger *zap.Logger) *TutorRepository {
	return &TutorRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// GetByID получает учителя по ID
func (r *TutorRepository) GetByID(ctx context.Context, id model.TutorID) (*model.Tutor, error) {
	query := `SELECT ` + tutorColumns + ` FROM tutors WHERE id = $1`

	tutor, err := scanTutor(r.QueryRow(ctx, query, id.UUID()))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tutor by id: %w", err)
	}

	return tutor, nil
}

// GetByUserID получает учителя по ID пользователя
func (r *TutorRepository) GetByUserID(ctx context.Context, userID model.UserID) (*model.Tutor, error) {
	query := `SELECT ` + tutorColumns + ` FROM tutors WHERE user_id = $1`

	tutor, err := scanTutor(r.QueryRow(ctx, query, userID.UUID()))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tutor by user id: %w", err)
	}

	return tutor, nil
}

// ListBySubject получает учителей, ведущих предмет (сравнение с учётом регистра)
func (r *TutorRepository) ListBySubject(ctx context.Context, subject string) ([]*model.Tutor, error) {
	query := `
		SELECT ` + tutorColumns + `
		FROM tutors
		WHERE $1 = ANY(subjects)
		ORDER BY created_at, id
	`

	rows, err := r.Query(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("get tutors by subject: %w", err)
	}
	defer rows.Close()

	var tutors []*model.Tutor
	for rows.Next() {
		tutor, err := scanTutor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tutor: %w", err)
		}
		tutors = append(tutors, tutor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tutors: %w", err)
	}

	r.logger.Debug("Retrieved tutors by subject",
		zap.String("subject", subject),
		zap.Int("count", len(tutors)))

	return tutors, nil
}

// AddStudent добавляет ученика в список учителя
func (r *TutorRepository) AddStudent(ctx context.Context, tutorID model.TutorID, studentID model.StudentID) error {
	query := `
		INSERT INTO tutor_students (tutor_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (tutor_id, student_id) DO NOTHING
	`

	_, err := r.ExecAffected(ctx, query, tutorID.UUID(), studentID.UUID())
	if err != nil {
		return fmt.Errorf("add tutor student: %w", err)
	}

	return nil
}

// ListStudentIDs получает ID учеников из списка учителя
func (r *TutorRepository) ListStudentIDs(ctx context.Context, tutorID model.TutorID) ([]model.StudentID, error) {
	query := `
		SELECT student_id
		FROM tutor_students
		WHERE tutor_id = $1
		ORDER BY added_at
	`

	rows, err := r.Query(ctx, query, tutorID.UUID())
	if err != nil {
		return nil, fmt.Errorf("get tutor students: %w", err)
	}
	defer rows.Close()

	var ids []model.StudentID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan student id: %w", err)
		}
		ids = append(ids, model.StudentID(id))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate student ids: %w", err)
	}

	return ids, nil
}

func scanTutor(row pgx.Row) (*model.Tutor, error) {
	var (
		tutor  model.Tutor
		id     uuid.UUID
		userID uuid.UUID
	)
	err := row.Scan(
		&id,
		&userID,
		&tutor.Name,
		&tutor.Subjects,
		&tutor.Availability,
		&tutor.Status,
		&tutor.ExperienceYears,
		&tutor.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tutor.ID = model.TutorID(id)
	tutor.UserID = model.UserID(userID)
	return &tutor, nil
}
