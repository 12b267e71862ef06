package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/Freeeeeet/tutor_matching/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const studentColumns = `id, user_id, name, subjects, availability, tutor_id, created_at`

type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт профиль ученика
func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	if student.ID.IsZero() {
		student.ID = model.NewStudentID()
	}

	query := `
		INSERT INTO students (id, user_id, name, subjects, availability, tutor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		student.ID.UUID(),
		student.UserID.UUID(),
		student.Name,
		nonNilStrings(student.Subjects),
		nonNilSlots(student.Availability),
		tutorIDArg(student.TutorID),
	).Scan(&student.CreatedAt)

	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

// GetByID получает ученика по ID
func (r *StudentRepository) GetByID(ctx context.Context, id model.StudentID) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.QueryRow(ctx, query, id.UUID()))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return student, nil
}

// GetByUserID получает ученика по ID пользователя
func (r *StudentRepository) GetByUserID(ctx context.Context, userID model.UserID) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE user_id = $1`

	student, err := scanStudent(r.QueryRow(ctx, query, userID.UUID()))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by user id: %w", err)
	}

	return student, nil
}

// UpdateAvailability обновляет доступность ученика
func (r *StudentRepository) UpdateAvailability(ctx context.Context, id model.StudentID, availability []model.TimeSlot) error {
	query := `UPDATE students SET availability = $1 WHERE id = $2`

	affected, err := r.ExecAffected(ctx, query, nonNilSlots(availability), id.UUID())
	if err != nil {
		return fmt.Errorf("update student availability: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("student not found")
	}

	return nil
}

// SetTutor закрепляет за учеником основного учителя
func (r *StudentRepository) SetTutor(ctx context.Context, id model.StudentID, tutorID model.TutorID) error {
	query := `UPDATE students SET tutor_id = $1 WHERE id = $2`

	affected, err := r.ExecAffected(ctx, query, tutorID.UUID(), id.UUID())
	if err != nil {
		return fmt.Errorf("set student tutor: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("student not found")
	}

	return nil
}

// ListUnassigned получает учеников без закреплённого учителя
func (r *StudentRepository) ListUnassigned(ctx context.Context) ([]*model.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE tutor_id IS NULL
		ORDER BY created_at, id
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get unassigned students: %w", err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return students, nil
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	var (
		student model.Student
		id      uuid.UUID
		userID  uuid.UUID
		tutorID *uuid.UUID
	)
	err := row.Scan(
		&id,
		&userID,
		&student.Name,
		&student.Subjects,
		&student.Availability,
		&tutorID,
		&student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	student.ID = model.StudentID(id)
	student.UserID = model.UserID(userID)
	if tutorID != nil {
		t := model.TutorID(*tutorID)
		student.TutorID = &t
	}
	return &student, nil
}

func tutorIDArg(id *model.TutorID) *uuid.UUID {
	if id == nil {
		return nil
	}
	u := id.UUID()
	return &u
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilSlots(values []model.TimeSlot) []model.TimeSlot {
	if values == nil {
		return []model.TimeSlot{}
	}
	return values
}
