package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/Freeeeeet/tutor_matching/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const classColumns = `id, tutor_id, subject, day, start_time, end_time, status, title, session_link, created_at, updated_at`

// querier - общее у пула и транзакции
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ClassRepository управляет классами и их составом.
// Уникальность (tutor_id, subject_key, day_key, start_time, end_time) обеспечивает индекс,
// поэтому создание класса - это upsert, а не check-then-act.
type ClassRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewClassRepository(pool *pgxpool.Pool, logger *zap.Logger) *ClassRepository {
	return &ClassRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// CreateOrGet создаёт класс вместе с начальным составом или возвращает существующий
func (r *ClassRepository) CreateOrGet(ctx context.Context, class *model.Class) (*model.Class, bool, error) {
	if class.ID.IsZero() {
		class.ID = model.NewClassID()
	}

	var (
		stored  *model.Class
		created bool
	)

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO classes (id, tutor_id, subject, subject_key, day, day_key, start_time, end_time, status, title, session_link)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (tutor_id, subject_key, day_key, start_time, end_time) DO NOTHING
			RETURNING created_at, updated_at
		`

		err := tx.QueryRow(
			ctx, insert,
			class.ID.UUID(),
			class.TutorID.UUID(),
			class.Subject,
			class.SubjectKey().String(),
			class.Schedule.Day,
			dayKey(class.Schedule),
			class.Schedule.StartTime,
			class.Schedule.EndTime,
			class.Status,
			class.Title,
			class.SessionLink,
		).Scan(&class.CreatedAt, &class.UpdatedAt)

		if err != nil && !base.IsNotFound(err) {
			return fmt.Errorf("insert class: %w", err)
		}

		if err == nil {
			for _, studentID := range class.Students {
				if _, err := tx.Exec(ctx, insertEnrollment, class.ID.UUID(), studentID.UUID()); err != nil {
					return fmt.Errorf("insert enrollment: %w", err)
				}
			}
			stored, err = r.getByID(ctx, tx, class.ID)
			if err != nil {
				return err
			}
			created = true
			return nil
		}

		// Конфликт: класс на этот слот уже создан (возможно, параллельным вызовом)
		stored, err = r.getByKey(ctx, tx, class.TutorID, class.SubjectKey(), class.Schedule)
		if err != nil {
			return err
		}
		r.logger.Debug("Class already exists for slot",
			zap.String("class_id", stored.ID.String()),
			zap.String("tutor_id", class.TutorID.String()),
			zap.String("slot", class.Schedule.String()))
		return nil
	})

	if err != nil {
		return nil, false, fmt.Errorf("create class: %w", err)
	}

	return stored, created, nil
}

const insertEnrollment = `
	INSERT INTO class_students (class_id, student_id)
	VALUES ($1, $2)
	ON CONFLICT (class_id, student_id) DO NOTHING
`

// AddStudent записывает ученика в класс
func (r *ClassRepository) AddStudent(ctx context.Context, classID model.ClassID, studentID model.StudentID) (bool, error) {
	affected, err := r.ExecAffected(ctx, insertEnrollment, classID.UUID(), studentID.UUID())
	if err != nil {
		return false, fmt.Errorf("add class student: %w", err)
	}

	if affected > 0 {
		if _, err := r.ExecAffected(ctx, `UPDATE classes SET updated_at = now() WHERE id = $1`, classID.UUID()); err != nil {
			return true, fmt.Errorf("touch class: %w", err)
		}
	}

	return affected > 0, nil
}

// UpdateMetadata обновляет заголовок и ссылку на занятие
func (r *ClassRepository) UpdateMetadata(ctx context.Context, classID model.ClassID, title, sessionLink string) error {
	query := `
		UPDATE classes
		SET title = $1, session_link = $2, updated_at = now()
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, title, sessionLink, classID.UUID())
	if err != nil {
		return fmt.Errorf("update class metadata: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("class not found")
	}

	return nil
}

// UpdateTutor переназначает класс на учителя (исправление ссылок на пользователя)
func (r *ClassRepository) UpdateTutor(ctx context.Context, classID model.ClassID, tutorID model.TutorID) error {
	query := `UPDATE classes SET tutor_id = $1, updated_at = now() WHERE id = $2`

	affected, err := r.ExecAffected(ctx, query, tutorID.UUID(), classID.UUID())
	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("update class tutor: tutor already has a class for this slot: %w", err)
		}
		return fmt.Errorf("update class tutor: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("class not found")
	}

	return nil
}

// ListByTutor получает классы учителя в порядке создания
func (r *ClassRepository) ListByTutor(ctx context.Context, tutorID model.TutorID) ([]*model.Class, error) {
	query := `
		SELECT ` + classColumns + `
		FROM classes
		WHERE tutor_id = $1
		ORDER BY created_at, id
	`

	classes, err := r.list(ctx, r.Pool(), query, tutorID.UUID())
	if err != nil {
		return nil, fmt.Errorf("get classes by tutor: %w", err)
	}

	return classes, nil
}

// ListAll получает все классы
func (r *ClassRepository) ListAll(ctx context.Context) ([]*model.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes ORDER BY created_at, id`

	classes, err := r.list(ctx, r.Pool(), query)
	if err != nil {
		return nil, fmt.Errorf("get all classes: %w", err)
	}

	return classes, nil
}

// CountEnrolledStudents считает записи учеников по всем классам учителя
func (r *ClassRepository) CountEnrolledStudents(ctx context.Context, tutorID model.TutorID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM class_students cs
		INNER JOIN classes c ON c.id = cs.class_id
		WHERE c.tutor_id = $1
	`

	var count int
	err := r.QueryRow(ctx, query, tutorID.UUID()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrolled students: %w", err)
	}

	return count, nil
}

func (r *ClassRepository) getByID(ctx context.Context, q querier, id model.ClassID) (*model.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`

	classes, err := r.list(ctx, q, query, id.UUID())
	if err != nil {
		return nil, fmt.Errorf("get class by id: %w", err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("class %s not found", id)
	}

	return classes[0], nil
}

func (r *ClassRepository) getByKey(ctx context.Context, q querier, tutorID model.TutorID, subject model.SubjectKey, slot model.TimeSlot) (*model.Class, error) {
	query := `
		SELECT ` + classColumns + `
		FROM classes
		WHERE tutor_id = $1 AND subject_key = $2 AND day_key = $3 AND start_time = $4 AND end_time = $5
	`

	classes, err := r.list(ctx, q, query, tutorID.UUID(), subject.String(), dayKey(slot), slot.StartTime, slot.EndTime)
	if err != nil {
		return nil, fmt.Errorf("get class by key: %w", err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("class for %s not found", slot)
	}

	return classes[0], nil
}

func (r *ClassRepository) list(ctx context.Context, q querier, query string, args ...any) ([]*model.Class, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []*model.Class
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, class)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}

	if err := r.loadRosters(ctx, q, classes); err != nil {
		return nil, err
	}

	return classes, nil
}

// loadRosters подгружает состав классов одним запросом
func (r *ClassRepository) loadRosters(ctx context.Context, q querier, classes []*model.Class) error {
	if len(classes) == 0 {
		return nil
	}

	byID := make(map[model.ClassID]*model.Class, len(classes))
	ids := make([]string, 0, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
		ids = append(ids, c.ID.String())
	}

	query := `
		SELECT class_id, student_id
		FROM class_students
		WHERE class_id = ANY($1::uuid[])
		ORDER BY enrolled_at, student_id
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("get class rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var classID, studentID uuid.UUID
		if err := rows.Scan(&classID, &studentID); err != nil {
			return fmt.Errorf("scan enrollment: %w", err)
		}
		if c, ok := byID[model.ClassID(classID)]; ok {
			c.Students = append(c.Students, model.StudentID(studentID))
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate enrollments: %w", err)
	}

	return nil
}

func scanClass(row pgx.Row) (*model.Class, error) {
	var (
		class   model.Class
		id      uuid.UUID
		tutorID uuid.UUID
	)
	err := row.Scan(
		&id,
		&tutorID,
		&class.Subject,
		&class.Schedule.Day,
		&class.Schedule.StartTime,
		&class.Schedule.EndTime,
		&class.Status,
		&class.Title,
		&class.SessionLink,
		&class.CreatedAt,
		&class.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	class.ID = model.ClassID(id)
	class.TutorID = model.TutorID(tutorID)
	return &class, nil
}

func dayKey(slot model.TimeSlot) string {
	return strings.ToLower(strings.TrimSpace(slot.Day))
}
