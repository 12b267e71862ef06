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

const applicationColumns = `
	id, user_id, status, first_name, last_name, email, phone, subjects, availability,
	tutor_id, COALESCE(meeting_link, ''), COALESCE(schedule_day, ''),
	COALESCE(schedule_start, ''), COALESCE(schedule_end, ''), updated_at`

// ApplicationRepository читает заявки и записывает в них результат назначения.
// Сами заявки создаются приёмной кампанией, здесь их не создают.
type ApplicationRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewApplicationRepository(pool *pgxpool.Pool, logger *zap.Logger) *ApplicationRepository {
	return &ApplicationRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// GetByID получает заявку по ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id model.ApplicationID) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.QueryRow(ctx, query, id.UUID()))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get application by id: %w", err)
	}

	return app, nil
}

// ListByStatus получает заявки в статусе в порядке поступления
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status model.ApplicationStatus) ([]*model.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE status = $1
		ORDER BY created_at, id
	`

	rows, err := r.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("get applications by status: %w", err)
	}
	defer rows.Close()

	var apps []*model.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	r.logger.Debug("Retrieved applications by status",
		zap.String("status", string(status)),
		zap.Int("count", len(apps)))

	return apps, nil
}

// UpdateAssignment записывает статус и назначение; nil снимает назначение
func (r *ApplicationRepository) UpdateAssignment(ctx context.Context, id model.ApplicationID, status model.ApplicationStatus, assignment *model.TutorAssignment) error {
	query := `
		UPDATE applications
		SET status = $1,
			tutor_id = $2,
			meeting_link = $3,
			schedule_day = $4,
			schedule_start = $5,
			schedule_end = $6,
			updated_at = now()
		WHERE id = $7
	`

	var (
		tutorID                  *uuid.UUID
		link, day, start, finish *string
	)
	if assignment != nil {
		u := assignment.Tutor.UUID()
		tutorID = &u
		link = &assignment.MeetingLink
		day = &assignment.Schedule.Day
		start = &assignment.Schedule.StartTime
		finish = &assignment.Schedule.EndTime
	}

	affected, err := r.ExecAffected(ctx, query, status, tutorID, link, day, start, finish, id.UUID())
	if err != nil {
		return fmt.Errorf("update application assignment: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("application not found")
	}

	return nil
}

// SetUser привязывает заявку к пользователю
func (r *ApplicationRepository) SetUser(ctx context.Context, id model.ApplicationID, userID model.UserID) error {
	query := `
		UPDATE applications
		SET user_id = $1,
			updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, userID.UUID(), id.UUID())
	if err != nil {
		return fmt.Errorf("set application user: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("application not found")
	}

	return nil
}

func scanApplication(row pgx.Row) (*model.Application, error) {
	var (
		app     model.Application
		id      uuid.UUID
		userID  *uuid.UUID
		tutorID *uuid.UUID
		email   *string
		link    string
		slot    model.TimeSlot
	)
	err := row.Scan(
		&id,
		&userID,
		&app.Status,
		&app.FirstName,
		&app.LastName,
		&email,
		&app.Phone,
		&app.Subjects,
		&app.Availability,
		&tutorID,
		&link,
		&slot.Day,
		&slot.StartTime,
		&slot.EndTime,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.ID = model.ApplicationID(id)
	if userID != nil {
		u := model.UserID(*userID)
		app.UserID = &u
	}
	if email != nil {
		app.Email = *email
	}
	if tutorID != nil {
		app.TutorAssignment = &model.TutorAssignment{
			Tutor:       model.TutorID(*tutorID),
			MeetingLink: link,
			Schedule:    slot,
		}
	}
	return &app, nil
}
