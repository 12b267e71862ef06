package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// StudentResolver находит или создаёт профиль ученика по заявке
type StudentResolver struct {
	users        UserStore
	students     StudentStore
	applications ApplicationStore
	logger       *zap.Logger
}

func NewStudentResolver(stores Stores, logger *zap.Logger) *StudentResolver {
	return &StudentResolver{
		users:        stores.Users,
		students:     stores.Students,
		applications: stores.Applications,
		logger:       logger,
	}
}

// Resolve ищет пользователя заявки по id, затем по email; если его нет,
// создаёт учётную запись-заглушку. Найденный пользователь привязывается к заявке,
// поэтому повторное разрешение заявки без email даёт того же ученика.
// Затем находит или создаёт профиль ученика. Существующий ученик без доступности
// получает доступность из заявки.
func (r *StudentResolver) Resolve(ctx context.Context, app *model.Application) (*model.Student, error) {
	user, err := r.resolveUser(ctx, app)
	if err != nil {
		return nil, err
	}

	if app.UserID == nil || *app.UserID != user.ID {
		if err := r.applications.SetUser(ctx, app.ID, user.ID); err != nil {
			return nil, fmt.Errorf("bind application user: %w", err)
		}
		userID := user.ID
		app.UserID = &userID
	}

	student, err := r.students.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get student by user: %w", err)
	}

	if student == nil {
		name := app.FullName()
		if name == "" {
			name = user.DisplayName()
		}
		student = &model.Student{
			UserID:       user.ID,
			Name:         name,
			Subjects:     app.SubjectNames(),
			Availability: app.Availability,
		}
		if err := r.students.Create(ctx, student); err != nil {
			return nil, fmt.Errorf("create student: %w", err)
		}

		r.logger.Info("Student created from application",
			zap.String("application_id", app.ID.String()),
			zap.String("student_id", student.ID.String()))
		return student, nil
	}

	if len(student.Availability) == 0 && len(app.Availability) > 0 {
		if err := r.students.UpdateAvailability(ctx, student.ID, app.Availability); err != nil {
			return nil, fmt.Errorf("update student availability: %w", err)
		}
		student.Availability = app.Availability
	}

	return student, nil
}

func (r *StudentResolver) resolveUser(ctx context.Context, app *model.Application) (*model.User, error) {
	if app.UserID != nil && !app.UserID.IsZero() {
		user, err := r.users.GetByID(ctx, *app.UserID)
		if err != nil {
			return nil, fmt.Errorf("get application user: %w", err)
		}
		if user != nil {
			return user, nil
		}
	}

	if email := strings.TrimSpace(app.Email); email != "" {
		user, err := r.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("get user by email: %w", err)
		}
		if user != nil {
			return user, nil
		}
	}

	// Пароль случайный: заглушка входит через сброс пароля, политика паролей не наша забота
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}

	user := &model.User{
		Email:         strings.ToLower(strings.TrimSpace(app.Email)),
		Phone:         app.Phone,
		FirstName:     app.FirstName,
		LastName:      app.LastName,
		Role:          model.RoleStudent,
		PasswordHash:  string(hash),
		IsPlaceholder: true,
	}
	if err := r.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create placeholder user: %w", err)
	}

	r.logger.Info("Placeholder user created for application",
		zap.String("application_id", app.ID.String()),
		zap.String("user_id", user.ID.String()))

	return user, nil
}
