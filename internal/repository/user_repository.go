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
)

const userColumns = `id, email, phone, first_name, last_name, role, telegram_id, password_hash, is_placeholder, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = model.NewUserID()
	}

	query := `
		INSERT INTO users (id, email, phone, first_name, last_name, role, telegram_id, password_hash, is_placeholder)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, 0), $8, $9)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.ID.UUID(),
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.Phone,
		user.FirstName,
		user.LastName,
		user.Role,
		user.TelegramID,
		user.PasswordHash,
		user.IsPlaceholder,
	).Scan(&user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id model.UserID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, id.UUID()))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// GetByEmail получает пользователя по email без учёта регистра
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.QueryRow(ctx, query, email))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		user       model.User
		id         uuid.UUID
		email      *string
		telegramID *int64
	)
	err := row.Scan(
		&id,
		&email,
		&user.Phone,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&telegramID,
		&user.PasswordHash,
		&user.IsPlaceholder,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.ID = model.UserID(id)
	if email != nil {
		user.Email = *email
	}
	if telegramID != nil {
		user.TelegramID = *telegramID
	}
	return &user, nil
}
