package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sitecms/internal/domain/model"
)

// UserRepository — интерфейс CRUD для таблицы users.
type UserRepository interface {
	// Upsert создаёт или обновляет редактора по subject.
	Upsert(ctx context.Context, u *model.User) error
	// GetBySubject возвращает редактора по subject (sub из JWT).
	GetBySubject(ctx context.Context, subject string) (*model.User, error)
	// List возвращает редакторов (с пагинацией).
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	// Count возвращает количество редакторов.
	Count(ctx context.Context) (int, error)
	// Delete удаляет редактора по subject.
	Delete(ctx context.Context, subject string) error
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий редакторов.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, subject, email, name, role, created_at, updated_at`

func (r *userRepo) Upsert(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (id, subject, email, name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			role = EXCLUDED.role
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		uuid.New().String(), u.Subject, u.Email, u.Name, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetBySubject(ctx context.Context, subject string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE subject = $1`, userColumns)

	u := &model.User{}
	err := r.db.QueryRow(ctx, query, subject).Scan(
		&u.ID, &u.Subject, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, userColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(
			&u.ID, &u.Subject, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}

func (r *userRepo) Delete(ctx context.Context, subject string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE subject = $1`, subject)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
