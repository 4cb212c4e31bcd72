// users.go — сервис редакторов CMS: сохранённые роли и загрузка роли для сессии.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/repository"
)

// UserService — управление редакторами (только admin).
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService создаёт сервис редакторов.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// RoleLookup возвращает функцию загрузки сохранённой роли для access.Session.
// Отсутствие записи — пустая роль без ошибки.
func (s *UserService) RoleLookup() access.RoleLookup {
	return func(ctx context.Context, subject string) (string, error) {
		u, err := s.repo.GetBySubject(ctx, subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", nil
			}
			return "", err
		}
		return u.Role, nil
	}
}

func requireAdmin(ctx context.Context) error {
	if !access.AdminOnly()(ctx, access.FromContext(ctx)) {
		return ErrForbidden
	}
	return nil
}

// List возвращает редакторов и их общее количество.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, 0, err
	}

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, total, nil
}

// Put создаёт или обновляет редактора с сохранённой ролью.
func (s *UserService) Put(ctx context.Context, u *model.User) (*model.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if u.Subject == "" {
		return nil, fmt.Errorf("%w: не указан subject", ErrValidation)
	}
	if !access.IsValidRole(u.Role) {
		return nil, ErrInvalidRole
	}

	if err := s.repo.Upsert(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("Роль редактора сохранена",
		slog.String("subject", u.Subject),
		slog.String("role", u.Role),
		slog.String("by", access.FromContext(ctx).Subject),
	)
	return u, nil
}

// Delete удаляет сохранённую роль редактора (остаётся роль из IdP).
func (s *UserService) Delete(ctx context.Context, subject string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, subject); err != nil {
		return mapRepoError(err)
	}

	s.logger.Info("Роль редактора удалена",
		slog.String("subject", subject),
		slog.String("by", access.FromContext(ctx).Subject),
	)
	return nil
}
