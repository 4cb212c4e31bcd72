// writeback.go — запись данных в документ reals доверенной внешней системой.
// Доступ проверяется общим секретом, предикаты доступа обходятся.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/domain/schema"
)

// WritebackService — обновление reals от имени системы.
type WritebackService struct {
	docs   *DocumentService
	secret string
	logger *slog.Logger
}

// NewWritebackService создаёт сервис write-back.
// Пустой secret отключает endpoint: любой запрос будет отклонён.
func NewWritebackService(docs *DocumentService, secret string, logger *slog.Logger) *WritebackService {
	return &WritebackService{
		docs:   docs,
		secret: secret,
		logger: logger.With(slog.String("component", "writeback_service")),
	}
}

// Authenticate сравнивает переданный секрет с настроенным за постоянное время.
func (w *WritebackService) Authenticate(provided string) bool {
	if w.secret == "" || provided == "" {
		return false
	}
	// Хэши выравнивают длину сравниваемых значений
	want := sha256.Sum256([]byte(w.secret))
	got := sha256.Sum256([]byte(provided))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

// Apply обновляет документ reals как системный вызов: доступ не проверяется,
// поля только для чтения доступны, хук after-change выполняется.
func (w *WritebackService) Apply(ctx context.Context, id string, data map[string]any) (*model.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: не указан id", ErrValidation)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: не указаны data", ErrValidation)
	}

	ctx = access.WithSession(ctx, access.System())
	doc, err := w.docs.Update(ctx, schema.CollectionReals, id, data)
	if err != nil {
		return nil, err
	}

	w.logger.Info("Write-back применён",
		slog.String("id", id),
		slog.Int("fields", len(data)),
	)
	return doc, nil
}
