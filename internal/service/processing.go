// processing.go — ручной запуск разрешения тегов документа reals
// с учётом статуса обработки (processingStatus).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/domain/schema"
)

// ProcessResult — результат ручной обработки.
type ProcessResult struct {
	DocumentID string
	Derived    *model.DerivedFields
	Document   *model.Document
}

// ProcessingService — ручной запуск разрешения тегов.
type ProcessingService struct {
	docs     *DocumentService
	resolver *Resolver
	locker   Locker
	now      func() time.Time
	logger   *slog.Logger
}

// NewProcessingService создаёт сервис ручной обработки.
// locker должен совпадать с блокировкой DocumentService.
func NewProcessingService(docs *DocumentService, resolver *Resolver, locker Locker, logger *slog.Logger) *ProcessingService {
	return &ProcessingService{
		docs:     docs,
		resolver: resolver,
		locker:   locker,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "processing_service")),
	}
}

// Process выполняет разрешение тегов документа reals.
// Ошибки: ErrValidation (нет id), ErrForbidden, ErrNotFound, ErrNoTags, ErrBusy,
// ErrAssetNotFound, прочие — внутренние.
func (p *ProcessingService) Process(ctx context.Context, documentID string) (*ProcessResult, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: не указан documentId", ErrValidation)
	}

	col, err := p.docs.Collection(schema.CollectionReals)
	if err != nil {
		return nil, err
	}
	if !col.Access.Update(ctx, access.FromContext(ctx)) {
		return nil, ErrForbidden
	}

	doc, err := p.docs.repo.GetByID(ctx, col.Slug, documentID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	tags := doc.String(model.FieldTags)
	if len(ParseTags(tags)) == 0 {
		return nil, ErrNoTags
	}

	release, ok, err := p.locker.TryLock(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("захват блокировки обработки: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	if _, err := p.docs.PatchSystem(ctx, doc.ID, model.ProcessingPatch(model.ProcessingProcessing, "", p.now())); err != nil {
		return nil, fmt.Errorf("установка статуса processing: %w", err)
	}

	fields, err := p.resolver.Resolve(ctx, tags)
	if err != nil {
		p.markError(ctx, doc.ID, err)
		return nil, err
	}

	updated, err := p.docs.PersistDerived(ctx, doc.ID, fields, model.ProcessingPatch(model.ProcessingComplete, "", p.now()))
	if err != nil {
		p.markError(ctx, doc.ID, err)
		return nil, fmt.Errorf("запись производных полей: %w", err)
	}

	p.logger.Info("Ручная обработка завершена",
		slog.String("id", doc.ID),
		slog.String("public_id", fields.PublicID),
	)

	return &ProcessResult{DocumentID: doc.ID, Derived: fields, Document: updated}, nil
}

// markError переводит документ в статус error. Ошибка записи только логируется.
func (p *ProcessingService) markError(ctx context.Context, id string, cause error) {
	level := slog.LevelError
	if errors.Is(cause, ErrAssetNotFound) {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "Ручная обработка завершилась ошибкой",
		slog.String("id", id),
		slog.String("error", cause.Error()),
	)

	if _, err := p.docs.PatchSystem(ctx, id, model.ProcessingPatch(model.ProcessingError, cause.Error(), p.now())); err != nil {
		p.logger.Error("Ошибка установки статуса error",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}
