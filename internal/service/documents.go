// documents.go — сервис документов коллекций: доступ, валидация, кэш,
// хук after-change для reals и запись производных полей.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/domain/schema"
	"github.com/bigkaa/sitecms/internal/repository"
)

// ListParams — параметры списка документов.
type ListParams struct {
	Site   *string
	Status *string
	Slug   *string
	Limit  int
	Offset int
}

// DocumentService — CRUD документов с проверкой доступа и валидацией по схеме.
type DocumentService struct {
	registry *schema.Registry
	repo     repository.DocumentRepository
	cache    *CacheService
	resolver *Resolver
	locker   Locker
	retry    RetryPolicy
	logger   *slog.Logger
}

// NewDocumentService создаёт сервис документов.
// cache может быть nil (без кэширования); resolver nil отключает хук reals.
func NewDocumentService(
	registry *schema.Registry,
	repo repository.DocumentRepository,
	cache *CacheService,
	resolver *Resolver,
	locker Locker,
	logger *slog.Logger,
) *DocumentService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &DocumentService{
		registry: registry,
		repo:     repo,
		cache:    cache,
		resolver: resolver,
		locker:   locker,
		retry:    DefaultRetryPolicy(),
		logger:   logger.With(slog.String("component", "document_service")),
	}
}

// SetRetryPolicy заменяет политику повторов записи производных полей.
func (s *DocumentService) SetRetryPolicy(p RetryPolicy) {
	s.retry = p
}

// Registry возвращает реестр коллекций.
func (s *DocumentService) Registry() *schema.Registry {
	return s.registry
}

// Collection возвращает схему коллекции или ErrUnknownCollection.
func (s *DocumentService) Collection(slug string) (*schema.Collection, error) {
	col, ok := s.registry.Get(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, slug)
	}
	return col, nil
}

// List возвращает документы коллекции и общее количество.
// Анонимный читатель коллекции с публикацией видит только опубликованное.
func (s *DocumentService) List(ctx context.Context, collection string, p ListParams) ([]*model.Document, int, error) {
	col, err := s.Collection(collection)
	if err != nil {
		return nil, 0, err
	}

	filters := repository.DocumentFilters{
		Collection: col.Slug,
		Site:       p.Site,
		Status:     p.Status,
		Slug:       p.Slug,
	}

	switch col.Access.Read(ctx, access.FromContext(ctx)) {
	case access.ReadDenied:
		return nil, 0, ErrForbidden
	case access.ReadPublished:
		if p.Status != nil && *p.Status != model.StatusPublished {
			return []*model.Document{}, 0, nil
		}
		published := model.StatusPublished
		filters.Status = &published
	}

	docs, err := s.repo.List(ctx, filters, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	if docs == nil {
		docs = []*model.Document{}
	}
	return docs, total, nil
}

// Get возвращает документ с учётом доступа на чтение.
// Неопубликованный документ для анонимного читателя — ErrNotFound.
func (s *DocumentService) Get(ctx context.Context, collection, id string) (*model.Document, error) {
	col, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}

	scope := col.Access.Read(ctx, access.FromContext(ctx))
	if scope == access.ReadDenied {
		return nil, ErrForbidden
	}

	doc, err := s.load(ctx, col.Slug, id)
	if err != nil {
		return nil, err
	}

	if scope == access.ReadPublished && col.HasStatus() && doc.String("status") != model.StatusPublished {
		return nil, ErrNotFound
	}
	return doc, nil
}

// load читает документ через кэш.
func (s *DocumentService) load(ctx context.Context, collection, id string) (*model.Document, error) {
	if s.cache != nil {
		if doc, ok := s.cache.Get(collection, id); ok {
			return doc, nil
		}
	}

	doc, err := s.repo.GetByID(ctx, collection, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if s.cache != nil {
		s.cache.Set(doc)
	}
	return doc, nil
}

// Create создаёт документ и запускает хук after-change.
func (s *DocumentService) Create(ctx context.Context, collection, site string, data map[string]any) (*model.Document, error) {
	col, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}

	session := access.FromContext(ctx)
	if !col.Access.Create(ctx, session) {
		return nil, ErrForbidden
	}

	if err := checkSite(col, site); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	if err := col.CheckWritable(data, session.IsSystem()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	doc := &model.Document{Collection: col.Slug, Site: site, Data: copyData(data)}
	col.ApplyDefaults(doc.Data)
	if err := col.Validate(doc.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if col.SinglePerSite {
		siteKey := site
		n, err := s.repo.Count(ctx, repository.DocumentFilters{Collection: col.Slug, Site: &siteKey})
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: для сайта %q документ %s уже существует", ErrConflict, site, col.Slug)
		}
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Документ создан",
		slog.String("collection", col.Slug),
		slog.String("id", doc.ID),
		slog.String("site", site),
		slog.String("subject", session.Subject),
	)

	return s.afterChange(ctx, col, doc), nil
}

// Update частично обновляет документ: ключи patch заменяют значения, nil удаляет поле.
// Системная сессия может писать поля только для чтения. Хук after-change запускается.
func (s *DocumentService) Update(ctx context.Context, collection, id string, patch map[string]any) (*model.Document, error) {
	col, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}

	session := access.FromContext(ctx)
	if !col.Access.Update(ctx, session) {
		return nil, ErrForbidden
	}

	if err := col.CheckWritable(patch, session.IsSystem()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	doc, err := s.repo.GetByID(ctx, col.Slug, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	for k, v := range patch {
		if v == nil {
			delete(doc.Data, k)
			continue
		}
		doc.Data[k] = v
	}

	if err := col.Validate(doc.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, mapRepoError(err)
	}
	s.invalidate(col.Slug, id)

	s.logger.Info("Документ обновлён",
		slog.String("collection", col.Slug),
		slog.String("id", id),
		slog.Int64("version", doc.Version),
		slog.String("subject", session.Subject),
	)

	return s.afterChange(ctx, col, doc), nil
}

// Delete удаляет документ.
func (s *DocumentService) Delete(ctx context.Context, collection, id string) error {
	col, err := s.Collection(collection)
	if err != nil {
		return err
	}

	session := access.FromContext(ctx)
	if !col.Access.Delete(ctx, session) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, col.Slug, id); err != nil {
		return mapRepoError(err)
	}
	s.invalidate(col.Slug, id)

	s.logger.Info("Документ удалён",
		slog.String("collection", col.Slug),
		slog.String("id", id),
		slog.String("subject", session.Subject),
	)
	return nil
}

// --- Производные поля reals ---

// PersistDerived записывает производные поля (и дополнительные поля extra) в документ reals.
// Хуки не вызываются. Конфликт записи повторяется по политике повторов.
func (s *DocumentService) PersistDerived(ctx context.Context, id string, fields *model.DerivedFields, extra map[string]any) (*model.Document, error) {
	patch := fields.Patch()
	for k, v := range extra {
		patch[k] = v
	}
	return s.PatchSystem(ctx, id, patch)
}

// PatchSystem сливает поля в документ reals от имени системы без хуков и валидации,
// с повтором при конфликте записи.
func (s *DocumentService) PatchSystem(ctx context.Context, id string, patch map[string]any) (*model.Document, error) {
	var doc *model.Document
	err := s.retry.Do(ctx, func(attempt int) error {
		d, err := s.repo.PatchFields(ctx, schema.CollectionReals, id, patch)
		if err != nil {
			if errors.Is(err, repository.ErrWriteConflict) {
				s.logger.Warn("Конфликт записи производных полей",
					slog.String("id", id),
					slog.Int("attempt", attempt),
				)
			}
			return err
		}
		doc = d
		return nil
	})
	s.invalidate(schema.CollectionReals, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// afterChange — хук после создания или обновления.
// Для reals с тегами запускает разрешение; ошибки логируются и не влияют на запрос.
// Возвращает актуальную версию документа.
func (s *DocumentService) afterChange(ctx context.Context, col *schema.Collection, doc *model.Document) *model.Document {
	if col.Slug != schema.CollectionReals || s.resolver == nil {
		return doc
	}
	tags := doc.String(model.FieldTags)
	if len(ParseTags(tags)) == 0 {
		return doc
	}

	release, ok, err := s.locker.TryLock(ctx, doc.ID)
	if err != nil {
		s.logger.Error("Ошибка захвата блокировки разрешения",
			slog.String("id", doc.ID),
			slog.String("error", err.Error()),
		)
		return doc
	}
	if !ok {
		s.logger.Info("Разрешение тегов уже выполняется, пропуск",
			slog.String("id", doc.ID),
		)
		return doc
	}
	defer release()

	fields, err := s.resolver.Resolve(ctx, tags)
	if err != nil {
		if !errors.Is(err, ErrAssetNotFound) {
			s.logger.Error("Ошибка разрешения тегов",
				slog.String("id", doc.ID),
				slog.String("error", err.Error()),
			)
		}
		return doc
	}

	updated, err := s.PersistDerived(ctx, doc.ID, fields, nil)
	if err != nil {
		s.logger.Error("Ошибка записи производных полей",
			slog.String("id", doc.ID),
			slog.String("error", err.Error()),
		)
		return doc
	}

	s.logger.Info("Производные поля записаны",
		slog.String("id", doc.ID),
		slog.String("public_id", fields.PublicID),
	)
	return updated
}

// --- Вспомогательные функции ---

func (s *DocumentService) invalidate(collection, id string) {
	if s.cache != nil {
		s.cache.Delete(collection, id)
	}
}

// checkSite проверяет ключ сайта для коллекции.
func checkSite(col *schema.Collection, site string) error {
	if !col.SiteScoped {
		if site != "" {
			return fmt.Errorf("%w: коллекция %s не привязана к сайту", ErrValidation, col.Slug)
		}
		return nil
	}
	if site == "" {
		return fmt.Errorf("%w: не указан сайт", ErrValidation)
	}
	if !schema.IsValidSlug(site) {
		return fmt.Errorf("%w: некорректный ключ сайта %q", ErrValidation, site)
	}
	return nil
}

// mapRepoError переводит ошибки репозитория в ошибки сервисного слоя.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrWriteConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
