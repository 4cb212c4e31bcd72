package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sitecms/internal/domain/model"
)

// DocumentRepository — интерфейс CRUD для таблицы documents.
type DocumentRepository interface {
	// Create сохраняет новый документ. ID назначается, если не задан.
	Create(ctx context.Context, doc *model.Document) error
	// GetByID возвращает документ коллекции по UUID.
	GetByID(ctx context.Context, collection, id string) (*model.Document, error)
	// List возвращает документы с фильтрацией.
	List(ctx context.Context, filters DocumentFilters, limit, offset int) ([]*model.Document, error)
	// Count возвращает количество документов с фильтрацией.
	Count(ctx context.Context, filters DocumentFilters) (int, error)
	// Update заменяет data документа при совпадении версии.
	// Несовпадение версии — ErrWriteConflict.
	Update(ctx context.Context, doc *model.Document) error
	// PatchFields сливает поля в data под блокировкой строки без ожидания.
	// Занятая блокировка — ErrWriteConflict.
	PatchFields(ctx context.Context, collection, id string, fields map[string]any) (*model.Document, error)
	// Delete удаляет документ.
	Delete(ctx context.Context, collection, id string) error
}

// DocumentFilters — фильтры для списка документов.
type DocumentFilters struct {
	Collection string
	Site       *string
	Status     *string
	Slug       *string
}

// documentRepo — реализация DocumentRepository.
type documentRepo struct {
	db DBTX
	tx *TxRunner
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX, tx *TxRunner) DocumentRepository {
	return &documentRepo{db: db, tx: tx}
}

const docColumns = `id, collection, site, data, version, created_at, updated_at`

func scanDocument(row pgx.Row) (*model.Document, error) {
	d := &model.Document{}
	if err := row.Scan(
		&d.ID, &d.Collection, &d.Site, &d.Data, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if d.Data == nil {
		d.Data = map[string]any{}
	}
	return d, nil
}

func (r *documentRepo) Create(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}

	query := `
		INSERT INTO documents (id, collection, site, data)
		VALUES ($1, $2, $3, $4)
		RETURNING version, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, doc.ID, doc.Collection, doc.Site, doc.Data).
		Scan(&doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: документ с таким slug уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания документа: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, collection, id string) (*model.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 AND collection = $2`, docColumns)

	d, err := scanDocument(r.db.QueryRow(ctx, query, id, collection))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа: %w", err)
	}
	return d, nil
}

// buildDocumentWhere строит WHERE-условие и аргументы для фильтрации документов.
func buildDocumentWhere(filters DocumentFilters, startArg int) (string, []any) {
	conditions := []string{fmt.Sprintf("collection = $%d", startArg)}
	args := []any{filters.Collection}
	argNum := startArg + 1

	if filters.Site != nil {
		conditions = append(conditions, fmt.Sprintf("site = $%d", argNum))
		args = append(args, *filters.Site)
		argNum++
	}
	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("data->>'status' = $%d", argNum))
		args = append(args, *filters.Status)
		argNum++
	}
	if filters.Slug != nil {
		conditions = append(conditions, fmt.Sprintf("data->>'slug' = $%d", argNum))
		args = append(args, *filters.Slug)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *documentRepo) List(ctx context.Context, filters DocumentFilters, limit, offset int) ([]*model.Document, error) {
	where, args := buildDocumentWhere(filters, 1)
	argNum := len(args) + 1

	// Документы без числового order идут после упорядоченных
	query := fmt.Sprintf(`
		SELECT %s
		FROM documents
		%s
		ORDER BY
			CASE WHEN jsonb_typeof(data->'order') = 'number' THEN (data->'order')::numeric END ASC NULLS LAST,
			created_at DESC
		LIMIT $%d OFFSET $%d`, docColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка документов: %w", err)
	}
	defer rows.Close()

	var result []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *documentRepo) Count(ctx context.Context, filters DocumentFilters) (int, error) {
	where, args := buildDocumentWhere(filters, 1)

	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта документов: %w", err)
	}
	return count, nil
}

func (r *documentRepo) Update(ctx context.Context, doc *model.Document) error {
	query := `
		UPDATE documents
		SET data = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND collection = $2 AND version = $4
		RETURNING version, updated_at`

	err := r.db.QueryRow(ctx, query, doc.ID, doc.Collection, doc.Data, doc.Version).
		Scan(&doc.Version, &doc.UpdatedAt)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Строки нет либо версия уже сменилась
		if _, getErr := r.GetByID(ctx, doc.Collection, doc.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: версия %d устарела", ErrWriteConflict, doc.Version)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: документ с таким slug уже существует", ErrConflict)
	case isWriteConflict(err):
		return fmt.Errorf("%w: %v", ErrWriteConflict, err)
	default:
		return fmt.Errorf("ошибка обновления документа: %w", err)
	}
}

func (r *documentRepo) PatchFields(ctx context.Context, collection, id string, fields map[string]any) (*model.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var result *model.Document
	err := r.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx,
			`SELECT id FROM documents WHERE id = $1 AND collection = $2 FOR UPDATE NOWAIT`,
			id, collection,
		).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			if isWriteConflict(err) {
				return fmt.Errorf("%w: %v", ErrWriteConflict, err)
			}
			return fmt.Errorf("ошибка блокировки документа: %w", err)
		}

		query := fmt.Sprintf(`
			UPDATE documents
			SET data = data || $2::jsonb, version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING %s`, docColumns)

		d, err := scanDocument(tx.QueryRow(ctx, query, id, fields))
		if err != nil {
			if isWriteConflict(err) {
				return fmt.Errorf("%w: %v", ErrWriteConflict, err)
			}
			return fmt.Errorf("ошибка обновления полей документа: %w", err)
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *documentRepo) Delete(ctx context.Context, collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND collection = $2`, id, collection)
	if err != nil {
		return fmt.Errorf("ошибка удаления документа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
