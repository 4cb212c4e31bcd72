// collections.go — обработчики /api/v1/collections endpoints.
// CRUD документов коллекций; доступ и валидация — в DocumentService.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/schema"
	"github.com/bigkaa/sitecms/internal/service"
)

// collectionPermissions — права текущей сессии на операции коллекции.
type collectionPermissions struct {
	Read   string `json:"read"`
	Create bool   `json:"create"`
	Update bool   `json:"update"`
	Delete bool   `json:"delete"`
}

// collectionDescription — схема коллекции для админки.
type collectionDescription struct {
	*schema.Collection
	Permissions collectionPermissions `json:"permissions"`
}

func readScopeName(s access.ReadScope) string {
	switch s {
	case access.ReadAll:
		return "all"
	case access.ReadPublished:
		return "published"
	default:
		return "none"
	}
}

// ListCollections — GET /api/v1/collections.
// Возвращает схемы коллекций и права текущей сессии.
func (h *APIHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := access.FromContext(ctx)

	cols := h.docs.Registry().All()
	items := make([]any, 0, len(cols))
	for _, col := range cols {
		items = append(items, collectionDescription{
			Collection: col,
			Permissions: collectionPermissions{
				Read:   readScopeName(col.Access.Read(ctx, session)),
				Create: col.Access.Create(ctx, session),
				Update: col.Access.Update(ctx, session),
				Delete: col.Access.Delete(ctx, session),
			},
		})
	}

	writeJSON(w, http.StatusOK, routes.CollectionListResponse{Items: items})
}

// ListDocuments — GET /api/v1/collections/{collection}.
func (h *APIHandler) ListDocuments(w http.ResponseWriter, r *http.Request, collection routes.CollectionSlug, params routes.ListDocumentsParams) {
	limit, offset := paginationDefaults(params.Limit, params.Offset)

	docs, total, err := h.docs.List(r.Context(), collection, service.ListParams{
		Site:   params.Site,
		Status: params.Status,
		Slug:   params.Slug,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения списка документов")
		return
	}

	items := make([]routes.Document, len(docs))
	for i, d := range docs {
		items[i] = mapDocument(d)
	}

	writeJSON(w, http.StatusOK, routes.DocumentListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// CreateDocument — POST /api/v1/collections/{collection}.
func (h *APIHandler) CreateDocument(w http.ResponseWriter, r *http.Request, collection routes.CollectionSlug) {
	var req routes.DocumentCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Data == nil {
		apierrors.ValidationError(w, "Поле data обязательно")
		return
	}

	site := ""
	if req.Site != nil {
		site = *req.Site
	}

	doc, err := h.docs.Create(r.Context(), collection, site, req.Data)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка создания документа")
		return
	}

	writeJSON(w, http.StatusCreated, mapDocument(doc))
}

// GetDocument — GET /api/v1/collections/{collection}/{id}.
func (h *APIHandler) GetDocument(w http.ResponseWriter, r *http.Request, collection routes.CollectionSlug, id routes.DocumentId) {
	doc, err := h.docs.Get(r.Context(), collection, id.String())
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения документа")
		return
	}
	writeJSON(w, http.StatusOK, mapDocument(doc))
}

// UpdateDocument — PATCH /api/v1/collections/{collection}/{id}.
// Ключи data заменяют значения полей, null удаляет поле.
func (h *APIHandler) UpdateDocument(w http.ResponseWriter, r *http.Request, collection routes.CollectionSlug, id routes.DocumentId) {
	var req routes.DocumentUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Data == nil {
		apierrors.ValidationError(w, "Поле data обязательно")
		return
	}

	doc, err := h.docs.Update(r.Context(), collection, id.String(), req.Data)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка обновления документа")
		return
	}
	writeJSON(w, http.StatusOK, mapDocument(doc))
}

// DeleteDocument — DELETE /api/v1/collections/{collection}/{id}.
func (h *APIHandler) DeleteDocument(w http.ResponseWriter, r *http.Request, collection routes.CollectionSlug, id routes.DocumentId) {
	if err := h.docs.Delete(r.Context(), collection, id.String()); err != nil {
		h.writeServiceError(w, r, err, "Ошибка удаления документа")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
