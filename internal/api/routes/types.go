package routes

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// DocumentId — идентификатор документа в пути.
type DocumentId = openapi_types.UUID

// CollectionSlug — slug коллекции в пути.
type CollectionSlug = string

// Subject — sub редактора в пути.
type Subject = string

// ListDocumentsParams — параметры GET /api/v1/collections/{collection}.
type ListDocumentsParams struct {
	Site   *string `form:"site,omitempty" json:"site,omitempty"`
	Status *string `form:"status,omitempty" json:"status,omitempty"`
	Slug   *string `form:"slug,omitempty" json:"slug,omitempty"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int    `form:"offset,omitempty" json:"offset,omitempty"`
}

// ListUsersParams — параметры GET /api/v1/users.
type ListUsersParams struct {
	Limit  *int `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// VideoWritebackParams — параметры POST /api/video-writeback.
type VideoWritebackParams struct {
	XWritebackSecret *string `json:"x-writeback-secret,omitempty"`
}

// --- Тела запросов и ответов ---

// ProcessRequest — тело POST /api/process-cloudinary.
type ProcessRequest struct {
	DocumentId *string `json:"documentId,omitempty"`
}

// ProcessResponse — ответ POST /api/process-cloudinary.
type ProcessResponse struct {
	Success    bool           `json:"success"`
	DocumentId string         `json:"documentId"`
	Data       map[string]any `json:"data"`
}

// WritebackRequest — тело POST /api/video-writeback.
type WritebackRequest struct {
	Id   *string        `json:"id,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// WritebackResponse — ответ POST /api/video-writeback.
type WritebackResponse struct {
	Success bool     `json:"success"`
	Doc     Document `json:"doc"`
}

// Document — документ коллекции.
type Document struct {
	Id         string         `json:"id"`
	Collection string         `json:"collection"`
	Site       *string        `json:"site,omitempty"`
	Data       map[string]any `json:"data"`
	Version    int64          `json:"version"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// DocumentCreate — тело POST /api/v1/collections/{collection}.
type DocumentCreate struct {
	Site *string        `json:"site,omitempty"`
	Data map[string]any `json:"data"`
}

// DocumentUpdate — тело PATCH /api/v1/collections/{collection}/{id}.
type DocumentUpdate struct {
	Data map[string]any `json:"data"`
}

// DocumentListResponse — ответ списка документов.
type DocumentListResponse struct {
	Items   []Document `json:"items"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	HasMore bool       `json:"hasMore"`
}

// CollectionListResponse — описание схем коллекций.
type CollectionListResponse struct {
	Items []any `json:"items"`
}

// User — редактор CMS.
type User struct {
	Id        string     `json:"id,omitempty"`
	Subject   string     `json:"subject"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// UserUpdate — тело PUT /api/v1/users/{subject}.
type UserUpdate struct {
	Role  string  `json:"role"`
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}

// UserListResponse — ответ списка редакторов.
type UserListResponse struct {
	Items   []User `json:"items"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"hasMore"`
}

// Principal — текущий пользователь и его роль.
type Principal struct {
	Subject  string `json:"subject"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	IdpRole  string `json:"idpRole,omitempty"`
	Role     string `json:"role"`
}
