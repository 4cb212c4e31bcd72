// users.go — обработчики /api/v1/users endpoints.
// Управление сохранёнными ролями редакторов (только admin).
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/domain/model"
)

// ListUsers — GET /api/v1/users.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request, params routes.ListUsersParams) {
	limit, offset := paginationDefaults(params.Limit, params.Offset)

	users, total, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения списка редакторов")
		return
	}

	items := make([]routes.User, len(users))
	for i, u := range users {
		items[i] = mapUser(u)
	}

	writeJSON(w, http.StatusOK, routes.UserListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// PutUser — PUT /api/v1/users/{subject}.
// Создаёт или обновляет сохранённую роль редактора.
func (h *APIHandler) PutUser(w http.ResponseWriter, r *http.Request, subject routes.Subject) {
	var req routes.UserUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		apierrors.ValidationError(w, "Поле role обязательно")
		return
	}

	u := &model.User{Subject: subject, Role: req.Role}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Name != nil {
		u.Name = *req.Name
	}

	saved, err := h.users.Put(r.Context(), u)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка сохранения роли редактора")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(saved))
}

// DeleteUser — DELETE /api/v1/users/{subject}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request, subject routes.Subject) {
	if err := h.users.Delete(r.Context(), subject); err != nil {
		h.writeServiceError(w, r, err, "Ошибка удаления роли редактора")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mapUser преобразует доменную модель в ответ API.
func mapUser(u *model.User) routes.User {
	out := routes.User{
		Id:      u.ID,
		Subject: u.Subject,
		Email:   u.Email,
		Name:    u.Name,
		Role:    u.Role,
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		out.CreatedAt = &created
	}
	if !u.UpdatedAt.IsZero() {
		updated := u.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}
