// auth_me.go — GET /api/v1/auth/me.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/domain/access"
)

// GetAuthMe — текущий пользователь и его действующая роль.
func (h *APIHandler) GetAuthMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := access.FromContext(ctx)
	if !s.Authenticated() {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	writeJSON(w, http.StatusOK, routes.Principal{
		Subject:  s.Subject,
		Username: s.Username,
		Email:    s.Email,
		IdpRole:  s.IdpRole,
		Role:     s.Role(ctx),
	})
}
