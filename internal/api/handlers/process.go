// process.go — POST /api/process-cloudinary.
// Ручной запуск разрешения тегов документа reals в видео-ассет.
package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/service"
)

// ProcessCloudinary — POST /api/process-cloudinary.
// Требует аутентифицированного редактора с правом обновления reals.
func (h *APIHandler) ProcessCloudinary(w http.ResponseWriter, r *http.Request) {
	if !access.FromContext(r.Context()).Authenticated() {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var req routes.ProcessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DocumentId == nil || *req.DocumentId == "" {
		apierrors.ValidationError(w, "Не указан documentId")
		return
	}

	res, err := h.processing.Process(r.Context(), *req.DocumentId)
	if err != nil {
		if errors.Is(err, service.ErrNoTags) {
			apierrors.ValidationError(w, "У документа нет тегов для поиска видео")
			return
		}
		h.writeServiceError(w, r, err, "Ошибка обработки видео")
		return
	}

	data := res.Derived.Patch()
	if res.Document != nil {
		data = res.Document.Data
	}

	writeJSON(w, http.StatusOK, routes.ProcessResponse{
		Success:    true,
		DocumentId: res.DocumentID,
		Data:       data,
	})
}
