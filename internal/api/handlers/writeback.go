// writeback.go — POST /api/video-writeback.
// Запись результатов внешнего видео-конвейера в документ reals.
// Аутентификация — общий секрет в заголовке x-writeback-secret, JWT не используется.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
	"github.com/bigkaa/sitecms/internal/api/routes"
)

// VideoWriteback — POST /api/video-writeback.
// Секрет проверяется до разбора тела: без него документ не изменяется.
func (h *APIHandler) VideoWriteback(w http.ResponseWriter, r *http.Request, params routes.VideoWritebackParams) {
	provided := ""
	if params.XWritebackSecret != nil {
		provided = *params.XWritebackSecret
	}
	if !h.writeback.Authenticate(provided) {
		h.logger.Warn("Write-back отклонён: неверный секрет",
			slog.String("remote_addr", r.RemoteAddr),
		)
		apierrors.Unauthorized(w, "Неверный секрет write-back")
		return
	}

	var req routes.WritebackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Id == nil || *req.Id == "" || req.Data == nil {
		apierrors.ValidationError(w, "Поля id и data обязательны")
		return
	}

	doc, err := h.writeback.Apply(r.Context(), *req.Id, req.Data)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка записи результатов видео")
		return
	}

	writeJSON(w, http.StatusOK, routes.WritebackResponse{
		Success: true,
		Doc:     mapDocument(doc),
	})
}
