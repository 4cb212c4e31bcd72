// handler.go — основной обработчик API, реализующий routes.ServerInterface.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/domain/schema"
	"github.com/bigkaa/sitecms/internal/service"
)

// APIHandler — основной обработчик API sitecms.
// Реализует routes.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health     *HealthHandler
	docs       *service.DocumentService
	processing *service.ProcessingService
	writeback  *service.WritebackService
	users      *service.UserService
	logger     *slog.Logger
}

var _ routes.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	docs *service.DocumentService,
	processing *service.ProcessingService,
	writeback *service.WritebackService,
	users *service.UserService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		docs:       docs,
		processing: processing,
		writeback:  writeback,
		users:      users,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// ParamErrorHandler — ответ на ошибку разбора параметров маршрута.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	apierrors.ValidationError(w, err.Error())
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса. При ошибке отвечает 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > 1000 {
			l = 1000
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Неизвестные ошибки логируются и возвращаются как 500 с сообщением internalMsg.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, service.ErrUnknownCollection):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.Is(err, service.ErrForbidden):
		if !access.FromContext(r.Context()).Authenticated() {
			apierrors.Unauthorized(w, "Требуется аутентификация")
			return
		}
		apierrors.Forbidden(w, "Недостаточно прав для операции")
	case errors.Is(err, service.ErrValidation):
		var verrs schema.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]apierrors.FieldDetail, len(verrs))
			for i, fe := range verrs {
				details[i] = apierrors.FieldDetail{Path: fe.Path, Message: fe.Message}
			}
			apierrors.FieldValidationError(w, "Документ не прошёл валидацию", details)
			return
		}
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrNoTags):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrBusy):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrAssetNotFound):
		apierrors.NotFound(w, err.Error())
	default:
		h.logger.Error(internalMsg,
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, internalMsg)
	}
}

// mapDocument преобразует доменный документ в ответ API.
func mapDocument(d *model.Document) routes.Document {
	doc := routes.Document{
		Id:         d.ID,
		Collection: d.Collection,
		Data:       d.Data,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	if d.Site != "" {
		site := d.Site
		doc.Site = &site
	}
	return doc
}
