// validator.go — проверка запросов на соответствие OpenAPI контракту.
// Параметры пути и запроса, обязательность и схема тела проверяются до обработчика.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
)

// RequestValidator — middleware валидации запросов по контракту.
type RequestValidator struct {
	router routers.Router
	logger *slog.Logger
}

// NewRequestValidator создаёт валидатор по разобранному контракту.
func NewRequestValidator(doc *openapi3.T, logger *slog.Logger) (*RequestValidator, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	return &RequestValidator{
		router: router,
		logger: logger.With(slog.String("component", "request_validator")),
	}, nil
}

// Middleware возвращает HTTP middleware валидации.
// Запросы к путям вне контракта передаются дальше без проверки (404/405 отвечает роутер).
func (v *RequestValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := v.router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				v.logger.Debug("Запрос не соответствует контракту",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, "Запрос не соответствует контракту: "+validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validationMessage возвращает краткое описание ошибки валидации.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			return "параметр " + reqErr.Parameter.Name + ": " + reqErr.Reason
		}
		if reqErr.RequestBody != nil {
			if reqErr.Reason == "" && reqErr.Err != nil {
				return "тело запроса: " + reqErr.Err.Error()
			}
			return "тело запроса: " + reqErr.Reason
		}
	}
	return err.Error()
}
