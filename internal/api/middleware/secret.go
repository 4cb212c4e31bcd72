// secret.go — аутентификация доверенных систем общим секретом в заголовке.
// Выполняется до проверки контракта: без секрета тело запроса не разбирается.
package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/sitecms/internal/api/errors"
)

// WritebackSecretHeader — заголовок с общим секретом write-back.
const WritebackSecretHeader = "x-writeback-secret"

// SecretAuthenticator сверяет переданный секрет с настроенным.
type SecretAuthenticator interface {
	Authenticate(provided string) bool
}

// RequireSharedSecret возвращает middleware, отвечающий 401 на запросы
// без корректного секрета в заголовке header.
func RequireSharedSecret(header string, auth SecretAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "shared_secret"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Authenticate(r.Header.Get(header)) {
				logger.Warn("Запрос отклонён: неверный общий секрет",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Неверный секрет write-back")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
