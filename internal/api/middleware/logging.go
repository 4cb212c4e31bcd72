// logging.go — журнал HTTP-запросов sitecms через slog.
// Кроме статуса и длительности в запись попадают шаблон маршрута chi
// и вызывающий: subject сессии и роль, если она вычислялась в запросе.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/sitecms/internal/domain/access"
)

// statusRecorder перехватывает статус и размер ответа.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// sessionSlot — место для сессии, созданной ниже по цепочке middleware.
// Контекст запроса дочерних middleware недоступен логгеру после обработки.
type sessionSlot struct {
	session *access.Session
}

type sessionSlotKey struct{}

// noteSession сообщает логгеру запроса сессию вызывающего.
func noteSession(ctx context.Context, s *access.Session) {
	if slot, ok := ctx.Value(sessionSlotKey{}).(*sessionSlot); ok {
		slot.session = s
	}
}

// levelForStatus: INFO для 1xx-3xx, WARN для 4xx, ERROR для 5xx.
func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// callerAttrs описывает вызывающего. Роль не загружается ради журнала.
func callerAttrs(s *access.Session) []slog.Attr {
	if s == nil || !s.Authenticated() {
		return []slog.Attr{slog.Bool("anonymous", true)}
	}
	attrs := []slog.Attr{slog.String("subject", s.Subject)}
	if role, ok := s.CachedRole(); ok && role != "" {
		attrs = append(attrs, slog.String("role", role))
	}
	return attrs
}

// RequestLogger возвращает middleware журнала запросов.
// Должен стоять до JWT middleware, чтобы получить сессию вызывающего.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			slot := &sessionSlot{}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), sessionSlotKey{}, slot)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", rec.bytes),
				slog.String("remote_addr", r.RemoteAddr),
			}
			attrs = append(attrs, callerAttrs(slot.session)...)

			logger.LogAttrs(r.Context(), levelForStatus(rec.status), "HTTP запрос", attrs...)
		})
	}
}
