// Пакет server — HTTP-сервер sitecms с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/sitecms/internal/api/handlers"
	"github.com/bigkaa/sitecms/internal/api/middleware"
	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/config"
)

// Server — HTTP-сервер sitecms.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// jwtAuth, writebackAuth и validator могут быть nil (тесты без auth и без проверки контракта).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler routes.ServerInterface,
	jwtAuth *middleware.JWTAuth,
	writebackAuth middleware.SecretAuthenticator,
	validator *middleware.RequestValidator,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, handler, jwtAuth, writebackAuth, validator),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер со всеми middleware и маршрутами контракта.
func NewRouter(
	logger *slog.Logger,
	handler routes.ServerInterface,
	jwtAuth *middleware.JWTAuth,
	writebackAuth middleware.SecretAuthenticator,
	validator *middleware.RequestValidator,
) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую.
	// Write-back аутентифицируется общим секретом, а не JWT.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth, "/health/", "/metrics", "/api/video-writeback"))
		// Остальные пути допускают анонимное чтение
		router.Use(onlyFor(middleware.RequireAuthenticated(), "/api/process-cloudinary", "/api/v1/users", "/api/v1/auth/"))
	}

	// Секрет write-back проверяется до контракта: чужой запрос получает 401, а не 400
	if writebackAuth != nil {
		router.Use(onlyFor(
			middleware.RequireSharedSecret(middleware.WritebackSecretHeader, writebackAuth, logger),
			"/api/video-writeback",
		))
	}

	if validator != nil {
		router.Use(validator.Middleware())
	}

	return routes.HandlerWithOptions(handler, routes.ChiServerOptions{
		BaseRouter:       router,
		ErrorHandlerFunc: handlers.ParamErrorHandler,
	})
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		protected := jwtMiddleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// onlyFor применяет mw только к путям с указанными префиксами.
func onlyFor(mw func(http.Handler) http.Handler, prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range prefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					wrapped.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
