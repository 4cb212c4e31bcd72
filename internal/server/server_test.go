package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bigkaa/sitecms/internal/api/middleware"
	"github.com/bigkaa/sitecms/internal/api/openapi"
	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/domain/access"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubAPI отвечает 200 на health, write-back и auth/me, остальное не вызывается.
type stubAPI struct {
	routes.ServerInterface
	lastSession *access.Session
}

func (s *stubAPI) HealthLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *stubAPI) VideoWriteback(w http.ResponseWriter, r *http.Request, _ routes.VideoWritebackParams) {
	s.lastSession = access.FromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func (s *stubAPI) GetAuthMe(w http.ResponseWriter, r *http.Request) {
	s.lastSession = access.FromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func newTestRouter(api *stubAPI) http.Handler {
	jwtAuth := middleware.NewJWTAuthWithKeyfunc(nil, "", nil, access.GroupMapping{}, testLogger())
	return NewRouter(testLogger(), api, jwtAuth, nil, nil)
}

func TestRouter_JWTExclusions(t *testing.T) {
	api := &stubAPI{}
	router := newTestRouter(api)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{name: "health без JWT", method: http.MethodGet, path: "/health/live", wantCode: http.StatusOK},
		{name: "write-back без JWT", method: http.MethodPost, path: "/api/video-writeback", wantCode: http.StatusOK},
		{name: "защищённый путь", method: http.MethodGet, path: "/api/v1/auth/me", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			// Некорректный формат заголовка отклоняется JWT middleware
			req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидается %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRouter_AnonymousSession(t *testing.T) {
	api := &stubAPI{}
	router := newTestRouter(api)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/video-writeback", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	if api.lastSession == nil || api.lastSession.Authenticated() {
		t.Error("запрос без Authorization должен получить анонимную сессию")
	}
}

func TestRouter_RequireAuthenticated(t *testing.T) {
	api := &stubAPI{}
	router := newTestRouter(api)

	// Обработчики этих путей в stubAPI не реализованы: 401 отвечает middleware
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPost, "/api/process-cloudinary"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: статус = %d, ожидается 401", tc.method, tc.path, rec.Code)
		}
	}
	if api.lastSession != nil {
		t.Error("обработчик не должен вызываться для анонимного запроса")
	}
}

func TestRouter_ParamErrors(t *testing.T) {
	router := NewRouter(testLogger(), &stubAPI{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/collections/pages/not-a-uuid", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидается 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, ожидается application/json", ct)
	}
}

// fixedSecret принимает только один секрет write-back.
type fixedSecret string

func (s fixedSecret) Authenticate(provided string) bool {
	return provided == string(s)
}

// newContractRouter собирает роутер как в main: JWT, секрет write-back, проверка контракта.
func newContractRouter(t *testing.T, api *stubAPI) http.Handler {
	t.Helper()
	doc, err := openapi.Load()
	if err != nil {
		t.Fatalf("openapi.Load() ошибка: %v", err)
	}
	validator, err := middleware.NewRequestValidator(doc, testLogger())
	if err != nil {
		t.Fatalf("NewRequestValidator() ошибка: %v", err)
	}
	jwtAuth := middleware.NewJWTAuthWithKeyfunc(nil, "", nil, access.GroupMapping{}, testLogger())
	return NewRouter(testLogger(), api, jwtAuth, fixedSecret("s3cret"), validator)
}

func TestRouter_WritebackSecretBeforeContract(t *testing.T) {
	api := &stubAPI{}
	router := newContractRouter(t, api)

	tests := []struct {
		name     string
		secret   string
		body     string
		wantCode int
	}{
		{name: "без секрета, пустое тело", body: "", wantCode: http.StatusUnauthorized},
		{name: "без секрета, id числом", body: `{"id": 5, "data": {}}`, wantCode: http.StatusUnauthorized},
		{name: "без секрета, data строкой", body: `{"id":"x","data":"str"}`, wantCode: http.StatusUnauthorized},
		{name: "неверный секрет, битый JSON", secret: "guess", body: `{`, wantCode: http.StatusUnauthorized},
		{name: "верный секрет, пустое тело", secret: "s3cret", body: "", wantCode: http.StatusBadRequest},
		{name: "верный секрет, id числом", secret: "s3cret", body: `{"id": 5, "data": {}}`, wantCode: http.StatusBadRequest},
		{name: "верный секрет, корректное тело", secret: "s3cret", body: `{"id":"x","data":{}}`, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api.lastSession = nil
			req := httptest.NewRequest(http.MethodPost, "/api/video-writeback", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.secret != "" {
				req.Header.Set(middleware.WritebackSecretHeader, tt.secret)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидается %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK && api.lastSession != nil {
				t.Error("обработчик не должен вызываться для отклонённого запроса")
			}
		})
	}
}
