package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bigkaa/sitecms/internal/api/routes"
	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/domain/schema"
	"github.com/bigkaa/sitecms/internal/media"
	"github.com/bigkaa/sitecms/internal/repository"
	"github.com/bigkaa/sitecms/internal/service"
)

const testSecret = "s3cr3t-writeback"

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- In-memory репозитории ---

type memDocRepo struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func (r *memDocRepo) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.docs {
		if d.Collection == doc.Collection && d.Site == doc.Site && d.Data["slug"] != nil && d.Data["slug"] == doc.Data["slug"] {
			return repository.ErrConflict
		}
	}
	doc.ID = uuid.NewString()
	doc.Version = 1
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *memDocRepo) GetByID(_ context.Context, collection, id string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok || d.Collection != collection {
		return nil, repository.ErrNotFound
	}
	return d.Clone(), nil
}

func (r *memDocRepo) filter(f repository.DocumentFilters) []*model.Document {
	var out []*model.Document
	for _, d := range r.docs {
		if d.Collection != f.Collection {
			continue
		}
		if f.Site != nil && d.Site != *f.Site {
			continue
		}
		if f.Status != nil && d.String("status") != *f.Status {
			continue
		}
		if f.Slug != nil && d.String("slug") != *f.Slug {
			continue
		}
		out = append(out, d.Clone())
	}
	return out
}

func (r *memDocRepo) List(_ context.Context, f repository.DocumentFilters, limit, offset int) ([]*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.filter(f)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memDocRepo) Count(_ context.Context, f repository.DocumentFilters) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filter(f)), nil
}

func (r *memDocRepo) Update(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[doc.ID]
	if !ok || cur.Collection != doc.Collection {
		return repository.ErrNotFound
	}
	if cur.Version != doc.Version {
		return repository.ErrWriteConflict
	}
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *memDocRepo) PatchFields(_ context.Context, collection, id string, fields map[string]any) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[id]
	if !ok || cur.Collection != collection {
		return nil, repository.ErrNotFound
	}
	for k, v := range fields {
		cur.Data[k] = v
	}
	cur.Version++
	return cur.Clone(), nil
}

func (r *memDocRepo) Delete(_ context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[id]
	if !ok || cur.Collection != collection {
		return repository.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *memDocRepo) put(collection, site string, data map[string]any) *model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	doc := &model.Document{
		ID: uuid.NewString(), Collection: collection, Site: site, Data: data,
		Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	r.docs[doc.ID] = doc.Clone()
	return doc
}

func (r *memDocRepo) raw(id string) *model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id].Clone()
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (r *memUserRepo) Upsert(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if cur, ok := r.users[u.Subject]; ok {
		u.ID = cur.ID
		u.CreatedAt = cur.CreatedAt
	} else {
		u.ID = uuid.NewString()
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	c := *u
	r.users[u.Subject] = &c
	return nil
}

func (r *memUserRepo) GetBySubject(_ context.Context, subject string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) List(_ context.Context, limit, offset int) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.User
	for _, u := range r.users {
		c := *u
		out = append(out, &c)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *memUserRepo) Delete(_ context.Context, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[subject]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, subject)
	return nil
}

// --- Поисковый API медиа-хранилища ---

type fakeSearcher struct {
	mu        sync.Mutex
	resources []media.Resource
	err       error
}

func (f *fakeSearcher) Search(_ context.Context, _ media.SearchRequest) (*media.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &media.SearchResponse{TotalCount: len(f.resources), Resources: f.resources}, nil
}

func (f *fakeSearcher) set(resources []media.Resource, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources = resources
	f.err = err
}

// --- Стенд API ---

type apiFixture struct {
	docs     *memDocRepo
	users    *memUserRepo
	searcher *fakeSearcher
	router   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	docs := &memDocRepo{docs: make(map[string]*model.Document)}
	users := &memUserRepo{users: make(map[string]*model.User)}
	searcher := &fakeSearcher{resources: []media.Resource{{PublicID: "reals/summer-01", ResourceType: "video"}}}
	logger := testLogger()

	locker := service.NewLocalLocker()
	resolver := service.NewResolver(searcher, "https://res.cloudinary.com", "demo", logger)
	docSvc := service.NewDocumentService(schema.Default(), docs, service.NewCacheService(100, time.Minute), resolver, locker, logger)
	docSvc.SetRetryPolicy(service.RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		Sleep:     func(context.Context, time.Duration) error { return nil },
	})

	h := NewAPIHandler(
		NewHealthHandler(nil, nil, nil),
		docSvc,
		service.NewProcessingService(docSvc, resolver, locker, logger),
		service.NewWritebackService(docSvc, testSecret, logger),
		service.NewUserService(users, logger),
		logger,
	)

	router := routes.HandlerWithOptions(h, routes.ChiServerOptions{
		BaseRouter:       chi.NewRouter(),
		ErrorHandlerFunc: ParamErrorHandler,
	})

	return &apiFixture{docs: docs, users: users, searcher: searcher, router: router}
}

// do выполняет запрос от имени роли (пустая роль — анонимный запрос).
func (f *apiFixture) do(t *testing.T, role, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	session := access.Anonymous()
	if role != "" {
		session = access.NewSession("user-"+role, role, role+"@example.com", role, nil)
	}
	req = req.WithContext(access.WithSession(req.Context(), session))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// decode разбирает JSON-ответ.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("ответ не JSON: %v (тело: %s)", err, rec.Body.String())
	}
	return v
}

// errorCode возвращает error.code из тела ответа ошибки.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, rec)
	return body.Error.Code
}

func realData(tags string) map[string]any {
	return map[string]any{
		"title":                     "Летняя коллекция",
		"slug":                      "summer",
		"status":                    model.StatusDraft,
		model.FieldTags:             tags,
		model.FieldProcessingStatus: model.ProcessingIdle,
	}
}
