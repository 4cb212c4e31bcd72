package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/media"
	"github.com/bigkaa/sitecms/internal/repository"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- In-memory DocumentRepository ---

type memDocRepo struct {
	mu   sync.Mutex
	docs map[string]*model.Document

	// patchConflicts — сколько ближайших PatchFields вернут ErrWriteConflict
	patchConflicts int
	patchCalls     int
	patches        []map[string]any
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{docs: make(map[string]*model.Document)}
}

func (r *memDocRepo) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slug, ok := doc.Data["slug"]; ok {
		for _, d := range r.docs {
			if d.Collection == doc.Collection && d.Site == doc.Site && d.Data["slug"] == slug {
				return fmt.Errorf("%w: slug", repository.ErrConflict)
			}
		}
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Version = 1
	doc.CreatedAt = time.Now()
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

func (r *memDocRepo) match(d *model.Document, f repository.DocumentFilters) bool {
	if d.Collection != f.Collection {
		return false
	}
	if f.Site != nil && d.Site != *f.Site {
		return false
	}
	if f.Status != nil && d.String("status") != *f.Status {
		return false
	}
	if f.Slug != nil && d.String("slug") != *f.Slug {
		return false
	}
	return true
}

func (r *memDocRepo) List(_ context.Context, f repository.DocumentFilters, limit, offset int) ([]*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Document
	for _, d := range r.docs {
		if r.match(d, f) {
			out = append(out, d.Clone())
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memDocRepo) Count(_ context.Context, f repository.DocumentFilters) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, d := range r.docs {
		if r.match(d, f) {
			n++
		}
	}
	return n, nil
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
	doc.UpdatedAt = time.Now()
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *memDocRepo) PatchFields(_ context.Context, collection, id string, fields map[string]any) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.patchCalls++
	if r.patchConflicts > 0 {
		r.patchConflicts--
		return nil, fmt.Errorf("%w: 55P03", repository.ErrWriteConflict)
	}

	cur, ok := r.docs[id]
	if !ok || cur.Collection != collection {
		return nil, repository.ErrNotFound
	}
	r.patches = append(r.patches, fields)
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

// put сохраняет документ напрямую (подготовка данных теста).
func (r *memDocRepo) put(doc *model.Document) *model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	r.docs[doc.ID] = doc.Clone()
	return doc
}

// raw возвращает хранимый документ без проверок.
func (r *memDocRepo) raw(id string) *model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id].Clone()
}

// --- Поисковый API медиа-хранилища ---

type fakeSearcher struct {
	mu        sync.Mutex
	resources []media.Resource
	err       error
	requests  []media.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req media.SearchRequest) (*media.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &media.SearchResponse{TotalCount: len(f.resources), Resources: f.resources}, nil
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// --- Сессии ---

func withRole(ctx context.Context, role string) context.Context {
	if role == "" {
		return access.WithSession(ctx, access.Anonymous())
	}
	return access.WithSession(ctx, access.NewSession("user-"+role, role, "", role, nil))
}

// noSleep записывает задержки вместо ожидания.
type noSleep struct {
	delays []time.Duration
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.delays = append(n.delays, d)
	return nil
}
