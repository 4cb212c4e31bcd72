// resolver.go — разрешение тегов reals в видео-ассет медиа-хранилища.
// Resolve не пишет в хранилище: запись производных полей выполняет
// DocumentService.PersistDerived.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sitecms/internal/domain/model"
	"github.com/bigkaa/sitecms/internal/media"
	"github.com/bigkaa/sitecms/internal/repository"
)

// Prometheus-метрики разрешения тегов.
var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cms_resolve_total",
		Help: "Количество разрешений тегов по результату.",
	}, []string{"result"})

	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cms_resolve_duration_seconds",
		Help:    "Длительность запроса к медиа-хранилищу при разрешении тегов.",
		Buckets: prometheus.DefBuckets,
	})

	persistAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cms_persist_attempts_total",
		Help: "Попытки записи производных полей по результату.",
	}, []string{"result"})
)

// MediaSearcher — поиск ресурсов в медиа-хранилище.
type MediaSearcher interface {
	Search(ctx context.Context, req media.SearchRequest) (*media.SearchResponse, error)
}

// Resolver — разрешение тегов в производные поля reals.
type Resolver struct {
	media       MediaSearcher
	deliveryURL string
	cloudName   string
	logger      *slog.Logger
}

// NewResolver создаёт Resolver.
func NewResolver(searcher MediaSearcher, deliveryURL, cloudName string, logger *slog.Logger) *Resolver {
	return &Resolver{
		media:       searcher,
		deliveryURL: deliveryURL,
		cloudName:   cloudName,
		logger:      logger.With(slog.String("component", "resolver")),
	}
}

// ParseTags разбивает строку тегов по запятым, обрезает пробелы и отбрасывает пустые.
func ParseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

var expressionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// BuildExpression строит выражение поиска: все теги через AND и только видео.
func BuildExpression(tags []string) string {
	clauses := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		clauses = append(clauses, `tags="`+expressionEscaper.Replace(t)+`"`)
	}
	clauses = append(clauses, `resource_type="video"`)
	return strings.Join(clauses, " AND ")
}

// Resolve находит самое новое видео со всеми тегами и строит производные поля.
// Ошибки: ErrNoTags, ErrAssetNotFound, ErrMediaUnavailable.
func (r *Resolver) Resolve(ctx context.Context, rawTags string) (*model.DerivedFields, error) {
	tags := ParseTags(rawTags)
	if len(tags) == 0 {
		resolveTotal.WithLabelValues("no_tags").Inc()
		return nil, ErrNoTags
	}

	expression := BuildExpression(tags)

	start := time.Now()
	resp, err := r.media.Search(ctx, media.SearchRequest{
		Expression: expression,
		SortBy:     []media.SortClause{{"created_at": "desc"}},
		MaxResults: 1,
	})
	resolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		resolveTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}

	if len(resp.Resources) == 0 || resp.Resources[0].PublicID == "" {
		resolveTotal.WithLabelValues("not_found").Inc()
		r.logger.Info("Видео по тегам не найдено",
			slog.String("expression", expression),
		)
		return nil, ErrAssetNotFound
	}

	publicID := resp.Resources[0].PublicID
	resolveTotal.WithLabelValues("found").Inc()
	r.logger.Debug("Видео по тегам найдено",
		slog.String("expression", expression),
		slog.String("public_id", publicID),
	)

	return &model.DerivedFields{
		PublicID:   publicID,
		PosterID:   publicID,
		Thumbnails: media.ThumbnailURLs(r.deliveryURL, r.cloudName, publicID),
	}, nil
}

// --- Повтор при конфликте записи ---

// SleepFunc — ожидание между попытками (подменяется в тестах).
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepCtx ждёт d или отмены контекста.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy — повтор операции при repository.ErrWriteConflict.
// Задержка перед попыткой n+1 равна BaseDelay × n.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	Sleep     SleepFunc
}

// DefaultRetryPolicy — 3 попытки с задержками 100 и 200 мс.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond, Sleep: sleepCtx}
}

// Do выполняет fn, повторяя только при конфликте записи.
// После исчерпания попыток возвращает последнюю ошибку конфликта.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			persistAttemptsTotal.WithLabelValues("ok").Inc()
			return nil
		}
		if !errors.Is(err, repository.ErrWriteConflict) {
			persistAttemptsTotal.WithLabelValues("error").Inc()
			return err
		}
		persistAttemptsTotal.WithLabelValues("conflict").Inc()
		if attempt == attempts {
			break
		}
		if sleepErr := sleep(ctx, p.BaseDelay*time.Duration(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}
