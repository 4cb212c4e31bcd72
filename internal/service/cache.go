// cache.go — LRU-кэш документов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sitecms/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cms_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш документов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cms_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша документов.",
	})
)

// CacheService — LRU-кэш документов с автоматическим TTL.
// Кэш локален для экземпляра; запись через этот экземпляр инвалидирует ключ.
type CacheService struct {
	cache *expirable.LRU[string, *model.Document]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	return &CacheService{cache: expirable.NewLRU[string, *model.Document](maxSize, nil, ttl)}
}

func cacheKey(collection, id string) string {
	return collection + "/" + id
}

// Get возвращает копию документа из кэша.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(collection, id string) (*model.Document, bool) {
	val, ok := c.cache.Get(cacheKey(collection, id))
	if ok {
		cacheHitsTotal.Inc()
		return val.Clone(), true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет документ в кэше.
func (c *CacheService) Set(doc *model.Document) {
	c.cache.Add(cacheKey(doc.Collection, doc.ID), doc.Clone())
}

// Delete удаляет документ из кэша (инвалидация при записи).
func (c *CacheService) Delete(collection, id string) {
	c.cache.Remove(cacheKey(collection, id))
}

// Len возвращает количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
