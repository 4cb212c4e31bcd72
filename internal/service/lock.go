// lock.go — блокировка обработки документа.
// Не даёт хуку и ручному запуску одновременно обрабатывать один документ.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker — неблокирующая именованная блокировка.
type Locker interface {
	// TryLock захватывает блокировку key. ok=false — блокировка занята.
	// release освобождает блокировку; безопасно вызывать повторно.
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

// --- In-process ---

// LocalLocker — блокировка в памяти процесса (один экземпляр сервиса).
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker создаёт in-process блокировку.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// TryLock захватывает блокировку без ожидания.
func (l *LocalLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}
	return release, true, nil
}

// --- Redis ---

// releaseScript удаляет ключ только если он принадлежит владельцу токена.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker — распределённая блокировка (SET NX PX) для нескольких экземпляров.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisLocker подключается к Redis по URL и проверяет доступность.
func NewRedisLocker(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("разбор REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("подключение к Redis: %w", err)
	}

	return NewRedisLockerWithClient(client, ttl, logger), nil
}

// NewRedisLockerWithClient создаёт блокировку поверх существующего клиента.
func NewRedisLockerWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		prefix: "sitecms:lock:",
		logger: logger.With(slog.String("component", "redis_lock")),
	}
}

// TryLock захватывает блокировку без ожидания. По истечении TTL блокировка снимается сама.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("захват блокировки %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Контекст запроса мог быть отменён — освобождаем независимо от него
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{fullKey}, token).Err(); err != nil {
				l.logger.Warn("Ошибка освобождения блокировки",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		})
	}
	return release, true, nil
}

// Ping проверяет доступность Redis.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// CheckReady — readiness-проверка Redis для /health/ready.
// Недоступный Redis — degraded: хук пропускает разрешение, CRUD продолжает работать.
func (l *RedisLocker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.Ping(ctx); err != nil {
		return "degraded", "Redis недоступен: " + err.Error()
	}
	return "ok", ""
}
