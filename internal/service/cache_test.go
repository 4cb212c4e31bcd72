package service

import (
	"testing"
	"time"

	"github.com/bigkaa/sitecms/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	doc := &model.Document{ID: "doc-1", Collection: "pages", Data: map[string]any{"title": "Главная"}}

	if _, ok := cache.Get("pages", "doc-1"); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	cache.Set(doc)
	got, ok := cache.Get("pages", "doc-1")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.String("title") != "Главная" {
		t.Errorf("title = %q, ожидался %q", got.String("title"), "Главная")
	}

	// Ключ включает коллекцию
	if _, ok := cache.Get("reals", "doc-1"); ok {
		t.Error("документ другой коллекции не должен находиться")
	}
}

// TestCacheService_ReturnsCopy — изменение полученного документа не меняет кэш.
func TestCacheService_ReturnsCopy(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set(&model.Document{ID: "doc-1", Collection: "pages", Data: map[string]any{"title": "A"}})

	got, _ := cache.Get("pages", "doc-1")
	got.Data["title"] = "B"

	again, _ := cache.Get("pages", "doc-1")
	if again.String("title") != "A" {
		t.Errorf("title = %q, кэш изменён через полученную копию", again.String("title"))
	}
}

// TestCacheService_Delete проверяет инвалидацию.
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set(&model.Document{ID: "doc-1", Collection: "pages"})

	cache.Delete("pages", "doc-1")
	if _, ok := cache.Get("pages", "doc-1"); ok {
		t.Error("ожидался cache miss после Delete")
	}
}

// TestCacheService_Eviction проверяет вытеснение при превышении размера.
func TestCacheService_Eviction(t *testing.T) {
	cache := NewCacheService(2, 5*time.Minute)
	cache.Set(&model.Document{ID: "1", Collection: "pages"})
	cache.Set(&model.Document{ID: "2", Collection: "pages"})
	cache.Set(&model.Document{ID: "3", Collection: "pages"})

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, ожидается 2", cache.Len())
	}
	if _, ok := cache.Get("pages", "1"); ok {
		t.Error("самая старая запись должна быть вытеснена")
	}
}

// TestCacheService_TTL проверяет истечение записей.
func TestCacheService_TTL(t *testing.T) {
	cache := NewCacheService(10, 50*time.Millisecond)
	cache.Set(&model.Document{ID: "1", Collection: "pages"})

	time.Sleep(150 * time.Millisecond)
	if _, ok := cache.Get("pages", "1"); ok {
		t.Error("запись должна истечь по TTL")
	}
}
