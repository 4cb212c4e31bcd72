// Пакет model — доменные модели sitecms.
package model

import "time"

// Document — документ коллекции.
// Хранится в таблице documents, значения полей — в JSONB-колонке data.
type Document struct {
	// ID — UUID документа (назначается хранилищем при создании)
	ID string `json:"id"`
	// Collection — slug коллекции (pages, reals, ...)
	Collection string `json:"collection"`
	// Site — ключ сайта; пустой для глобальных документов
	Site string `json:"site,omitempty"`
	// Data — значения полей, валидированные по схеме коллекции
	Data map[string]any `json:"data"`
	// Version — номер версии, увеличивается при каждой записи
	Version int64 `json:"version"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updatedAt"`
}

// String возвращает строковое значение поля или пустую строку.
func (d *Document) String(field string) string {
	if d == nil || d.Data == nil {
		return ""
	}
	s, _ := d.Data[field].(string)
	return s
}

// Bool возвращает булево значение поля (false, если поле отсутствует).
func (d *Document) Bool(field string) bool {
	if d == nil || d.Data == nil {
		return false
	}
	b, _ := d.Data[field].(bool)
	return b
}

// Clone возвращает копию документа с неглубокой копией Data.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Data = make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		c.Data[k] = v
	}
	return &c
}

// Статусы публикации.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)
