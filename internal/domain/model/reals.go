package model

import "time"

// Поля коллекции reals, которые читает и пишет разрешение тегов.
const (
	FieldTags             = "tags"
	FieldPublicID         = "cloudinaryPublicId"
	FieldPosterID         = "posterPublicId"
	FieldThumbnails       = "thumbnails"
	FieldRegenerate       = "regenerate"
	FieldProcessingStatus = "processingStatus"
	FieldProcessingError  = "processingError"
	FieldProcessedAt      = "processedAt"
)

// Статусы ручной обработки (processingStatus).
const (
	ProcessingIdle       = "idle"
	ProcessingProcessing = "processing"
	ProcessingComplete   = "complete"
	ProcessingError      = "error"
)

// Имена размеров производных URL.
const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// DerivedFields — результат разрешения тегов: производные поля документа reals.
// Пишутся только процессом разрешения.
type DerivedFields struct {
	// PublicID — идентификатор видео-ассета во внешнем медиа-индексе
	PublicID string `json:"cloudinaryPublicId"`
	// PosterID — идентификатор постера (кадр видео адресуется тем же public id)
	PosterID string `json:"posterPublicId"`
	// Thumbnails — размер (small, medium, large) → URL
	Thumbnails map[string]string `json:"thumbnails"`
}

// Patch возвращает набор полей для записи в документ.
// Флаг regenerate сбрасывается в той же записи.
func (f *DerivedFields) Patch() map[string]any {
	thumbs := make(map[string]any, len(f.Thumbnails))
	for k, v := range f.Thumbnails {
		thumbs[k] = v
	}
	return map[string]any{
		FieldPublicID:   f.PublicID,
		FieldPosterID:   f.PosterID,
		FieldThumbnails: thumbs,
		FieldRegenerate: false,
	}
}

// ProcessingPatch возвращает набор полей статуса ручной обработки.
func ProcessingPatch(status, errMsg string, at time.Time) map[string]any {
	patch := map[string]any{
		FieldProcessingStatus: status,
		FieldProcessingError:  errMsg,
	}
	if status == ProcessingComplete || status == ProcessingError {
		patch[FieldProcessedAt] = at.UTC().Format(time.RFC3339)
	}
	return patch
}
