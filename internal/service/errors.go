// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс или параллельное изменение).
	ErrConflict = errors.New("конфликт — ресурс уже существует или изменён параллельно")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — недостаточно прав для операции.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrUnknownCollection — коллекция не зарегистрирована.
	ErrUnknownCollection = errors.New("неизвестная коллекция")
	// ErrInvalidRole — некорректная роль.
	ErrInvalidRole = errors.New("некорректная роль: допустимые значения — admin, editor, designer")
	// ErrNoTags — у документа нет тегов для поиска ассета.
	ErrNoTags = errors.New("у документа нет тегов")
	// ErrAssetNotFound — по тегам не найдено ни одного видео.
	ErrAssetNotFound = errors.New("видео по тегам не найдено")
	// ErrBusy — обработка документа уже выполняется.
	ErrBusy = errors.New("обработка документа уже выполняется")
	// ErrMediaUnavailable — медиа-хранилище недоступно.
	ErrMediaUnavailable = errors.New("медиа-хранилище недоступно")
)
