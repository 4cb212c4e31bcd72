package model

import "time"

// User — редакционный пользователь CMS.
// Хранится в таблице users; роль из БД имеет приоритет над ролью из групп IdP.
type User struct {
	// ID — UUID записи
	ID string `json:"id"`
	// Subject — sub из JWT
	Subject string `json:"subject"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// Name — отображаемое имя
	Name string `json:"name"`
	// Role — роль (admin, editor, designer)
	Role string `json:"role"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updatedAt"`
}
