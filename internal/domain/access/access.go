// Пакет access — роли редакторов и предикаты доступа к коллекциям.
// Роль вызывающего определяется один раз на запрос: объект Session создаётся
// middleware на входе запроса и передаётся во все предикаты явно.
// Итоговая роль = роль из таблицы users, если она задана, иначе роль из групп IdP.
package access

import (
	"context"
	"sync"
	"sync/atomic"
)

// Роли редакторов.
const (
	RoleDesigner = "designer"
	RoleEditor   = "editor"
	RoleAdmin    = "admin"
)

// roleWeight — вес роли для выбора старшей роли из групп IdP.
var roleWeight = map[string]int{
	RoleDesigner: 1,
	RoleEditor:   2,
	RoleAdmin:    3,
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// HighestRole возвращает старшую роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if roleWeight[r] > roleWeight[highest] {
			highest = r
		}
	}
	return highest
}

// GroupMapping — группы IdP, дающие каждую из ролей.
type GroupMapping struct {
	Admin    []string
	Editor   []string
	Designer []string
}

// MapGroupsToRole определяет роль по группам IdP.
// Возвращает старшую роль из всех совпадений или пустую строку.
func MapGroupsToRole(groups []string, m GroupMapping) string {
	adminSet := toSet(m.Admin)
	editorSet := toSet(m.Editor)
	designerSet := toSet(m.Designer)

	var roles []string
	for _, g := range groups {
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
		if editorSet[g] {
			roles = append(roles, RoleEditor)
		}
		if designerSet[g] {
			roles = append(roles, RoleDesigner)
		}
	}
	return HighestRole(roles)
}

// RoleLookup загружает роль пользователя по subject (sub из JWT).
// Пустая строка без ошибки — у пользователя нет сохранённой роли.
type RoleLookup func(ctx context.Context, subject string) (string, error)

// Session — контекст доступа одного запроса.
// Роль загружается лениво при первом обращении и далее не меняется до конца запроса.
type Session struct {
	// Subject — sub из JWT (пустой для анонимного запроса)
	Subject string
	// Username — preferred_username из JWT
	Username string
	// Email — email из JWT
	Email string
	// IdpRole — роль, вычисленная из групп IdP
	IdpRole string

	system bool
	lookup RoleLookup

	once      sync.Once
	resolved  atomic.Bool
	role      string
	lookupErr error
}

// Anonymous возвращает сессию неаутентифицированного запроса.
func Anonymous() *Session {
	return &Session{}
}

// System возвращает сессию доверенного системного вызова.
// Проходит все предикаты доступа.
func System() *Session {
	return &Session{Subject: "system", Username: "system", system: true}
}

// NewSession создаёт сессию аутентифицированного пользователя.
// lookup может быть nil — тогда используется только роль из IdP.
func NewSession(subject, username, email, idpRole string, lookup RoleLookup) *Session {
	return &Session{
		Subject:  subject,
		Username: username,
		Email:    email,
		IdpRole:  idpRole,
		lookup:   lookup,
	}
}

// Authenticated сообщает, аутентифицирован ли вызывающий.
func (s *Session) Authenticated() bool {
	return s != nil && (s.system || s.Subject != "")
}

// IsSystem сообщает, является ли сессия системной.
func (s *Session) IsSystem() bool {
	return s != nil && s.system
}

// Role возвращает итоговую роль вызывающего.
// Загрузка выполняется не более одного раза за время жизни сессии.
func (s *Session) Role(ctx context.Context) string {
	if s == nil {
		return ""
	}
	if s.system {
		return RoleAdmin
	}
	if s.Subject == "" {
		return ""
	}
	s.once.Do(func() {
		s.role = s.IdpRole
		if s.lookup == nil {
			return
		}
		stored, err := s.lookup(ctx, s.Subject)
		if err != nil {
			s.lookupErr = err
			return
		}
		if IsValidRole(stored) {
			s.role = stored
		}
	})
	s.resolved.Store(true)
	return s.role
}

// CachedRole возвращает роль без загрузки: ok=false, если роль в этом запросе ещё не вычислялась.
func (s *Session) CachedRole() (role string, ok bool) {
	switch {
	case s == nil:
		return "", true
	case s.system:
		return RoleAdmin, true
	case s.Subject == "":
		return "", true
	case !s.resolved.Load():
		return "", false
	}
	return s.role, true
}

// LookupErr возвращает ошибку загрузки роли (если была).
func (s *Session) LookupErr() error {
	if s == nil {
		return nil
	}
	return s.lookupErr
}

// HasAnyRole проверяет, совпадает ли роль вызывающего с одной из указанных.
func (s *Session) HasAnyRole(ctx context.Context, roles ...string) bool {
	role := s.Role(ctx)
	if role == "" {
		return false
	}
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// --- Context helpers ---

type contextKey struct{}

// WithSession помещает сессию в контекст запроса.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext извлекает сессию из контекста.
// Если сессии нет — возвращает анонимную.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return Anonymous()
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
