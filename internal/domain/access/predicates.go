package access

import "context"

// Predicate — предикат доступа к операции записи.
type Predicate func(ctx context.Context, s *Session) bool

// ReadScope — результат предиката чтения.
type ReadScope int

const (
	// ReadDenied — чтение запрещено.
	ReadDenied ReadScope = iota
	// ReadPublished — доступны только опубликованные документы.
	ReadPublished
	// ReadAll — доступны все документы.
	ReadAll
)

// ReadPredicate — предикат доступа к чтению.
type ReadPredicate func(ctx context.Context, s *Session) ReadScope

// Policy — набор предикатов коллекции.
type Policy struct {
	Read   ReadPredicate
	Create Predicate
	Update Predicate
	Delete Predicate
}

// Roles пропускает системный вызов, admin и перечисленные роли.
func Roles(roles ...string) Predicate {
	return func(ctx context.Context, s *Session) bool {
		if s.IsSystem() {
			return true
		}
		return s.HasAnyRole(ctx, append([]string{RoleAdmin}, roles...)...)
	}
}

// AdminOnly пропускает только системный вызов и admin.
func AdminOnly() Predicate {
	return Roles()
}

// PublicRead разрешает чтение всем.
func PublicRead() ReadPredicate {
	return func(context.Context, *Session) ReadScope {
		return ReadAll
	}
}

// PublishedOrAuthenticated: любой редактор читает всё, анонимный — только опубликованное.
func PublishedOrAuthenticated() ReadPredicate {
	return func(ctx context.Context, s *Session) ReadScope {
		if s.IsSystem() || s.Role(ctx) != "" {
			return ReadAll
		}
		return ReadPublished
	}
}

// ReadRoles разрешает чтение только системному вызову, admin и перечисленным ролям.
func ReadRoles(roles ...string) ReadPredicate {
	allowed := Roles(roles...)
	return func(ctx context.Context, s *Session) ReadScope {
		if allowed(ctx, s) {
			return ReadAll
		}
		return ReadDenied
	}
}
