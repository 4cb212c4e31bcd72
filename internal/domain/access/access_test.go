package access

import (
	"context"
	"errors"
	"testing"
)

func TestHighestRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  string
	}{
		{name: "пустой набор", roles: nil, want: ""},
		{name: "один designer", roles: []string{RoleDesigner}, want: RoleDesigner},
		{name: "editor + designer", roles: []string{RoleDesigner, RoleEditor}, want: RoleEditor},
		{name: "admin побеждает", roles: []string{RoleEditor, RoleAdmin, RoleDesigner}, want: RoleAdmin},
		{name: "неизвестная роль игнорируется", roles: []string{"guest"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HighestRole(tt.roles); got != tt.want {
				t.Errorf("HighestRole(%v) = %q, хотели %q", tt.roles, got, tt.want)
			}
		})
	}
}

func TestMapGroupsToRole(t *testing.T) {
	m := GroupMapping{
		Admin:    []string{"cms-admins"},
		Editor:   []string{"cms-editors"},
		Designer: []string{"cms-designers"},
	}

	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{name: "нет групп", groups: nil, want: ""},
		{name: "чужая группа", groups: []string{"marketing"}, want: ""},
		{name: "designer", groups: []string{"cms-designers"}, want: RoleDesigner},
		{name: "editor и designer", groups: []string{"cms-designers", "cms-editors"}, want: RoleEditor},
		{name: "admin", groups: []string{"cms-editors", "cms-admins"}, want: RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapGroupsToRole(tt.groups, m); got != tt.want {
				t.Errorf("MapGroupsToRole(%v) = %q, хотели %q", tt.groups, got, tt.want)
			}
		})
	}
}

func TestSession_RoleCachedForRequest(t *testing.T) {
	stored := map[string]string{"user-1": RoleEditor}
	calls := 0
	lookup := func(_ context.Context, subject string) (string, error) {
		calls++
		return stored[subject], nil
	}

	s := NewSession("user-1", "jane", "jane@example.com", RoleDesigner, lookup)
	ctx := context.Background()

	if got := s.Role(ctx); got != RoleEditor {
		t.Fatalf("Role() = %q, хотели %q", got, RoleEditor)
	}

	// Запись пользователя меняется посреди запроса — роль сессии не меняется
	stored["user-1"] = RoleAdmin

	if got := s.Role(ctx); got != RoleEditor {
		t.Errorf("повторный Role() = %q, хотели закэшированное %q", got, RoleEditor)
	}
	if calls != 1 {
		t.Errorf("lookup вызван %d раз, хотели 1", calls)
	}
}

func TestSession_RoleFallbackToIdP(t *testing.T) {
	tests := []struct {
		name   string
		lookup RoleLookup
		want   string
	}{
		{
			name:   "нет lookup",
			lookup: nil,
			want:   RoleDesigner,
		},
		{
			name:   "нет записи в БД",
			lookup: func(context.Context, string) (string, error) { return "", nil },
			want:   RoleDesigner,
		},
		{
			name:   "ошибка БД",
			lookup: func(context.Context, string) (string, error) { return "", errors.New("db down") },
			want:   RoleDesigner,
		},
		{
			name:   "некорректная роль в БД",
			lookup: func(context.Context, string) (string, error) { return "owner", nil },
			want:   RoleDesigner,
		},
		{
			name:   "роль из БД имеет приоритет",
			lookup: func(context.Context, string) (string, error) { return RoleAdmin, nil },
			want:   RoleAdmin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("user-2", "bob", "", RoleDesigner, tt.lookup)
			if got := s.Role(context.Background()); got != tt.want {
				t.Errorf("Role() = %q, хотели %q", got, tt.want)
			}
		})
	}
}

func TestSession_AnonymousAndSystem(t *testing.T) {
	ctx := context.Background()

	anon := Anonymous()
	if anon.Authenticated() {
		t.Error("анонимная сессия не должна быть аутентифицирована")
	}
	if anon.Role(ctx) != "" {
		t.Errorf("роль анонимной сессии = %q, хотели пустую", anon.Role(ctx))
	}

	sys := System()
	if !sys.Authenticated() || !sys.IsSystem() {
		t.Error("системная сессия должна быть аутентифицирована")
	}
	if sys.Role(ctx) != RoleAdmin {
		t.Errorf("роль системной сессии = %q, хотели admin", sys.Role(ctx))
	}
}

func TestFromContext(t *testing.T) {
	if s := FromContext(context.Background()); s == nil || s.Authenticated() {
		t.Error("без сессии в контексте ожидается анонимная сессия")
	}

	s := NewSession("user-3", "eve", "", RoleEditor, nil)
	ctx := WithSession(context.Background(), s)
	if got := FromContext(ctx); got != s {
		t.Error("FromContext вернул другую сессию")
	}
}

func TestPredicates(t *testing.T) {
	ctx := context.Background()
	session := func(role string) *Session {
		if role == "" {
			return Anonymous()
		}
		return NewSession("u-"+role, role, "", role, nil)
	}

	editorsAndDesigners := Roles(RoleEditor, RoleDesigner)
	adminOnly := AdminOnly()

	tests := []struct {
		role          string
		wantWrite     bool
		wantAdminOnly bool
		wantRead      ReadScope
	}{
		{role: "", wantWrite: false, wantAdminOnly: false, wantRead: ReadPublished},
		{role: RoleDesigner, wantWrite: true, wantAdminOnly: false, wantRead: ReadAll},
		{role: RoleEditor, wantWrite: true, wantAdminOnly: false, wantRead: ReadAll},
		{role: RoleAdmin, wantWrite: true, wantAdminOnly: true, wantRead: ReadAll},
	}

	for _, tt := range tests {
		t.Run("role="+tt.role, func(t *testing.T) {
			s := session(tt.role)
			if got := editorsAndDesigners(ctx, s); got != tt.wantWrite {
				t.Errorf("Roles(editor, designer) = %v, хотели %v", got, tt.wantWrite)
			}
			if got := adminOnly(ctx, s); got != tt.wantAdminOnly {
				t.Errorf("AdminOnly() = %v, хотели %v", got, tt.wantAdminOnly)
			}
			if got := PublishedOrAuthenticated()(ctx, s); got != tt.wantRead {
				t.Errorf("PublishedOrAuthenticated() = %v, хотели %v", got, tt.wantRead)
			}
		})
	}

	if !adminOnly(ctx, System()) {
		t.Error("системная сессия должна проходить AdminOnly")
	}
	if ReadRoles()(ctx, Anonymous()) != ReadDenied {
		t.Error("ReadRoles() должен запрещать анонимное чтение")
	}
	if PublicRead()(ctx, Anonymous()) != ReadAll {
		t.Error("PublicRead() должен разрешать чтение всем")
	}
}

func TestSession_CachedRole(t *testing.T) {
	ctx := context.Background()
	s := NewSession("user-4", "ann", "", RoleDesigner, func(context.Context, string) (string, error) {
		return RoleEditor, nil
	})

	if _, ok := s.CachedRole(); ok {
		t.Error("до первого Role() роль не должна считаться вычисленной")
	}
	s.Role(ctx)
	if role, ok := s.CachedRole(); !ok || role != RoleEditor {
		t.Errorf("CachedRole() = %q, %v, хотели %q, true", role, ok, RoleEditor)
	}

	if role, ok := System().CachedRole(); !ok || role != RoleAdmin {
		t.Errorf("CachedRole() системной сессии = %q, %v", role, ok)
	}
	if role, ok := Anonymous().CachedRole(); !ok || role != "" {
		t.Errorf("CachedRole() анонимной сессии = %q, %v", role, ok)
	}
}
