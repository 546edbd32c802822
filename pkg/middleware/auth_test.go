package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldatlas/console/pkg/auth"
)

type fakeAuthenticator struct {
	principal *auth.Principal
	err       error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	return f.principal, f.err
}

func TestAuthMiddleware_Handler(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid session sets principal", func(t *testing.T) {
		principal := &auth.Principal{UserID: "user-1", GlobalRole: auth.GlobalRoleUser}
		m := NewAuthMiddleware(&fakeAuthenticator{principal: principal}, false)

		var seen *auth.Principal
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetPrincipal(r)
			w.WriteHeader(http.StatusOK)
		}))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer some-session-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if seen == nil || seen.UserID != "user-1" {
			t.Errorf("principal = %+v, want user-1", seen)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeAuthenticator{}, false)
		handler := m.Handler(okHandler)

		r := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("missing header allowed when optional", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeAuthenticator{}, true)
		handler := m.Handler(okHandler)

		r := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("invalid session rejected", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeAuthenticator{err: fmt.Errorf("bad token")}, false)
		handler := m.Handler(okHandler)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("invalid session rejected even when optional", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeAuthenticator{err: fmt.Errorf("bad token")}, true)
		handler := m.Handler(okHandler)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestGetPrincipal(t *testing.T) {
	t.Run("missing principal returns nil", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		if got := GetPrincipal(r); got != nil {
			t.Errorf("GetPrincipal() = %+v, want nil", got)
		}
	})

	t.Run("returns stored principal", func(t *testing.T) {
		principal := &auth.Principal{UserID: "user-1"}
		r := withPrincipalForTest(httptest.NewRequest("GET", "/", nil), principal)
		if got := GetPrincipal(r); got != principal {
			t.Errorf("GetPrincipal() = %+v, want %+v", got, principal)
		}
	})
}

func TestRequireSuperAdmin(t *testing.T) {
	handler := RequireSuperAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("super admin passes", func(t *testing.T) {
		principal := &auth.Principal{UserID: "user-1", GlobalRole: auth.GlobalRoleSuperAdmin}
		r := withPrincipalForTest(httptest.NewRequest("GET", "/", nil), principal)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("regular user forbidden", func(t *testing.T) {
		principal := &auth.Principal{UserID: "user-1", GlobalRole: auth.GlobalRoleUser}
		r := withPrincipalForTest(httptest.NewRequest("GET", "/", nil), principal)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("anonymous forbidden", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})
}
