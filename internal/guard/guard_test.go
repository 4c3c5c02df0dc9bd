package guard

import "testing"

type fakeSession struct {
	authenticated bool
	role          string
}

func (f fakeSession) IsAuthenticated() bool { return f.authenticated }

func (f fakeSession) Role() (string, bool) {
	if f.role == "" {
		return "", false
	}
	return f.role, true
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name         string
		session      fakeSession
		requiredRole string
		wantAllow    bool
		wantRedirect string
	}{
		{
			name:         "unauthenticated goes to landing",
			session:      fakeSession{},
			requiredRole: "Admin",
			wantRedirect: RouteLanding,
		},
		{
			name:         "authenticated without role goes to unauthorized",
			session:      fakeSession{authenticated: true, role: "User"},
			requiredRole: "Admin",
			wantRedirect: RouteUnauthorized,
		},
		{
			name:         "authenticated with role passes",
			session:      fakeSession{authenticated: true, role: "Admin"},
			requiredRole: "Admin",
			wantAllow:    true,
		},
		{
			name:      "no role requirement only needs a session",
			session:   fakeSession{authenticated: true},
			wantAllow: true,
		},
		{
			name:         "auth gate wins over role gate",
			session:      fakeSession{authenticated: false, role: "Admin"},
			requiredRole: "Admin",
			wantRedirect: RouteLanding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.session).Check(tt.requiredRole)
			if d.Allow != tt.wantAllow {
				t.Fatalf("Allow = %v, want %v", d.Allow, tt.wantAllow)
			}
			if d.RedirectTo != tt.wantRedirect {
				t.Fatalf("RedirectTo = %q, want %q", d.RedirectTo, tt.wantRedirect)
			}
		})
	}
}

func TestCheckAdmin(t *testing.T) {
	if d := New(fakeSession{authenticated: true, role: "Admin"}).CheckAdmin(); !d.Allow {
		t.Fatalf("admin session should pass, got redirect to %q", d.RedirectTo)
	}
	if d := New(fakeSession{authenticated: true, role: "User"}).CheckAdmin(); d.RedirectTo != RouteUnauthorized {
		t.Fatalf("non-admin should go to %q, got %q", RouteUnauthorized, d.RedirectTo)
	}
}
