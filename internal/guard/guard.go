// Package guard gates navigation on session state: unauthenticated users
// are sent to the landing route, authenticated users without the required
// role to the unauthorized route.
package guard

import "github.com/sajilostore/storefront/internal/model"

// Well-known redirect targets.
const (
	RouteLanding      = "/"
	RouteUnauthorized = "/unauthorized"
	RouteCart         = "/cart"
)

// Session is the slice of session state the guard reads.
type Session interface {
	IsAuthenticated() bool
	Role() (string, bool)
}

// Decision is the outcome of evaluating a guarded navigation.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard evaluates navigation attempts against the current session. It is
// re-evaluated on every navigation, so a logout takes effect on the next
// screen change.
type Guard struct {
	session Session
}

// New creates a guard over the given session.
func New(session Session) *Guard {
	return &Guard{session: session}
}

// Check evaluates the two gates in order: authentication first, then the
// role requirement. An empty requiredRole only requires authentication.
func (g *Guard) Check(requiredRole string) Decision {
	if !g.session.IsAuthenticated() {
		return Decision{RedirectTo: RouteLanding}
	}
	if requiredRole != "" {
		role, ok := g.session.Role()
		if !ok || role != requiredRole {
			return Decision{RedirectTo: RouteUnauthorized}
		}
	}
	return Decision{Allow: true}
}

// CheckAdmin evaluates an admin-only navigation.
func (g *Guard) CheckAdmin() Decision {
	return g.Check(model.RoleAdmin)
}
