// Package session holds the authenticated-user state: the persisted
// bearer token, the identity decoded from it, and the profile fetched
// once authenticated.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sajilostore/storefront/internal/logging"
	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/storage"
)

// tokenKey is the durable-storage key the backend contract names.
const tokenKey = storage.KeyToken

// ErrInvalidSessionToken marks a malformed or expired token. Login and
// startup restore degrade to a logged-out state instead of failing the
// whole client.
var ErrInvalidSessionToken = errors.New("session: invalid token")

// ErrNotAuthenticated is returned by profile access without a session.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Identity is the subject decoded from the token. The signature is not
// verified client-side; the backend re-checks it on every call.
type Identity struct {
	Name string
	Role string
}

// ProfileState is the dependent-fetch sub-state of an authenticated
// session.
type ProfileState int

const (
	ProfileNone ProfileState = iota
	ProfilePending
	ProfileReady
	ProfileFailed
)

func (s ProfileState) String() string {
	switch s {
	case ProfileNone:
		return "none"
	case ProfilePending:
		return "pending"
	case ProfileReady:
		return "ready"
	case ProfileFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProfileFetcher loads the authenticated user's profile detail.
type ProfileFetcher interface {
	Details(ctx context.Context) (*model.UserDetails, error)
}

// Store owns the session state. All mutation goes through Login, Logout
// and EnsureProfile; screens read but never write.
type Store struct {
	mu       sync.RWMutex
	storage  storage.Store
	profiles ProfileFetcher
	logger   *logging.Logger

	authenticated bool
	identity      *Identity
	profile       *model.UserDetails
	profileState  ProfileState
}

// New creates the session store and restores any persisted token. A
// malformed or expired persisted token is discarded and the store starts
// logged out.
func New(st storage.Store, profiles ProfileFetcher, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Store{storage: st, profiles: profiles, logger: logger}
	s.restore()
	return s
}

func (s *Store) restore() {
	data, err := s.storage.Get(tokenKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WithError(err).Warn("reading persisted token failed")
		}
		return
	}

	identity, err := decodeToken(string(data))
	if err != nil {
		s.logger.WithError(err).Warn("discarding persisted token")
		if derr := s.storage.Delete(tokenKey); derr != nil {
			s.logger.WithError(derr).Warn("clearing persisted token failed")
		}
		return
	}

	s.authenticated = true
	s.identity = identity
	s.profileState = ProfilePending
}

// Login persists the token and populates the identity decoded from it.
// An undecodable token is rejected before anything is persisted.
func (s *Store) Login(token string) error {
	identity, err := decodeToken(token)
	if err != nil {
		return err
	}
	if err := s.storage.Put(tokenKey, []byte(token)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.identity = identity
	s.profile = nil
	s.profileState = ProfilePending
	return nil
}

// Logout clears the persisted token and all in-memory session state.
func (s *Store) Logout() error {
	if err := s.storage.Delete(tokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.identity = nil
	s.profile = nil
	s.profileState = ProfileNone
	return nil
}

// Token returns the persisted bearer token. Reading through storage keeps
// the authenticated-iff-token-present invariant observable.
func (s *Store) Token() (string, bool) {
	data, err := s.storage.Get(tokenKey)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// IsAuthenticated reports whether a session is active.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Identity returns the decoded token identity.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Role returns the session's role, if authenticated.
func (s *Store) Role() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated || s.identity == nil {
		return "", false
	}
	return s.identity.Role, true
}

// Profile returns the fetched profile and its sub-state. Consumers that
// need profile-derived defaults branch on the state instead of assuming
// availability.
func (s *Store) Profile() (*model.UserDetails, ProfileState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.profileState
}

// EnsureProfile fetches the profile if it is not ready yet. Only valid
// while authenticated; a failed fetch leaves the sub-state Failed and can
// be retried.
func (s *Store) EnsureProfile(ctx context.Context) (*model.UserDetails, error) {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	if s.profileState == ProfileReady && s.profile != nil {
		p := s.profile
		s.mu.Unlock()
		return p, nil
	}
	s.profileState = ProfilePending
	s.mu.Unlock()

	if s.profiles == nil {
		s.mu.Lock()
		s.profileState = ProfileFailed
		s.mu.Unlock()
		return nil, fmt.Errorf("no profile fetcher configured")
	}

	details, err := s.profiles.Details(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		// Logged out while the fetch was in flight; discard the result.
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		s.profileState = ProfileFailed
		return nil, err
	}
	s.profile = details
	s.profileState = ProfileReady
	return details, nil
}

// decodeToken extracts name and role from the signed token without
// verifying the signature. Expired tokens are rejected.
func decodeToken(raw string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return nil, fmt.Errorf("%w: expired", ErrInvalidSessionToken)
	}

	identity := &Identity{}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	return identity, nil
}
