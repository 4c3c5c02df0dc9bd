package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/storage"
)

func mintToken(t *testing.T, name, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"name": name, "role": role}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type stubProfiles struct {
	details *model.UserDetails
	err     error
	calls   int
}

func (s *stubProfiles) Details(ctx context.Context) (*model.UserDetails, error) {
	s.calls++
	return s.details, s.err
}

func TestLoginPersistsTokenAndDecodesIdentity(t *testing.T) {
	st := storage.NewMemStore()
	s := New(st, nil, nil)

	token := mintToken(t, "Asha", "User", time.Now().Add(time.Hour))
	if err := s.Login(token); err != nil {
		t.Fatal(err)
	}

	if !s.IsAuthenticated() {
		t.Fatal("expected authenticated after login")
	}
	identity, ok := s.Identity()
	if !ok || identity.Name != "Asha" || identity.Role != "User" {
		t.Fatalf("identity = %+v, ok=%v", identity, ok)
	}

	persisted, err := st.Get(storage.KeyToken)
	if err != nil {
		t.Fatalf("token not persisted: %v", err)
	}
	if string(persisted) != token {
		t.Fatal("persisted token differs from login token")
	}
}

func TestLoginRejectsGarbageWithoutPersisting(t *testing.T) {
	st := storage.NewMemStore()
	s := New(st, nil, nil)

	err := s.Login("not-a-token")
	if !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("err = %v, want ErrInvalidSessionToken", err)
	}
	if s.IsAuthenticated() {
		t.Fatal("must stay logged out after a bad token")
	}
	if _, err := st.Get(storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("bad token must not be persisted")
	}
}

func TestLoginRejectsExpiredToken(t *testing.T) {
	s := New(storage.NewMemStore(), nil, nil)

	token := mintToken(t, "Asha", "User", time.Now().Add(-time.Hour))
	if err := s.Login(token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("err = %v, want ErrInvalidSessionToken", err)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	st := storage.NewMemStore()
	s := New(st, nil, nil)

	if err := s.Login(mintToken(t, "Asha", "Admin", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := s.Logout(); err != nil {
		t.Fatal(err)
	}

	if s.IsAuthenticated() {
		t.Fatal("expected logged out")
	}
	if _, ok := s.Identity(); ok {
		t.Fatal("identity must be cleared")
	}
	if _, ok := s.Token(); ok {
		t.Fatal("token must be cleared from storage")
	}
	if _, state := s.Profile(); state != ProfileNone {
		t.Fatalf("profile state = %v, want none", state)
	}
}

func TestRestoreFromPersistedToken(t *testing.T) {
	st := storage.NewMemStore()
	token := mintToken(t, "Asha", "Admin", time.Now().Add(time.Hour))
	if err := st.Put(storage.KeyToken, []byte(token)); err != nil {
		t.Fatal(err)
	}

	s := New(st, nil, nil)
	if !s.IsAuthenticated() {
		t.Fatal("expected session restored from storage")
	}
	role, ok := s.Role()
	if !ok || role != "Admin" {
		t.Fatalf("role = %q, ok=%v", role, ok)
	}
}

func TestRestoreDiscardsExpiredToken(t *testing.T) {
	st := storage.NewMemStore()
	token := mintToken(t, "Asha", "User", time.Now().Add(-time.Minute))
	if err := st.Put(storage.KeyToken, []byte(token)); err != nil {
		t.Fatal(err)
	}

	s := New(st, nil, nil)
	if s.IsAuthenticated() {
		t.Fatal("expired token must leave the store logged out")
	}
	if _, err := st.Get(storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("expired token must be removed from storage")
	}
}

func TestEnsureProfile(t *testing.T) {
	st := storage.NewMemStore()
	profiles := &stubProfiles{details: &model.UserDetails{Username: "asha", Email: "a@example.com"}}
	s := New(st, profiles, nil)

	if _, err := s.EnsureProfile(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}

	if err := s.Login(mintToken(t, "Asha", "User", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	details, err := s.EnsureProfile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if details.Username != "asha" {
		t.Fatalf("details = %+v", details)
	}
	if _, state := s.Profile(); state != ProfileReady {
		t.Fatalf("profile state = %v, want ready", state)
	}

	// A ready profile is served without another fetch.
	if _, err := s.EnsureProfile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if profiles.calls != 1 {
		t.Fatalf("fetcher ran %d times, want 1", profiles.calls)
	}
}

func TestEnsureProfileFailureIsRetryable(t *testing.T) {
	profiles := &stubProfiles{err: errors.New("backend down")}
	s := New(storage.NewMemStore(), profiles, nil)

	if err := s.Login(mintToken(t, "Asha", "User", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	if _, err := s.EnsureProfile(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, state := s.Profile(); state != ProfileFailed {
		t.Fatalf("profile state = %v, want failed", state)
	}

	profiles.err = nil
	profiles.details = &model.UserDetails{Username: "asha"}
	if _, err := s.EnsureProfile(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if _, state := s.Profile(); state != ProfileReady {
		t.Fatalf("profile state = %v, want ready after retry", state)
	}
}
