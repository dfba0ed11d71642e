package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
)

func TestResolvePrefersEarlierCandidate(t *testing.T) {
	local := httptest.NewServer(identityHandler("m1"))
	defer local.Close()
	claimed := httptest.NewServer(identityHandler("m1"))
	defer claimed.Close()

	server := &models.Server{
		ID:                uuid.New(),
		Name:              "den",
		MachineIdentifier: "m1",
		URL:               claimed.URL,
		LocalURL:          local.URL,
	}

	conn, err := NewResolver(testClient("tok")).Resolve(context.Background(), server)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if conn.BaseURL != local.URL {
		t.Errorf("BaseURL = %q, want the local candidate %q", conn.BaseURL, local.URL)
	}
}

func TestResolveFallsBackPastDeadCandidate(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()
	live := httptest.NewServer(identityHandler("m1"))
	defer live.Close()

	server := &models.Server{
		Name:              "den",
		MachineIdentifier: "m1",
		URL:               live.URL,
		LocalURL:          dead.URL,
	}

	conn, err := NewResolver(testClient("tok")).Resolve(context.Background(), server)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if conn.BaseURL != live.URL {
		t.Errorf("BaseURL = %q, want %q", conn.BaseURL, live.URL)
	}
}

func TestResolveRejectsIdentityMismatch(t *testing.T) {
	impostor := httptest.NewServer(identityHandler("someone-else"))
	defer impostor.Close()

	server := &models.Server{
		Name:              "den",
		MachineIdentifier: "m1",
		URL:               impostor.URL,
	}

	_, err := NewResolver(testClient("tok")).Resolve(context.Background(), server)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("got %T: %v, want ConnectionError", err, err)
	}
}

func TestResolveNoCandidates(t *testing.T) {
	server := &models.Server{Name: "bare", MachineIdentifier: "m1"}
	_, err := NewResolver(testClient("tok")).Resolve(context.Background(), server)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("got %T: %v, want ConnectionError", err, err)
	}
}

func TestResolveCachesConnection(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		identityHandler("m1")(w, r)
	}))
	defer srv.Close()

	server := &models.Server{Name: "den", MachineIdentifier: "m1", URL: srv.URL}
	resolver := NewResolver(testClient("tok"))

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve(context.Background(), server); err != nil {
			t.Fatalf("Resolve %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("identity fetched %d times, want 1", got)
	}

	resolver.Invalidate("m1")
	if _, err := resolver.Resolve(context.Background(), server); err != nil {
		t.Fatalf("Resolve after invalidate failed: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("identity fetched %d times after invalidate, want 2", got)
	}
}

func TestDoReResolvesStaleCachedConnection(t *testing.T) {
	srv := httptest.NewServer(identityHandler("m1"))
	defer srv.Close()

	server := &models.Server{Name: "den", MachineIdentifier: "m1", URL: srv.URL}
	resolver := NewResolver(testClient("tok"))

	// Prime the cache.
	if _, err := resolver.Resolve(context.Background(), server); err != nil {
		t.Fatalf("prime failed: %v", err)
	}

	calls := 0
	err := resolver.Do(context.Background(), server, func(conn *Connection) error {
		calls++
		if calls == 1 {
			// Simulate the cached connection having gone stale.
			return &NetworkError{Op: "GET", Err: errors.New("connection reset")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed after re-resolution: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want retry after stale cache", calls)
	}
}

func TestDoDoesNotRetryFreshResolution(t *testing.T) {
	srv := httptest.NewServer(identityHandler("m1"))
	defer srv.Close()

	server := &models.Server{Name: "den", MachineIdentifier: "m1", URL: srv.URL}
	resolver := NewResolver(testClient("tok"))

	calls := 0
	wantErr := &NetworkError{Op: "GET", Err: errors.New("reset")}
	err := resolver.Do(context.Background(), server, func(conn *Connection) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) && err != wantErr {
		t.Fatalf("err = %v, want the fn's error", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times on a fresh resolution, want 1", calls)
	}
}

func TestDoDoesNotRetryNonNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(identityHandler("m1"))
	defer srv.Close()

	server := &models.Server{Name: "den", MachineIdentifier: "m1", URL: srv.URL}
	resolver := NewResolver(testClient("tok"))
	if _, err := resolver.Resolve(context.Background(), server); err != nil {
		t.Fatalf("prime failed: %v", err)
	}

	calls := 0
	err := resolver.Do(context.Background(), server, func(conn *Connection) error {
		calls++
		return &AuthError{Status: 401}
	})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times for an auth error, want 1", calls)
	}
}
