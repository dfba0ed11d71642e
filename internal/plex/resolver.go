package plex

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/georgepapagapitos/plexify/internal/models"
)

const defaultCacheSize = 16

// Resolver turns a Server's candidate URLs into one live, validated
// Connection. Connections are cached per machine identifier for the
// process lifetime and invalidated on failure; the cache is owned here,
// not ambient.
type Resolver struct {
	client *Client

	mu      sync.Mutex
	cache   map[string]*Connection
	maxSize int
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{
		client:  client,
		cache:   make(map[string]*Connection),
		maxSize: defaultCacheSize,
	}
}

// Resolve returns a connection for the server, trying candidate URLs in
// preference order (local, claimed, direct). A candidate only counts if its
// identity matches the expected machine identifier. Returns a
// ConnectionError once all candidates are exhausted.
func (r *Resolver) Resolve(ctx context.Context, server *models.Server) (*Connection, error) {
	r.mu.Lock()
	if conn, ok := r.cache[server.MachineIdentifier]; ok {
		r.mu.Unlock()
		return conn, nil
	}
	r.mu.Unlock()

	candidates := server.ConnectionURLs()
	if len(candidates) == 0 {
		return nil, &ConnectionError{ServerName: server.Name, LastErr: fmt.Errorf("no connection URLs known")}
	}

	var lastErr error
	for _, candidate := range candidates {
		conn, err := r.client.connect(ctx, candidate)
		if err != nil {
			log.Printf("Resolver: %s via %s failed: %v", server.Name, candidate, err)
			lastErr = err
			continue
		}
		if conn.MachineIdentifier != server.MachineIdentifier {
			lastErr = fmt.Errorf("identity mismatch at %s: got %s", candidate, conn.MachineIdentifier)
			log.Printf("Resolver: %v", lastErr)
			continue
		}

		r.store(server.MachineIdentifier, conn)
		log.Printf("Resolver: connected to %s via %s", server.Name, candidate)
		return conn, nil
	}

	return nil, &ConnectionError{ServerName: server.Name, LastErr: lastErr}
}

// Do runs fn against a resolved connection. If fn fails with a network
// error against a cached connection, the cache entry is dropped and the
// whole thing is retried once against a fresh resolution; cached
// connections are never trusted blindly.
func (r *Resolver) Do(ctx context.Context, server *models.Server, fn func(*Connection) error) error {
	wasCached := r.isCached(server.MachineIdentifier)

	conn, err := r.Resolve(ctx, server)
	if err != nil {
		return err
	}

	err = fn(conn)
	if err == nil || !wasCached {
		return err
	}
	if _, ok := err.(*NetworkError); !ok {
		return err
	}

	log.Printf("Resolver: cached connection to %s failed, re-resolving once", server.Name)
	r.Invalidate(server.MachineIdentifier)
	conn, rerr := r.Resolve(ctx, server)
	if rerr != nil {
		return rerr
	}
	return fn(conn)
}

// Invalidate drops the cached connection for a machine identifier.
func (r *Resolver) Invalidate(machineID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, machineID)
}

func (r *Resolver) isCached(machineID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache[machineID]
	return ok
}

func (r *Resolver) store(machineID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cache) >= r.maxSize {
		// Bounded cache: evict one arbitrary entry rather than grow.
		for k := range r.cache {
			delete(r.cache, k)
			break
		}
	}
	r.cache[machineID] = conn
}
