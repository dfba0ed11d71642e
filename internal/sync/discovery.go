package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/plex"
)

// Discoverer lists the account's devices from plex.tv.
type Discoverer interface {
	DiscoverResources(ctx context.Context) ([]plex.Resource, error)
}

// DiscoveryCache is a short-lived string store for the plex.tv resource
// listing. A miss is reported as an empty value, not an error.
type DiscoveryCache interface {
	CacheGet(ctx context.Context, key string) (string, error)
	CacheSet(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedDiscoverer wraps a Discoverer with a TTL cache so back-to-back
// account syncs do not hammer plex.tv. Cache failures fall through to the
// live listing.
type CachedDiscoverer struct {
	Inner Discoverer
	Cache DiscoveryCache
	Key   string
	TTL   time.Duration
}

func (c *CachedDiscoverer) DiscoverResources(ctx context.Context) ([]plex.Resource, error) {
	if raw, err := c.Cache.CacheGet(ctx, c.Key); err == nil && raw != "" {
		var resources []plex.Resource
		if json.Unmarshal([]byte(raw), &resources) == nil {
			return resources, nil
		}
	}

	resources, err := c.Inner.DiscoverResources(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(resources); err == nil {
		if err := c.Cache.CacheSet(ctx, c.Key, string(raw), c.TTL); err != nil {
			log.Printf("Sync: cache resource listing: %v", err)
		}
	}
	return resources, nil
}

// LibraryLister fetches the section listing of one server.
type LibraryLister interface {
	Libraries(ctx context.Context, server *models.Server) ([]plex.Directory, error)
}

func (r *ResolverRemote) Libraries(ctx context.Context, server *models.Server) ([]plex.Directory, error) {
	var dirs []plex.Directory
	err := r.Resolver.Do(ctx, server, func(conn *plex.Connection) error {
		var err error
		dirs, err = conn.Libraries(ctx)
		return err
	})
	return dirs, err
}

type ServerStore interface {
	Upsert(server *models.Server) error
	MarkAvailable(id uuid.UUID) error
	MarkUnreachable(id uuid.UUID, errText string) error
	MarkMissingUnavailable(accountID uuid.UUID, seenMachineIDs []string) error
}

type LibraryCatalog interface {
	Upsert(library *models.Library) error
}

// DiscoveryResult summarizes one account-level discovery pass.
type DiscoveryResult struct {
	Servers     []*models.Server  `json:"servers"`
	Libraries   []*models.Library `json:"libraries"`
	Unreachable int               `json:"unreachable"`
}

// Discovery refreshes the account's server and library catalog from
// plex.tv. It never deletes rows; servers that vanished from the account
// are marked unavailable and servers that cannot be reached are marked
// unreachable with the last error kept for the dashboard.
type Discovery struct {
	disc      Discoverer
	lister    LibraryLister
	servers   ServerStore
	libraries LibraryCatalog
}

func NewDiscovery(disc Discoverer, lister LibraryLister, servers ServerStore, libraries LibraryCatalog) *Discovery {
	return &Discovery{disc: disc, lister: lister, servers: servers, libraries: libraries}
}

// Run performs one discovery pass for the account. A failure talking to
// plex.tv fails the run; a failure against an individual server marks that
// server unreachable and the pass continues.
func (d *Discovery) Run(ctx context.Context, account *models.Account) (*DiscoveryResult, error) {
	resources, err := d.disc.DiscoverResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover resources: %w", err)
	}

	result := &DiscoveryResult{}
	var seen []string
	for i := range resources {
		res := &resources[i]
		if !res.IsServer() {
			continue
		}

		server := serverFromResource(account.ID, res)
		if err := d.servers.Upsert(server); err != nil {
			return nil, fmt.Errorf("upsert server %s: %w", res.Name, err)
		}
		seen = append(seen, server.MachineIdentifier)
		result.Servers = append(result.Servers, server)

		libs, err := d.syncServerLibraries(ctx, server)
		if err != nil {
			log.Printf("Sync: server %s unreachable: %v", server.Name, err)
			if merr := d.servers.MarkUnreachable(server.ID, err.Error()); merr != nil {
				return nil, fmt.Errorf("mark server unreachable: %w", merr)
			}
			result.Unreachable++
			continue
		}
		if err := d.servers.MarkAvailable(server.ID); err != nil {
			return nil, fmt.Errorf("mark server available: %w", err)
		}
		result.Libraries = append(result.Libraries, libs...)
	}

	if err := d.servers.MarkMissingUnavailable(account.ID, seen); err != nil {
		return nil, fmt.Errorf("mark missing servers: %w", err)
	}

	log.Printf("Sync: discovery for %s: %d servers, %d libraries, %d unreachable",
		account.PlexUsername, len(result.Servers), len(result.Libraries), result.Unreachable)
	return result, nil
}

func (d *Discovery) syncServerLibraries(ctx context.Context, server *models.Server) ([]*models.Library, error) {
	dirs, err := d.lister.Libraries(ctx, server)
	if err != nil {
		return nil, err
	}

	var libs []*models.Library
	for _, dir := range dirs {
		libraryType, ok := libraryTypeFor(dir.Type)
		if !ok {
			continue
		}
		library := &models.Library{
			ServerID:    server.ID,
			Name:        dir.Title,
			SectionID:   dir.Key,
			LibraryType: libraryType,
		}
		if err := d.libraries.Upsert(library); err != nil {
			return nil, fmt.Errorf("upsert library %s: %w", dir.Title, err)
		}
		libs = append(libs, library)
	}
	return libs, nil
}

// libraryTypeFor maps remote section types onto syncable kinds. Music,
// photo and other section types are cataloged nowhere and are skipped.
func libraryTypeFor(sectionType string) (models.LibraryType, bool) {
	switch sectionType {
	case "movie":
		return models.LibraryMovie, true
	case "show":
		return models.LibraryShow, true
	default:
		return "", false
	}
}

// serverFromResource maps one plex.tv resource onto a server row, sorting
// the advertised connections into the claimed, local and direct URL slots
// the resolver tries in order.
func serverFromResource(accountID uuid.UUID, res *plex.Resource) *models.Server {
	server := &models.Server{
		AccountID:         accountID,
		Name:              res.Name,
		MachineIdentifier: res.ClientIdentifier,
		Version:           res.ProductVersion,
		IsOwned:           res.Owned,
		Status:            models.ServerAvailable,
	}

	if pref := res.PreferredConnection(); pref != nil {
		server.URL = pref.URI
	}
	for _, conn := range res.Connections {
		switch {
		case conn.Local && server.LocalURL == "":
			server.LocalURL = conn.URI
			server.IsLocal = true
		case !conn.Local && !conn.Relay && strings.Contains(conn.URI, "plex.direct") && server.DirectURL == "":
			server.DirectURL = conn.URI
		}
	}
	return server
}
