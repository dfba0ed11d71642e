package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/plex"
)

type fakeDiscoverer struct {
	resources []plex.Resource
	err       error
}

func (f *fakeDiscoverer) DiscoverResources(ctx context.Context) ([]plex.Resource, error) {
	return f.resources, f.err
}

type fakeLister struct {
	dirs map[string][]plex.Directory
	errs map[string]error
}

func (f *fakeLister) Libraries(ctx context.Context, server *models.Server) ([]plex.Directory, error) {
	if err := f.errs[server.MachineIdentifier]; err != nil {
		return nil, err
	}
	return f.dirs[server.MachineIdentifier], nil
}

type fakeServerStore struct {
	upserted    []*models.Server
	available   []uuid.UUID
	unreachable map[uuid.UUID]string
	missingSeen []string
}

func newFakeServerStore() *fakeServerStore {
	return &fakeServerStore{unreachable: make(map[uuid.UUID]string)}
}

func (f *fakeServerStore) Upsert(server *models.Server) error {
	server.ID = uuid.New()
	f.upserted = append(f.upserted, server)
	return nil
}

func (f *fakeServerStore) MarkAvailable(id uuid.UUID) error {
	f.available = append(f.available, id)
	return nil
}

func (f *fakeServerStore) MarkUnreachable(id uuid.UUID, errText string) error {
	f.unreachable[id] = errText
	return nil
}

func (f *fakeServerStore) MarkMissingUnavailable(accountID uuid.UUID, seen []string) error {
	f.missingSeen = seen
	return nil
}

type fakeLibraryCatalog struct {
	upserted []*models.Library
}

func (f *fakeLibraryCatalog) Upsert(library *models.Library) error {
	library.ID = uuid.New()
	f.upserted = append(f.upserted, library)
	return nil
}

func serverResource(name, machineID string, conns ...plex.ResourceConnection) plex.Resource {
	return plex.Resource{
		Name:             name,
		Product:          "Plex Media Server",
		Provides:         "server",
		ClientIdentifier: machineID,
		Owned:            true,
		Connections:      conns,
	}
}

func TestDiscoveryRunCatalogsServersAndLibraries(t *testing.T) {
	account := &models.Account{ID: uuid.New(), PlexUsername: "alice"}
	disc := &fakeDiscoverer{resources: []plex.Resource{
		serverResource("den", "m1", plex.ResourceConnection{URI: "https://1-2-3-4.plex.direct:32400"}),
		{Name: "phone", Product: "Plex for Android", Provides: "player", ClientIdentifier: "p1"},
	}}
	lister := &fakeLister{dirs: map[string][]plex.Directory{
		"m1": {
			{Key: "1", Title: "Movies", Type: "movie"},
			{Key: "2", Title: "TV", Type: "show"},
			{Key: "3", Title: "Music", Type: "artist"},
		},
	}}
	servers := newFakeServerStore()
	catalog := &fakeLibraryCatalog{}

	result, err := NewDiscovery(disc, lister, servers, catalog).Run(context.Background(), account)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The player device is ignored; only the media server lands.
	if len(result.Servers) != 1 || result.Servers[0].MachineIdentifier != "m1" {
		t.Fatalf("Servers = %+v, want just m1", result.Servers)
	}
	if len(servers.available) != 1 {
		t.Errorf("MarkAvailable called %d times, want 1", len(servers.available))
	}

	// Music sections are not syncable and are dropped.
	if len(catalog.upserted) != 2 {
		t.Fatalf("libraries upserted = %d, want 2", len(catalog.upserted))
	}
	if catalog.upserted[0].LibraryType != models.LibraryMovie || catalog.upserted[1].LibraryType != models.LibraryShow {
		t.Errorf("library types = %v, %v", catalog.upserted[0].LibraryType, catalog.upserted[1].LibraryType)
	}

	if len(servers.missingSeen) != 1 || servers.missingSeen[0] != "m1" {
		t.Errorf("missing-pass seen = %v, want [m1]", servers.missingSeen)
	}
}

func TestDiscoveryRunUnreachableServerContinuesPass(t *testing.T) {
	account := &models.Account{ID: uuid.New(), PlexUsername: "alice"}
	disc := &fakeDiscoverer{resources: []plex.Resource{
		serverResource("dead", "m1", plex.ResourceConnection{URI: "https://dead:32400"}),
		serverResource("live", "m2", plex.ResourceConnection{URI: "https://live:32400"}),
	}}
	lister := &fakeLister{
		dirs: map[string][]plex.Directory{
			"m2": {{Key: "1", Title: "Movies", Type: "movie"}},
		},
		errs: map[string]error{
			"m1": &plex.ConnectionError{ServerName: "dead", LastErr: errors.New("refused")},
		},
	}
	servers := newFakeServerStore()
	catalog := &fakeLibraryCatalog{}

	result, err := NewDiscovery(disc, lister, servers, catalog).Run(context.Background(), account)
	if err != nil {
		t.Fatalf("unreachable server aborted the pass: %v", err)
	}

	if result.Unreachable != 1 {
		t.Errorf("Unreachable = %d, want 1", result.Unreachable)
	}
	if len(servers.unreachable) != 1 {
		t.Errorf("MarkUnreachable calls = %d, want 1", len(servers.unreachable))
	}
	if len(result.Libraries) != 1 {
		t.Errorf("Libraries = %d, want the live server's section", len(result.Libraries))
	}
	// Both machine identifiers were seen; the missing-pass must not
	// unmark the unreachable one.
	if len(servers.missingSeen) != 2 {
		t.Errorf("missing-pass seen = %v, want both servers", servers.missingSeen)
	}
}

func TestDiscoveryRunFailsWhenPlexTVUnreachable(t *testing.T) {
	account := &models.Account{ID: uuid.New()}
	disc := &fakeDiscoverer{err: &plex.NetworkError{Op: "GET /api/v2/resources", Err: errors.New("timeout")}}
	servers := newFakeServerStore()

	_, err := NewDiscovery(disc, &fakeLister{}, servers, &fakeLibraryCatalog{}).Run(context.Background(), account)
	if err == nil {
		t.Fatal("expected error when plex.tv is unreachable")
	}
	if servers.missingSeen != nil {
		t.Error("missing-pass ran after a failed discovery")
	}
}

func TestServerFromResourceConnectionSlotting(t *testing.T) {
	accountID := uuid.New()
	res := serverResource("den", "m1",
		plex.ResourceConnection{URI: "https://relay.plex.direct:8443", Relay: true},
		plex.ResourceConnection{URI: "http://192.168.1.5:32400", Local: true},
		plex.ResourceConnection{URI: "https://1-2-3-4.abc.plex.direct:32400"},
	)

	server := serverFromResource(accountID, &res)
	if server.URL != "https://1-2-3-4.abc.plex.direct:32400" {
		t.Errorf("URL = %q, want the remote non-relay connection", server.URL)
	}
	if server.LocalURL != "http://192.168.1.5:32400" || !server.IsLocal {
		t.Errorf("LocalURL = %q IsLocal = %v", server.LocalURL, server.IsLocal)
	}
	if server.DirectURL != "https://1-2-3-4.abc.plex.direct:32400" {
		t.Errorf("DirectURL = %q", server.DirectURL)
	}
	if server.AccountID != accountID || server.MachineIdentifier != "m1" {
		t.Errorf("identity fields = %+v", server)
	}
}
