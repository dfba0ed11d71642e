package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/georgepapagapitos/plexify/internal/config"
)

func testClient(token string) *Client {
	return NewClient(&config.Config{
		PlexClientID:   "test-client-id",
		PlexProduct:    "Plexify",
		PlexVersion:    "1.0.0",
		RequestTimeout: 5 * time.Second,
	}, token)
}

func identityHandler(machineID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"` + machineID + `"}}`))
	}
}

func TestGetSendsPlexHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := testClient("tok-123")
	if _, err := client.get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	want := map[string]string{
		"X-Plex-Token":             "tok-123",
		"X-Plex-Client-Identifier": "test-client-id",
		"X-Plex-Product":           "Plexify",
		"X-Plex-Version":           "1.0.0",
		"Accept":                   "application/json",
	}
	for header, value := range want {
		if got.Get(header) != value {
			t.Errorf("%s = %q, want %q", header, got.Get(header), value)
		}
	}
}

func TestGetStatusTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, func(err error) bool {
			var e *AuthError
			return errors.As(err, &e) && e.Status == http.StatusUnauthorized
		}},
		{"forbidden", http.StatusForbidden, func(err error) bool {
			var e *AuthError
			return errors.As(err, &e)
		}},
		{"not found", http.StatusNotFound, func(err error) bool {
			var e *NotFoundError
			return errors.As(err, &e)
		}},
		{"server error", http.StatusInternalServerError, func(err error) bool {
			var e *ProtocolError
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := testClient("tok").get(context.Background(), srv.URL, nil)
			if err == nil || !tt.check(err) {
				t.Errorf("status %d produced %T: %v", tt.status, err, err)
			}
		})
	}
}

func TestGetTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := testClient("tok").get(context.Background(), srv.URL, nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("got %T: %v, want NetworkError", err, err)
	}
}

func TestConnectValidatesIdentity(t *testing.T) {
	srv := httptest.NewServer(identityHandler("abc-123"))
	defer srv.Close()

	conn, err := testClient("tok").connect(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if conn.MachineIdentifier != "abc-123" || conn.BaseURL != srv.URL {
		t.Errorf("conn = %+v", conn)
	}
}

func TestConnectRejectsEmptyIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MediaContainer":{}}`))
	}))
	defer srv.Close()

	_, err := testClient("tok").connect(context.Background(), srv.URL)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("got %T: %v, want ProtocolError", err, err)
	}
}

func TestSectionItemsParsesContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/identity":
			identityHandler("m1")(w, r)
		case "/library/sections/1/all":
			if r.URL.Query().Get("includeGuids") != "1" {
				t.Error("includeGuids not sent")
			}
			w.Write([]byte(`{"MediaContainer":{"size":2,"Metadata":[
				{"ratingKey":"10","type":"movie","title":"Alien","year":1979,"duration":"6988000"},
				{"ratingKey":"11","type":"movie","title":"Aliens","year":"1986"}
			]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	conn, err := testClient("tok").connect(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	items, err := conn.SectionItems(context.Background(), "1")
	if err != nil {
		t.Fatalf("SectionItems failed: %v", err)
	}
	if len(items) != 2 || items[0].Title != "Alien" {
		t.Fatalf("items = %+v", items)
	}
	// Heterogeneous numerics survive as raw values for the normalizer.
	if _, ok := items[0].Year.(float64); !ok {
		t.Errorf("numeric year decoded as %T", items[0].Year)
	}
	if _, ok := items[1].Year.(string); !ok {
		t.Errorf("string year decoded as %T", items[1].Year)
	}
}

func TestPreferredConnectionOrder(t *testing.T) {
	res := Resource{Connections: []ResourceConnection{
		{URI: "https://relay:8443", Relay: true},
		{URI: "http://192.168.1.5:32400", Local: true},
		{URI: "https://remote.plex.direct:32400"},
	}}
	if got := res.PreferredConnection().URI; got != "https://remote.plex.direct:32400" {
		t.Errorf("PreferredConnection = %q", got)
	}

	localOnly := Resource{Connections: []ResourceConnection{
		{URI: "http://192.168.1.5:32400", Local: true},
	}}
	if got := localOnly.PreferredConnection().URI; got != "http://192.168.1.5:32400" {
		t.Errorf("local fallback = %q", got)
	}

	var empty Resource
	if empty.PreferredConnection() != nil {
		t.Error("empty resource returned a connection")
	}
}
