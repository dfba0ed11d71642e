package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/georgepapagapitos/plexify/internal/config"
)

const resourcesURL = "https://plex.tv/api/v2/resources"

// metadataParams are sent on every section/children fetch so the server
// includes guids and child summaries in one round trip.
var metadataParams = url.Values{
	"includeGuids":    {"1"},
	"includeChildren": {"1"},
}

// Client issues authenticated calls to plex.tv and to individual media
// servers. It carries no retry policy; retries belong to the coordinator.
type Client struct {
	token      string
	clientID   string
	product    string
	version    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client bound to one account token. Requests against
// plex.tv are rate limited; the limit is generous enough that only a
// misbehaving sync loop would ever wait.
func NewClient(cfg *config.Config, token string) *Client {
	return &Client{
		token:    token,
		clientID: cfg.PlexClientID,
		product:  cfg.PlexProduct,
		version:  cfg.PlexVersion,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: "rate wait", Err: err}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", c.product)
	req.Header.Set("X-Plex-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "GET " + u.Host + u.Path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Key: u.Path}
	case resp.StatusCode >= 400:
		return nil, &ProtocolError{Op: "GET " + u.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read body", Err: err}
	}
	return body, nil
}

// DiscoverResources lists the account's devices from plex.tv.
func (c *Client) DiscoverResources(ctx context.Context) ([]Resource, error) {
	body, err := c.get(ctx, resourcesURL, url.Values{
		"includeHttps": {"1"},
		"includeRelay": {"1"},
	})
	if err != nil {
		return nil, err
	}

	var resources []Resource
	if err := json.Unmarshal(body, &resources); err != nil {
		return nil, &ProtocolError{Op: "discover resources", Err: err}
	}
	return resources, nil
}

// ──────────────────── Server connection ────────────────────

// Connection is one validated, live connection to a media server, produced
// by the Resolver and cached there for reuse.
type Connection struct {
	BaseURL           string
	MachineIdentifier string
	client            *Client
}

// connect validates a candidate URL by fetching the server identity. A
// short timeout keeps URL fallback responsive when a candidate is dead.
func (c *Client) connect(ctx context.Context, baseURL string) (*Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := c.get(ctx, baseURL+"/identity", nil)
	if err != nil {
		return nil, err
	}

	var container mediaContainer
	if err := json.Unmarshal(body, &container); err != nil {
		return nil, &ProtocolError{Op: "identity", Err: err}
	}
	if container.MediaContainer.MachineIdentifier == "" {
		return nil, &ProtocolError{Op: "identity", Err: fmt.Errorf("no machine identifier in response")}
	}

	return &Connection{
		BaseURL:           baseURL,
		MachineIdentifier: container.MediaContainer.MachineIdentifier,
		client:            c,
	}, nil
}

// Libraries lists the server's library sections.
func (conn *Connection) Libraries(ctx context.Context) ([]Directory, error) {
	body, err := conn.client.get(ctx, conn.BaseURL+"/library/sections", nil)
	if err != nil {
		return nil, err
	}
	var container mediaContainer
	if err := json.Unmarshal(body, &container); err != nil {
		return nil, &ProtocolError{Op: "library sections", Err: err}
	}
	return container.MediaContainer.Directory, nil
}

// SectionItems fetches the top-level items of one section.
func (conn *Connection) SectionItems(ctx context.Context, sectionID string) ([]Metadata, error) {
	body, err := conn.client.get(ctx, conn.BaseURL+"/library/sections/"+sectionID+"/all", metadataParams)
	if err != nil {
		return nil, err
	}
	var container mediaContainer
	if err := json.Unmarshal(body, &container); err != nil {
		return nil, &ProtocolError{Op: "section " + sectionID, Err: err}
	}
	return container.MediaContainer.Metadata, nil
}

// Children fetches the child items of one metadata key (seasons of a show,
// episodes of a season).
func (conn *Connection) Children(ctx context.Context, ratingKey string) ([]Metadata, error) {
	body, err := conn.client.get(ctx, conn.BaseURL+"/library/metadata/"+ratingKey+"/children", metadataParams)
	if err != nil {
		return nil, err
	}
	var container mediaContainer
	if err := json.Unmarshal(body, &container); err != nil {
		return nil, &ProtocolError{Op: "children of " + ratingKey, Err: err}
	}
	return container.MediaContainer.Metadata, nil
}
