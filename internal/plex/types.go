package plex

// Wire types for the plex.tv discovery endpoint and the per-server
// /library API. Field names and header requirements are dictated by the
// remote protocol.

// Resource is one device visible to the account on plex.tv. Media servers
// report Product "Plex Media Server" and Provides containing "server".
type Resource struct {
	Name             string               `json:"name"`
	Product          string               `json:"product"`
	ProductVersion   string               `json:"productVersion"`
	Provides         string               `json:"provides"`
	ClientIdentifier string               `json:"clientIdentifier"`
	Owned            bool                 `json:"owned"`
	Connections      []ResourceConnection `json:"connections"`
}

type ResourceConnection struct {
	URI      string `json:"uri"`
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Local    bool   `json:"local"`
	Relay    bool   `json:"relay"`
}

// IsServer reports whether this resource is a media server.
func (r *Resource) IsServer() bool {
	return r.Product == "Plex Media Server" && r.Provides == "server"
}

// PreferredConnection picks a remote (non-local, non-relay) connection when
// one exists, falling back to the first advertised connection.
func (r *Resource) PreferredConnection() *ResourceConnection {
	for i := range r.Connections {
		if !r.Connections[i].Local && !r.Connections[i].Relay {
			return &r.Connections[i]
		}
	}
	if len(r.Connections) > 0 {
		return &r.Connections[0]
	}
	return nil
}

// mediaContainer is the envelope every server endpoint responds with.
type mediaContainer struct {
	MediaContainer struct {
		Size              int         `json:"size"`
		MachineIdentifier string      `json:"machineIdentifier"`
		Directory         []Directory `json:"Directory"`
		Metadata          []Metadata  `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Directory is one library section as listed by /library/sections.
type Directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Agent string `json:"agent"`
}

// Metadata is one item in a section or children listing. Plex is loose
// about numeric fields (numbers arrive as JSON numbers or strings depending
// on server version), so the heterogeneous ones stay untyped here and the
// normalizer coerces them.
type Metadata struct {
	RatingKey           string `json:"ratingKey"`
	Key                 string `json:"key"`
	Type                string `json:"type"`
	Title               string `json:"title"`
	TitleSort           string `json:"titleSort"`
	Summary             string `json:"summary"`
	Tagline             string `json:"tagline"`
	ContentRating       string `json:"contentRating"`
	Studio              string `json:"studio"`
	Status              string `json:"status"`
	Thumb               string `json:"thumb"`
	Art                 string `json:"art"`
	OriginallyAvailable string `json:"originallyAvailableAt"`

	Duration   any `json:"duration"`
	Rating     any `json:"rating"`
	Year       any `json:"year"`
	Index      any `json:"index"`
	LeafCount  any `json:"leafCount"`
	ChildCount any `json:"childCount"`
	AddedAt    any `json:"addedAt"`

	Genres    []TagRef `json:"Genre"`
	Directors []TagRef `json:"Director"`
	Writers   []TagRef `json:"Writer"`
	Roles     []TagRef `json:"Role"`
}

type TagRef struct {
	Tag string `json:"tag"`
}
