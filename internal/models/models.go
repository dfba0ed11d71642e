package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ──────────────────── Enums ────────────────────

type ServerStatus string

const (
	ServerAvailable   ServerStatus = "available"
	ServerUnavailable ServerStatus = "unavailable"
	ServerUnreachable ServerStatus = "unreachable"
)

type LibraryType string

const (
	LibraryMovie LibraryType = "movie"
	LibraryShow  LibraryType = "show"
)

type SyncInterval string

const (
	SyncHourly SyncInterval = "hourly"
	SyncDaily  SyncInterval = "daily"
	SyncWeekly SyncInterval = "weekly"
)

// Duration returns the nominal gap between automatic syncs.
func (i SyncInterval) Duration() time.Duration {
	switch i {
	case SyncHourly:
		return time.Hour
	case SyncWeekly:
		return 168 * time.Hour
	default:
		return 24 * time.Hour
	}
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobSkipped   JobStatus = "skipped"
	JobRetrying  JobStatus = "retrying"
)

type JobType string

const (
	JobSyncAccount JobType = "sync:account"
	JobSyncLibrary JobType = "sync:library"
)

// ──────────────────── Account ────────────────────

// Account is the local representation of one authenticated Plex identity.
// The bearer token is read by the sync core; the login flow that obtains it
// lives outside this service.
type Account struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	PlexUsername    string       `json:"plex_username" db:"plex_username"`
	PlexAccountID   string       `json:"plex_account_id" db:"plex_account_id"`
	PlexToken       string       `json:"-" db:"plex_token"`
	Email           string       `json:"email" db:"email"`
	ThumbURL        string       `json:"thumb_url" db:"thumb_url"`
	PasswordHash    string       `json:"-" db:"password_hash"`
	AutoSyncEnabled bool         `json:"auto_sync_enabled" db:"auto_sync_enabled"`
	SyncInterval    SyncInterval `json:"sync_interval" db:"sync_interval"`
	LastSyncedAt    *time.Time   `json:"last_synced_at" db:"last_synced_at"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Server ────────────────────

// Server is one remote Plex Media Server reachable through one or more URLs.
// (account_id, machine_identifier) is unique.
type Server struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	AccountID         uuid.UUID    `json:"account_id" db:"account_id"`
	Name              string       `json:"name" db:"name"`
	MachineIdentifier string       `json:"machine_identifier" db:"machine_identifier"`
	Version           string       `json:"version" db:"version"`
	URL               string       `json:"url" db:"url"`
	LocalURL          string       `json:"local_url" db:"local_url"`
	DirectURL         string       `json:"direct_url" db:"direct_url"`
	IsOwned           bool         `json:"is_owned" db:"is_owned"`
	IsLocal           bool         `json:"is_local" db:"is_local"`
	Status            ServerStatus `json:"status" db:"status"`
	LastError         string       `json:"last_error" db:"last_error"`
	LastSeenAt        *time.Time   `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// ConnectionURLs returns candidate URLs in resolution preference order:
// local first (lower latency), then the claimed URL, then direct.
func (s *Server) ConnectionURLs() []string {
	var urls []string
	if s.LocalURL != "" {
		urls = append(urls, s.LocalURL)
	}
	if s.URL != "" {
		urls = append(urls, s.URL)
	}
	if s.DirectURL != "" {
		urls = append(urls, s.DirectURL)
	}
	return urls
}

// ──────────────────── Library ────────────────────

// Library is one content section on one Server. (server_id, section_id) is unique.
type Library struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	ServerID     uuid.UUID   `json:"server_id" db:"server_id"`
	Name         string      `json:"name" db:"name"`
	SectionID    string      `json:"section_id" db:"section_id"`
	LibraryType  LibraryType `json:"library_type" db:"library_type"`
	LastSyncedAt *time.Time  `json:"last_synced_at" db:"last_synced_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Media ────────────────────

type Genre struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
	Slug string    `json:"slug" db:"slug"`
}

// Movie is upserted by (library_id, plex_key). Durations are milliseconds.
type Movie struct {
	ID                  uuid.UUID      `json:"id" db:"id"`
	LibraryID           uuid.UUID      `json:"library_id" db:"library_id"`
	PlexKey             string         `json:"plex_key" db:"plex_key"`
	Title               string         `json:"title" db:"title"`
	SortTitle           string         `json:"sort_title" db:"sort_title"`
	Summary             string         `json:"summary" db:"summary"`
	Tagline             string         `json:"tagline" db:"tagline"`
	DurationMS          int64          `json:"duration_ms" db:"duration_ms"`
	Rating              *float64       `json:"rating" db:"rating"`
	ContentRating       string         `json:"content_rating" db:"content_rating"`
	Studio              string         `json:"studio" db:"studio"`
	Year                *int           `json:"year" db:"year"`
	OriginallyAvailable *time.Time     `json:"originally_available" db:"originally_available"`
	ThumbURL            string         `json:"thumb_url" db:"thumb_url"`
	ArtURL              string         `json:"art_url" db:"art_url"`
	Directors           pq.StringArray `json:"directors" db:"directors"`
	Writers             pq.StringArray `json:"writers" db:"writers"`
	Actors              pq.StringArray `json:"actors" db:"actors"`
	Genres              []string       `json:"genres,omitempty" db:"-"`
	AddedAt             time.Time      `json:"added_at" db:"added_at"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// Show is upserted by (library_id, plex_key).
type Show struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	LibraryID           uuid.UUID  `json:"library_id" db:"library_id"`
	PlexKey             string     `json:"plex_key" db:"plex_key"`
	Title               string     `json:"title" db:"title"`
	SortTitle           string     `json:"sort_title" db:"sort_title"`
	Summary             string     `json:"summary" db:"summary"`
	Rating              *float64   `json:"rating" db:"rating"`
	ContentRating       string     `json:"content_rating" db:"content_rating"`
	Studio              string     `json:"studio" db:"studio"`
	Year                *int       `json:"year" db:"year"`
	OriginallyAvailable *time.Time `json:"originally_available" db:"originally_available"`
	ThumbURL            string     `json:"thumb_url" db:"thumb_url"`
	ArtURL              string     `json:"art_url" db:"art_url"`
	TotalSeasons        int        `json:"total_seasons" db:"total_seasons"`
	ShowStatus          string     `json:"show_status" db:"show_status"`
	Genres              []string   `json:"genres,omitempty" db:"-"`
	AddedAt             time.Time  `json:"added_at" db:"added_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// Season is upserted by (show_id, season_number).
type Season struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ShowID       uuid.UUID `json:"show_id" db:"show_id"`
	SeasonNumber int       `json:"season_number" db:"season_number"`
	PlexKey      string    `json:"plex_key" db:"plex_key"`
	Title        string    `json:"title" db:"title"`
	Summary      string    `json:"summary" db:"summary"`
	ThumbURL     string    `json:"thumb_url" db:"thumb_url"`
	EpisodeCount int       `json:"episode_count" db:"episode_count"`
	AddedAt      time.Time `json:"added_at" db:"added_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Episode is upserted by (season_id, episode_number).
type Episode struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	SeasonID      uuid.UUID      `json:"season_id" db:"season_id"`
	EpisodeNumber int            `json:"episode_number" db:"episode_number"`
	PlexKey       string         `json:"plex_key" db:"plex_key"`
	Title         string         `json:"title" db:"title"`
	Summary       string         `json:"summary" db:"summary"`
	DurationMS    int64          `json:"duration_ms" db:"duration_ms"`
	ThumbURL      string         `json:"thumb_url" db:"thumb_url"`
	Directors     pq.StringArray `json:"directors" db:"directors"`
	Writers       pq.StringArray `json:"writers" db:"writers"`
	AddedAt       time.Time      `json:"added_at" db:"added_at"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Sync jobs ────────────────────

// SyncJob is the durable record behind a job handle returned to the API.
type SyncJob struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	AccountID    uuid.UUID  `json:"account_id" db:"account_id"`
	JobType      JobType    `json:"job_type" db:"job_type"`
	ServerID     *uuid.UUID `json:"server_id,omitempty" db:"server_id"`
	LibraryID    *uuid.UUID `json:"library_id,omitempty" db:"library_id"`
	Status       JobStatus  `json:"status" db:"status"`
	Attempt      int        `json:"attempt" db:"attempt"`
	Added        int        `json:"added" db:"added"`
	Updated      int        `json:"updated" db:"updated"`
	Total        int        `json:"total" db:"total"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
