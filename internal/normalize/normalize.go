package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/georgepapagapitos/plexify/internal/models"
	"github.com/georgepapagapitos/plexify/internal/plex"
)

// Normalizer turns heterogeneous remote item representations into the
// canonical entity shapes used by storage. Missing optional fields default
// to zero values; a malformed item produces an error the sync engine
// records as a skip diagnostic instead of aborting the run.

type Kind string

const (
	KindMovie   Kind = "movie"
	KindShow    Kind = "show"
	KindSeason  Kind = "season"
	KindEpisode Kind = "episode"
)

// Item is the tagged union over normalized item kinds. Exactly one of the
// entity pointers is set, matching Kind.
type Item struct {
	Kind    Kind
	Movie   *models.Movie
	Show    *models.Show
	Season  *models.Season
	Episode *models.Episode
}

// Normalize dispatches on the remote item's declared type. Seasons and
// episodes are usually normalized through their kind-specific functions
// because the engine knows their parent chain; this entry point covers
// callers that only have the raw metadata.
func Normalize(md plex.Metadata, serverURL string) (*Item, error) {
	switch md.Type {
	case "movie":
		m, err := Movie(md, serverURL)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: KindMovie, Movie: m}, nil
	case "show":
		s, err := Show(md, serverURL)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: KindShow, Show: s}, nil
	case "season":
		s, err := Season(md, serverURL)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: KindSeason, Season: s}, nil
	case "episode":
		e, err := Episode(md, serverURL)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: KindEpisode, Episode: e}, nil
	default:
		return nil, fmt.Errorf("unknown item type %q (key %s)", md.Type, md.RatingKey)
	}
}

// Movie normalizes one movie item. The stored Directors/Writers/Actors
// keep the full lists; presentation-layer caps happen at the API boundary.
func Movie(md plex.Metadata, serverURL string) (*models.Movie, error) {
	if md.RatingKey == "" {
		return nil, fmt.Errorf("movie %q has no rating key", md.Title)
	}
	if md.Title == "" {
		return nil, fmt.Errorf("movie %s has no title", md.RatingKey)
	}

	return &models.Movie{
		PlexKey:             md.RatingKey,
		Title:               md.Title,
		SortTitle:           sortTitle(md),
		Summary:             md.Summary,
		Tagline:             md.Tagline,
		DurationMS:          cast.ToInt64(md.Duration),
		Rating:              floatPtr(md.Rating),
		ContentRating:       md.ContentRating,
		Studio:              md.Studio,
		Year:                intPtr(md.Year),
		OriginallyAvailable: datePtr(md.OriginallyAvailable),
		ThumbURL:            artworkURL(serverURL, md.Thumb),
		ArtURL:              artworkURL(serverURL, md.Art),
		Directors:           tags(md.Directors),
		Writers:             tags(md.Writers),
		Actors:              tags(md.Roles),
		Genres:              tags(md.Genres),
		AddedAt:             epochTime(md.AddedAt),
	}, nil
}

func Show(md plex.Metadata, serverURL string) (*models.Show, error) {
	if md.RatingKey == "" {
		return nil, fmt.Errorf("show %q has no rating key", md.Title)
	}
	if md.Title == "" {
		return nil, fmt.Errorf("show %s has no title", md.RatingKey)
	}

	return &models.Show{
		PlexKey:             md.RatingKey,
		Title:               md.Title,
		SortTitle:           sortTitle(md),
		Summary:             md.Summary,
		Rating:              floatPtr(md.Rating),
		ContentRating:       md.ContentRating,
		Studio:              md.Studio,
		Year:                intPtr(md.Year),
		OriginallyAvailable: datePtr(md.OriginallyAvailable),
		ThumbURL:            artworkURL(serverURL, md.Thumb),
		ArtURL:              artworkURL(serverURL, md.Art),
		TotalSeasons:        cast.ToInt(md.ChildCount),
		ShowStatus:          md.Status,
		Genres:              tags(md.Genres),
		AddedAt:             epochTime(md.AddedAt),
	}, nil
}

// Season normalizes one season. Seasons are keyed by index under their
// show, so an absent index is malformed even if a rating key exists. Index
// 0 is a valid value; Plex uses it for specials.
func Season(md plex.Metadata, serverURL string) (*models.Season, error) {
	if md.Index == nil {
		return nil, fmt.Errorf("season %s (%q) has no index", md.RatingKey, md.Title)
	}
	index := cast.ToInt(md.Index)

	return &models.Season{
		SeasonNumber: index,
		PlexKey:      md.RatingKey,
		Title:        md.Title,
		Summary:      md.Summary,
		ThumbURL:     artworkURL(serverURL, md.Thumb),
		EpisodeCount: cast.ToInt(md.LeafCount),
		AddedAt:      epochTime(md.AddedAt),
	}, nil
}

func Episode(md plex.Metadata, serverURL string) (*models.Episode, error) {
	index := cast.ToInt(md.Index)
	if md.Index == nil {
		return nil, fmt.Errorf("episode %s (%q) has no index", md.RatingKey, md.Title)
	}

	return &models.Episode{
		EpisodeNumber: index,
		PlexKey:       md.RatingKey,
		Title:         md.Title,
		Summary:       md.Summary,
		DurationMS:    cast.ToInt64(md.Duration),
		ThumbURL:      artworkURL(serverURL, md.Thumb),
		Directors:     tags(md.Directors),
		Writers:       tags(md.Writers),
		AddedAt:       epochTime(md.AddedAt),
	}, nil
}

// ──────────────────── helpers ────────────────────

func sortTitle(md plex.Metadata) string {
	if md.TitleSort != "" {
		return md.TitleSort
	}
	return md.Title
}

// epochTime converts the remote epoch-seconds representation to a UTC
// instant. Zero or unparseable values map to the zero time.
func epochTime(v any) time.Time {
	secs := cast.ToInt64(v)
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

func floatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return &f
}

func intPtr(v any) *int {
	if v == nil {
		return nil
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return nil
	}
	return &i
}

func datePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// artworkURL joins a server-relative artwork path onto the connection base
// URL; absolute URLs pass through.
func artworkURL(serverURL, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(serverURL, "/") + path
}

func tags(refs []plex.TagRef) []string {
	if len(refs) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Tag != "" {
			out = append(out, r.Tag)
		}
	}
	return out
}
