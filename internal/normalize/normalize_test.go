package normalize

import (
	"testing"
	"time"

	"github.com/georgepapagapitos/plexify/internal/plex"
)

func TestMovieCoercesLooseNumericFields(t *testing.T) {
	md := plex.Metadata{
		RatingKey: "101",
		Type:      "movie",
		Title:     "Heat",
		Duration:  "10200000", // string on older servers
		Rating:    8.3,
		Year:      float64(1995), // json numbers decode as float64
		AddedAt:   float64(1700000000),
		Thumb:     "/library/metadata/101/thumb",
		Genres:    []plex.TagRef{{Tag: "Crime"}, {Tag: "Thriller"}},
		Roles:     []plex.TagRef{{Tag: "Al Pacino"}, {Tag: "Robert De Niro"}},
	}

	movie, err := Movie(md, "http://10.0.0.5:32400")
	if err != nil {
		t.Fatalf("Movie failed: %v", err)
	}
	if movie.DurationMS != 10200000 {
		t.Errorf("DurationMS = %d, want 10200000", movie.DurationMS)
	}
	if movie.Rating == nil || *movie.Rating != 8.3 {
		t.Errorf("Rating = %v, want 8.3", movie.Rating)
	}
	if movie.Year == nil || *movie.Year != 1995 {
		t.Errorf("Year = %v, want 1995", movie.Year)
	}
	want := time.Unix(1700000000, 0).UTC()
	if !movie.AddedAt.Equal(want) {
		t.Errorf("AddedAt = %v, want %v", movie.AddedAt, want)
	}
	if movie.ThumbURL != "http://10.0.0.5:32400/library/metadata/101/thumb" {
		t.Errorf("ThumbURL = %q", movie.ThumbURL)
	}
	if len(movie.Genres) != 2 || movie.Genres[0] != "Crime" {
		t.Errorf("Genres = %v", movie.Genres)
	}
}

func TestMovieMissingFieldsDefaultToZero(t *testing.T) {
	movie, err := Movie(plex.Metadata{RatingKey: "7", Title: "Bare"}, "http://srv")
	if err != nil {
		t.Fatalf("Movie failed: %v", err)
	}
	if movie.DurationMS != 0 || movie.Rating != nil || movie.Year != nil {
		t.Errorf("optional fields not zeroed: dur=%d rating=%v year=%v",
			movie.DurationMS, movie.Rating, movie.Year)
	}
	if !movie.AddedAt.IsZero() {
		t.Errorf("AddedAt = %v, want zero", movie.AddedAt)
	}
}

func TestMovieMalformed(t *testing.T) {
	if _, err := Movie(plex.Metadata{Title: "No Key"}, ""); err == nil {
		t.Error("expected error for missing rating key")
	}
	if _, err := Movie(plex.Metadata{RatingKey: "9"}, ""); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestSeasonIndexHandling(t *testing.T) {
	// Plain season with an index
	season, err := Season(plex.Metadata{RatingKey: "200", Title: "Season 2", Index: float64(2)}, "")
	if err != nil {
		t.Fatalf("Season failed: %v", err)
	}
	if season.SeasonNumber != 2 {
		t.Errorf("SeasonNumber = %d, want 2", season.SeasonNumber)
	}

	// Specials report index 0 and are valid
	specials, err := Season(plex.Metadata{RatingKey: "201", Title: "Specials", Index: float64(0)}, "")
	if err != nil {
		t.Fatalf("Specials season rejected: %v", err)
	}
	if specials.SeasonNumber != 0 {
		t.Errorf("SeasonNumber = %d, want 0", specials.SeasonNumber)
	}

	// A present index 0 is valid regardless of the title the server reports
	renamed, err := Season(plex.Metadata{RatingKey: "203", Title: "Extras", Index: float64(0)}, "")
	if err != nil {
		t.Fatalf("index-0 season with a custom title rejected: %v", err)
	}
	if renamed.SeasonNumber != 0 {
		t.Errorf("SeasonNumber = %d, want 0", renamed.SeasonNumber)
	}

	// Missing index is malformed
	if _, err := Season(plex.Metadata{RatingKey: "202", Title: "Season ?"}, ""); err == nil {
		t.Error("expected error for season with no index")
	}
}

func TestEpisodeRequiresIndex(t *testing.T) {
	if _, err := Episode(plex.Metadata{RatingKey: "300", Title: "Pilot"}, ""); err == nil {
		t.Error("expected error for episode with no index")
	}

	ep, err := Episode(plex.Metadata{RatingKey: "301", Title: "Pilot", Index: float64(1)}, "")
	if err != nil {
		t.Fatalf("Episode failed: %v", err)
	}
	if ep.EpisodeNumber != 1 {
		t.Errorf("EpisodeNumber = %d, want 1", ep.EpisodeNumber)
	}
}

func TestNormalizeUnknownType(t *testing.T) {
	if _, err := Normalize(plex.Metadata{RatingKey: "1", Type: "photo", Title: "x"}, ""); err == nil {
		t.Error("expected error for unknown item type")
	}
}

func TestArtworkURLAbsolutePassthrough(t *testing.T) {
	md := plex.Metadata{RatingKey: "5", Title: "T", Thumb: "https://cdn.example.com/t.jpg"}
	movie, err := Movie(md, "http://srv:32400/")
	if err != nil {
		t.Fatalf("Movie failed: %v", err)
	}
	if movie.ThumbURL != "https://cdn.example.com/t.jpg" {
		t.Errorf("ThumbURL = %q, want passthrough", movie.ThumbURL)
	}
}

func TestShowSortTitleFallback(t *testing.T) {
	show, err := Show(plex.Metadata{RatingKey: "40", Title: "The Wire"}, "")
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if show.SortTitle != "The Wire" {
		t.Errorf("SortTitle = %q, want title fallback", show.SortTitle)
	}

	show, err = Show(plex.Metadata{RatingKey: "41", Title: "The Wire", TitleSort: "Wire, The"}, "")
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if show.SortTitle != "Wire, The" {
		t.Errorf("SortTitle = %q, want explicit sort title", show.SortTitle)
	}
}
