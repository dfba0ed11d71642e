package sync

// Counts accumulates upsert outcomes for one item kind.
type Counts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

func (c *Counts) record(created bool) {
	c.Total++
	if created {
		c.Added++
	} else {
		c.Updated++
	}
}

// SkipDiagnostic records one item or subtree that was skipped without
// aborting the run: malformed metadata, an unknown kind, or a failed
// child fetch.
type SkipDiagnostic struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Result summarizes one library sync run.
type Result struct {
	Movies   Counts           `json:"movies"`
	Shows    Counts           `json:"shows"`
	Seasons  Counts           `json:"seasons"`
	Episodes Counts           `json:"episodes"`
	Skipped  []SkipDiagnostic `json:"skipped,omitempty"`
}

func (r *Result) skip(kind, key, title, reason string) {
	r.Skipped = append(r.Skipped, SkipDiagnostic{Kind: kind, Key: key, Title: title, Reason: reason})
}

// Added is the run-wide count of newly created rows across all kinds.
func (r *Result) Added() int {
	return r.Movies.Added + r.Shows.Added + r.Seasons.Added + r.Episodes.Added
}

// Updated is the run-wide count of refreshed rows across all kinds.
func (r *Result) Updated() int {
	return r.Movies.Updated + r.Shows.Updated + r.Seasons.Updated + r.Episodes.Updated
}

// Total is the run-wide count of processed items, excluding skips.
func (r *Result) Total() int {
	return r.Movies.Total + r.Shows.Total + r.Seasons.Total + r.Episodes.Total
}

// Progress is emitted periodically while a library sync walks its items.
type Progress struct {
	LibraryID string `json:"library_id"`
	Library   string `json:"library"`
	Processed int    `json:"processed"`
	Expected  int    `json:"expected"`
}
