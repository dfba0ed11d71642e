package repository

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Science Fiction", "science-fiction"},
		{"Film-Noir", "film-noir"},
		{"  Action  ", "action"},
		{"Comédie", "com-die"},
		{"Sci-Fi & Fantasy", "sci-fi-fantasy"},
		{"1970s", "1970s"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
