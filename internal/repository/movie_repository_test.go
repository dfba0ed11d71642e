package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestRandomNoMatchReturnsNilWithoutError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM movies m`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	movie, err := NewMovieRepository(db).Random(uuid.New(), RandomPickFilter{MinRating: 9.5})
	if err != nil {
		t.Fatalf("empty pick reported an error: %v", err)
	}
	if movie != nil {
		t.Errorf("movie = %+v, want nil on no match", movie)
	}
}
