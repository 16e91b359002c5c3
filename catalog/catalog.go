// Package catalog loads the movie dataset and renders each row as the text
// block that gets embedded.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Dataset column names.
const (
	ColTitle           = "primaryTitle"
	ColOriginalTitle   = "originalTitle"
	ColDescription     = "description"
	ColContentRating   = "contentRating"
	ColStartYear       = "startYear"
	ColGenres          = "genres"
	ColCompanies       = "productionCompanies"
	ColCountries       = "countriesOfOrigin"
	ColLanguages       = "spokenLanguages"
	ColFilmingLocation = "filmingLocations"
	ColBudget          = "budget"
	ColGross           = "grossWorldwide"
	ColRuntime         = "runtimeMinutes"
	ColRating          = "averageRating"
	ColVotes           = "numVotes"
)

// RequiredColumns must all be present in every catalog file.
var RequiredColumns = []string{
	ColTitle, ColOriginalTitle, ColDescription, ColContentRating, ColStartYear,
	ColGenres, ColCompanies, ColCountries, ColLanguages, ColFilmingLocation,
	ColBudget, ColGross, ColRuntime, ColRating, ColVotes,
}

// ErrNoFiles is returned when no pattern matches a file.
var ErrNoFiles = errors.New("no catalog files matched")

// Movie is one catalog row.
type Movie struct {
	Title            string
	OriginalTitle    string
	Description      string
	ContentRating    string
	Year             string
	Genres           []string
	Companies        []string
	Countries        []string
	Languages        []string
	FilmingLocations string
	Budget           string
	Gross            string
	RuntimeMinutes   string
	Rating           string
	Votes            string
}

// Text renders the movie as the labelled block used for embedding and as
// retrieval context.
func (m Movie) Text() string {
	var b strings.Builder
	line := func(label, value string) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(label)
		b.WriteString(value)
	}

	line("Title: ", m.Title)
	line("Original Title: ", m.OriginalTitle)
	line("Description: ", m.Description)
	line("Content Rating: ", m.ContentRating)
	line("Release Year: ", m.Year)
	line("Genres: ", strings.Join(m.Genres, ", "))
	line("Production Companies: ", strings.Join(m.Companies, ", "))
	line("Countries of Origin: ", strings.Join(m.Countries, ", "))
	line("Languages: ", strings.Join(m.Languages, ", "))
	line("Filming Locations: ", m.FilmingLocations)
	line("Budget: $", m.Budget)
	line("Gross Worldwide: $", m.Gross)
	line("Runtime: ", m.RuntimeMinutes+" minutes")
	line("Average Rating: ", m.Rating)
	line("Number of Votes: ", m.Votes)
	return b.String()
}

// Texts renders every movie.
func Texts(movies []Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Text()
	}
	return out
}

// MissingColumnsError is returned when a file lacks required columns.
type MissingColumnsError struct {
	File    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.File, strings.Join(e.Columns, ", "))
}

// RowError locates a cell that could not be decoded.
type RowError struct {
	File   string
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: column %s: %v", e.File, e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Load expands the glob patterns (** is supported) and reads every matched
// file. Any bad file or cell fails the whole load.
func Load(ctx context.Context, patterns ...string) ([]Movie, error) {
	files, err := Match(patterns...)
	if err != nil {
		return nil, err
	}

	var movies []Movie
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		got, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		movies = append(movies, got...)
	}
	return movies, nil
}

// Match returns the sorted, de-duplicated files matched by patterns.
func Match(patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad catalog pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			m = filepath.Clean(m)
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, strings.Join(patterns, ", "))
	}
	sort.Strings(files)
	return files, nil
}

func loadFile(path string) ([]Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(path, f)
}

// Read decodes one CSV stream. name is used in error messages.
func Read(name string, r io.Reader) ([]Movie, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{File: name, Columns: missing}
	}

	var movies []Movie
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		line, _ := cr.FieldPos(0)
		m, rowErr := decodeRow(record, index)
		if rowErr != nil {
			rowErr.File, rowErr.Line = name, line
			return nil, rowErr
		}
		movies = append(movies, m)
	}
	return movies, nil
}

func decodeRow(record []string, index map[string]int) (Movie, *RowError) {
	cell := func(col string) string {
		return strings.TrimSpace(record[index[col]])
	}

	m := Movie{
		Title:            cell(ColTitle),
		OriginalTitle:    cell(ColOriginalTitle),
		Description:      cell(ColDescription),
		ContentRating:    cell(ColContentRating),
		Year:             cell(ColStartYear),
		FilmingLocations: cell(ColFilmingLocation),
		Budget:           cell(ColBudget),
		Gross:            cell(ColGross),
		RuntimeMinutes:   cell(ColRuntime),
		Rating:           cell(ColRating),
		Votes:            cell(ColVotes),
	}

	lists := []struct {
		col    string
		dst    *[]string
		decode func(string) ([]string, error)
	}{
		{ColGenres, &m.Genres, StringList},
		{ColCompanies, &m.Companies, NameList},
		{ColCountries, &m.Countries, StringList},
		{ColLanguages, &m.Languages, StringList},
	}
	for _, l := range lists {
		v, err := l.decode(cell(l.col))
		if err != nil {
			return Movie{}, &RowError{Column: l.col, Err: err}
		}
		*l.dst = v
	}

	return m, nil
}
