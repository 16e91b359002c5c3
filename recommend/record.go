// Package recommend turns a mood into movie recommendations: it asks the
// retrieval chain, parses the reply into records and looks up where each
// title is streaming.
package recommend

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Keys used by the labelled text format.
const (
	KeyTitle          = "Title"
	KeyDescription    = "Description"
	KeyWhyRecommended = "Why Recommended"
	KeyGenres         = "Genres"
	KeyReleaseYear    = "Release Year"
	KeyRating         = "Rating"
)

// MovieRecord is one recommended movie as described by the model. Empty
// fields were not provided.
type MovieRecord struct {
	Title          string   `json:"title" jsonschema:"description=Movie title exactly as in the catalog" validate:"required"`
	Description    string   `json:"description" jsonschema:"description=A brief summary of the plot"`
	WhyRecommended string   `json:"why_recommended" jsonschema:"description=Why this movie matches the user's mood"`
	Genres         []string `json:"genres" jsonschema:"description=Genres of the movie" validate:"dive,required"`
	ReleaseYear    string   `json:"release_year" jsonschema:"description=Year the movie was released"`
	Rating         string   `json:"rating" jsonschema:"description=Average rating of the movie"`

	// Extra holds keys the text format carried that have no field.
	Extra map[string]string `json:"-"`
}

// set assigns a parsed key/value pair.
func (m *MovieRecord) set(key, value string) {
	switch key {
	case KeyTitle:
		m.Title = value
	case KeyDescription:
		m.Description = value
	case KeyWhyRecommended:
		m.WhyRecommended = value
	case KeyGenres:
		m.Genres = splitGenres(value)
	case KeyReleaseYear:
		m.ReleaseYear = value
	case KeyRating:
		m.Rating = value
	default:
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[key] = value
	}
}

// RecommendationList is the shape the model must answer with in structured
// mode.
type RecommendationList struct {
	Recommendations []MovieRecord `json:"recommendations" jsonschema:"description=Between three and five catalog movies" validate:"min=1,max=10,dive"`
}

// Recommendation pairs a record with its streaming summary.
type Recommendation struct {
	Movie     MovieRecord `json:"movie"`
	Streaming string      `json:"streaming"`
}

// SchemaError reports a structured reply that did not match the expected
// shape.
type SchemaError struct {
	Content string
	Cause   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("reply does not match the recommendation schema: %v", e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// UserMessage is the text shown instead of recommendations.
func (e *SchemaError) UserMessage() string {
	return "The model answered in an unexpected format, so no recommendations could be shown. Please try again."
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a structured reply.
func (l RecommendationList) Validate() error {
	if err := validate.Struct(l); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	return nil
}
