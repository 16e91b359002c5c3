// Package repl runs the interactive recommendation prompt.
package repl

import (
	"fmt"
	"strings"

	"github.com/i2y/moviemood/recommend"
)

// NoRecommendations is printed when a query yields nothing.
const NoRecommendations = "No recommendations found. Please try again with a different query."

const notAvailable = "N/A"

var separator = strings.Repeat("-", 50)

// Format renders recommendations as numbered blocks.
func Format(recs []recommend.Recommendation) string {
	if len(recs) == 0 {
		return NoRecommendations
	}

	blocks := make([]string, len(recs))
	for i, r := range recs {
		m := r.Movie
		genres := notAvailable
		if len(m.Genres) > 0 {
			genres = strings.Join(m.Genres, ", ")
		}
		blocks[i] = fmt.Sprintf("🎬 Recommendation %d\n"+
			"   - Title: %s\n"+
			"   - Description: %s\n"+
			"   - Why Recommended: %s\n"+
			"   - Genres: %s\n"+
			"   - Release Year: %s\n"+
			"   - Rating: %s\n"+
			"   - Streaming Services: %s\n"+
			"%s",
			i+1,
			orNA(m.Title),
			orNA(m.Description),
			orNA(m.WhyRecommended),
			genres,
			orNA(m.ReleaseYear),
			orNA(m.Rating),
			r.Streaming,
			separator,
		)
	}
	return strings.Join(blocks, "\n")
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
