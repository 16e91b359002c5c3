// Package mcpserver exposes the recommender as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/i2y/moviemood/availability"
	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/recommend"
	"github.com/i2y/moviemood/repl"
)

// Tool names.
const (
	RecommendTool    = "recommend_movies"
	AvailabilityTool = "streaming_availability"
)

// Recommender answers a mood query.
type Recommender interface {
	Recommend(ctx context.Context, query string) ([]recommend.Recommendation, error)
}

// Looker finds the streaming services carrying a title.
type Looker interface {
	Lookup(ctx context.Context, title string) ([]string, error)
}

// RecommendInput is the recommend_movies argument.
type RecommendInput struct {
	Mood string `json:"mood" jsonschema:"how the user is feeling or what they want to watch"`
}

// Pick is one recommended movie as returned over MCP.
type Pick struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	WhyRecommended string   `json:"why_recommended"`
	Genres         []string `json:"genres"`
	ReleaseYear    string   `json:"release_year"`
	Rating         string   `json:"rating"`
	Streaming      string   `json:"streaming" jsonschema:"streaming services carrying the movie, or a notice that none are known"`
}

// RecommendOutput is the recommend_movies result.
type RecommendOutput struct {
	Recommendations []Pick `json:"recommendations"`
	Text            string `json:"text" jsonschema:"the recommendations formatted for display"`
}

func newPick(r recommend.Recommendation) Pick {
	genres := r.Movie.Genres
	if genres == nil {
		genres = []string{}
	}
	return Pick{
		Title:          r.Movie.Title,
		Description:    r.Movie.Description,
		WhyRecommended: r.Movie.WhyRecommended,
		Genres:         genres,
		ReleaseYear:    r.Movie.ReleaseYear,
		Rating:         r.Movie.Rating,
		Streaming:      r.Streaming,
	}
}

// AvailabilityInput is the streaming_availability argument.
type AvailabilityInput struct {
	Title string `json:"title" jsonschema:"movie title to look up"`
}

// AvailabilityOutput is the streaming_availability result.
type AvailabilityOutput struct {
	Title    string   `json:"title"`
	Services []string `json:"services"`
	Summary  string   `json:"summary"`
}

// New returns an MCP server with both tools registered.
func New(rec Recommender, looker Looker, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "moviemood",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        RecommendTool,
		Description: "Recommend 3-5 movies from the catalog for a mood, with where to stream them.",
	}, recommendHandler(rec))

	mcp.AddTool(server, &mcp.Tool{
		Name:        AvailabilityTool,
		Description: "List the streaming services that carry a movie.",
	}, availabilityHandler(looker))

	return server
}

// Serve runs the server over stdin/stdout until the client disconnects or
// ctx is done.
func Serve(ctx context.Context, server *mcp.Server) error {
	logging.Info().Msg("serving MCP over stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serving MCP: %w", err)
	}
	return nil
}

func recommendHandler(rec Recommender) mcp.ToolHandlerFor[RecommendInput, RecommendOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in RecommendInput) (*mcp.CallToolResult, RecommendOutput, error) {
		mood := strings.TrimSpace(in.Mood)
		if mood == "" {
			return nil, RecommendOutput{}, errors.New("mood is required")
		}

		ctx = logging.WithQueryID(ctx)
		recs, err := rec.Recommend(ctx, mood)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("recommendation failed")
			return nil, RecommendOutput{}, errors.New(repl.UserMessage(err))
		}

		out := RecommendOutput{
			Recommendations: make([]Pick, 0, len(recs)),
			Text:            repl.Format(recs),
		}
		for _, r := range recs {
			out.Recommendations = append(out.Recommendations, newPick(r))
		}
		return nil, out, nil
	}
}

func availabilityHandler(looker Looker) mcp.ToolHandlerFor[AvailabilityInput, AvailabilityOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in AvailabilityInput) (*mcp.CallToolResult, AvailabilityOutput, error) {
		out := AvailabilityOutput{Title: in.Title, Services: []string{}}

		services, err := looker.Lookup(ctx, in.Title)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("title", in.Title).Msg("streaming lookup failed")
		} else if len(services) > 0 {
			out.Services = services
		}
		out.Summary = availability.Summary(out.Services)
		return nil, out, nil
	}
}
