package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/recommend"
)

// Messages printed by the loop.
const (
	Welcome     = "Welcome to the Movie Recommendation Tool!"
	Prompt      = "How are you feeling today? (Type 'exit' to quit): "
	ExitCommand = "exit"

	genericFailure = "Sorry, something went wrong while finding recommendations. Please try again."
)

// Recommender answers one query.
type Recommender interface {
	Recommend(ctx context.Context, query string) ([]recommend.Recommendation, error)
}

// Indicator shows that a query is being worked on.
type Indicator interface {
	Start()
	Stop()
}

// Loop reads queries from In and writes answers to Out.
type Loop struct {
	Recommender Recommender
	In          io.Reader
	Out         io.Writer
	// Busy, if set, runs while a query is in flight.
	Busy Indicator
}

type line struct {
	text string
	err  error
}

// Run prints the welcome line and answers queries until the exit command,
// end of input or ctx is done. Only read failures are returned.
func (l *Loop) Run(ctx context.Context) error {
	fmt.Fprintln(l.Out, Welcome)

	lines := make(chan line, 1)
	reader := bufio.NewReader(l.In)
	next := func() {
		text, err := reader.ReadString('\n')
		lines <- line{text: text, err: err}
	}

	for {
		fmt.Fprint(l.Out, Prompt)

		go next()
		var in line
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.Out)
			return nil
		case in = <-lines:
		}

		if in.err != nil && !errors.Is(in.err, io.EOF) {
			return fmt.Errorf("reading input: %w", in.err)
		}
		if in.err != nil && in.text == "" {
			fmt.Fprintln(l.Out)
			return nil
		}

		query := strings.TrimRight(in.text, "\r\n")
		if IsExit(query) {
			return nil
		}

		fmt.Fprintln(l.Out, "Recommendation:", l.answer(ctx, query))

		if errors.Is(in.err, io.EOF) {
			return nil
		}
	}
}

func (l *Loop) answer(ctx context.Context, query string) string {
	ctx = logging.WithQueryID(ctx)
	logging.Ctx(ctx).Info().Str("query", query).Msg("query received")

	if l.Busy != nil {
		l.Busy.Start()
	}
	recs, err := l.Recommender.Recommend(ctx, query)
	if l.Busy != nil {
		l.Busy.Stop()
	}

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("recommendation failed")
		return UserMessage(err)
	}
	return Format(recs)
}

// IsExit reports whether input is the exit command, ignoring case only.
func IsExit(input string) bool {
	return strings.EqualFold(input, ExitCommand)
}

// UserMessage turns an error into the text shown in place of
// recommendations.
func UserMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	if errors.Is(err, context.Canceled) {
		return "Cancelled."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request took too long. Please try again."
	}
	return genericFailure
}
