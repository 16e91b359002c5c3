package availability

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i2y/moviemood/logging"
)

// Describer summarizes streaming availability for one title.
type Describer interface {
	Describe(ctx context.Context, title string) string
}

// Enricher looks titles up concurrently.
type Enricher struct {
	describer   Describer
	concurrency int
	timeout     time.Duration
}

// NewEnricher runs at most concurrency lookups at once and gives the whole
// batch timeout. A zero timeout means no limit beyond ctx.
func NewEnricher(d Describer, concurrency int, timeout time.Duration) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{describer: d, concurrency: concurrency, timeout: timeout}
}

// Enrich returns one summary per title, in input order. Titles not finished
// when the batch times out get NoInfo.
func (e *Enricher) Enrich(ctx context.Context, titles []string) []string {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var mu sync.Mutex
	results := make([]string, len(titles))
	for i := range results {
		results[i] = NoInfo
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, title := range titles {
			g.Go(func() error {
				summary := e.describer.Describe(gctx, title)
				mu.Lock()
				results[i] = summary
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		select {
		case <-done:
		default:
			logging.Ctx(ctx).Warn().Err(ctx.Err()).Int("titles", len(titles)).Msg("streaming lookups did not finish in time")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(results))
	copy(out, results)
	return out
}
