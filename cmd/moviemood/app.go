package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/i2y/moviemood/availability"
	"github.com/i2y/moviemood/catalog"
	"github.com/i2y/moviemood/config"
	"github.com/i2y/moviemood/llm"
	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/openai"
	"github.com/i2y/moviemood/provider"
	"github.com/i2y/moviemood/recommend"
	"github.com/i2y/moviemood/retrieval"
	"github.com/i2y/moviemood/tracing"
	"github.com/i2y/moviemood/vectorstore"
)

const providerName = "openai"

// app holds everything a front end needs.
type app struct {
	service *recommend.Service
	lookups *availability.Client

	cache  *vectorstore.Cache
	tracer *tracing.Tracer
}

type appOption func(*appDeps)

type appDeps struct {
	openaiOpts       []openai.Option
	availabilityOpts []availability.Option
	tracingOpts      []tracing.Option
}

// newApp loads the catalog, builds the index and wires the recommender.
func newApp(ctx context.Context, cfg *config.Config, opts ...appOption) (*app, error) {
	deps := &appDeps{}
	for _, opt := range opts {
		opt(deps)
	}

	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	openaiOpts := append([]openai.Option{
		openai.WithAPIKey(cfg.OpenAI.APIKey),
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
	}, deps.openaiOpts...)
	factory := provider.Factory(func() (provider.Provider, error) {
		return openai.New(openaiOpts...)
	})
	if cfg.Tracing.Enabled() {
		a.tracer = tracing.New(cfg.Tracing, deps.tracingOpts...)
		factory = a.tracer.WrapFactory(factory)
		logging.Info().Str("endpoint", cfg.Tracing.Endpoint).Str("project", cfg.Tracing.Project).Msg("tracing enabled")
	}
	provider.Register(providerName, factory)

	start := time.Now()
	movies, err := catalog.Load(ctx, cfg.Catalog.Paths...)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	logging.Info().Int("movies", len(movies)).Dur("elapsed", time.Since(start)).Msg("catalog loaded")

	a.cache, err = vectorstore.OpenCache(cfg.Index.CacheDir)
	if err != nil {
		return nil, err
	}

	chat := llm.NewModel(providerName, cfg.OpenAI.ChatModel, llm.WithTemperature(cfg.OpenAI.Temperature))
	embedder := vectorstore.NewCachedEmbedder(
		llm.NewModel(providerName, cfg.OpenAI.EmbeddingModel),
		a.cache,
		cfg.OpenAI.EmbeddingModel,
	)

	pipeline, err := retrieval.Build(ctx, chat, embedder, movies, retrieval.Config{
		TopK:            cfg.Index.TopK,
		MultiQuery:      cfg.Retrieval.MultiQuery,
		QueryCount:      cfg.Retrieval.QueryCount,
		IncludeOriginal: cfg.Retrieval.IncludeOriginal,
	})
	if err != nil {
		return nil, err
	}

	a.lookups = availability.New(cfg.Availability, deps.availabilityOpts...)
	enricher := availability.NewEnricher(a.lookups, cfg.Availability.Concurrency, cfg.Availability.AggregateTimeout)
	a.service = recommend.NewService(pipeline.Chain, enricher, cfg.Recommend.Output)

	ok = true
	return a, nil
}

// Close flushes traces and closes the embedding cache.
func (a *app) Close() error {
	var errs []error
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.tracer.Flush(ctx))
		cancel()
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	return errors.Join(errs...)
}
