// Package pipeline assembles the aggregator from a validated
// configuration: storage backends, feed client, fetcher and aggregator
// services, and the scheduler that drives them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/aggregator"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/config"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/feed"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/fetcher"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/scheduler"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/storage"
)

// Pipeline owns the assembled services and their scheduler. Construct with
// New, then Start; Stop drains in-flight ticks.
type Pipeline struct {
	scheduler  *scheduler.Scheduler
	fetcher    *fetcher.Service
	aggregator *aggregator.Service
	jobs       []scheduler.Job
	logger     *slog.Logger
}

// New wires the pipeline: one storage per distinct storage config (the
// global one plus per-provider overrides), the services on top of the
// registry, and every service job registered with the scheduler.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	client := feed.NewClient(feed.DefaultTimeout, logger)

	fetchSvc, err := fetcher.New(cfg, registry, client, logger)
	if err != nil {
		return nil, err
	}

	aggSvc, err := aggregator.New(cfg, registry, logger)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(logger)

	jobs := append(fetchSvc.Jobs(), aggSvc.Jobs()...)

	if err := sched.Add(jobs...); err != nil {
		return nil, fmt.Errorf("pipeline: registering jobs: %w", err)
	}

	logger.Info("pipeline assembled",
		slog.Int("providers", len(cfg.Providers)),
		slog.Int("jobs", len(jobs)),
	)

	return &Pipeline{
		scheduler:  sched,
		fetcher:    fetchSvc,
		aggregator: aggSvc,
		jobs:       jobs,
		logger:     logger,
	}, nil
}

func buildRegistry(cfg *config.Config) (storage.Registry, error) {
	registry := make(storage.Registry)

	// Identical storage configs share one backend instance.
	byConfig := make(map[string]storage.Storage)

	global, err := storage.New(cfg.Storage.Type, cfg.Storage.Params)
	if err != nil {
		return nil, fmt.Errorf("pipeline: global storage: %w", err)
	}

	registry[storage.GlobalKey] = global
	byConfig[cfg.Storage.Type+"\x00"+fmt.Sprint(cfg.Storage.Params)] = global

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Storage == nil {
			continue
		}

		key := p.Storage.Type + "\x00" + fmt.Sprint(p.Storage.Params)
		if st, ok := byConfig[key]; ok {
			registry[p.Name] = st

			continue
		}

		st, err := storage.New(p.Storage.Type, p.Storage.Params)
		if err != nil {
			return nil, fmt.Errorf("pipeline: provider %s storage: %w", p.Name, err)
		}

		byConfig[key] = st
		registry[p.Name] = st
	}

	return registry, nil
}

// Start begins scheduling. Idempotent.
func (p *Pipeline) Start() {
	p.scheduler.Start()
}

// Stop ceases new ticks and waits for in-flight ones, bounded by ctx.
func (p *Pipeline) Stop(ctx context.Context) error {
	return p.scheduler.Stop(ctx)
}

// Jobs returns the registered scheduling descriptors. Test introspection.
func (p *Pipeline) Jobs() []scheduler.Job {
	return p.jobs
}
