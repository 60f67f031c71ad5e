// Package aggregator compacts individual snapshot files into time-bucketed
// aggregate files. Each tick lists a provider's individual directory,
// groups files by aligned wall-clock windows in the provider timezone,
// merges every closed window into one aggregate file, and retires the
// inputs only after the aggregate is durably written.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/config"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/gtfs"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/scheduler"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/storage"
)

// Service runs aggregation ticks. Read-only after New; ticks for different
// (provider, service type) pairs may run concurrently.
type Service struct {
	registry storage.Registry
	logger   *slog.Logger

	// providers carries the per-provider scheduling inputs resolved from
	// the config at construction.
	providers []providerAggregation

	// now is the clock; tests substitute a fixed instant.
	now func() time.Time
}

// providerAggregation is one provider's de-duplicated aggregation plan:
// each service type appears once, bound to the first api that listed it.
type providerAggregation struct {
	name     string
	timezone string
	entries  []aggregationEntry
}

type aggregationEntry struct {
	service              gtfs.ServiceType
	frequencyMinutes     int
	checkIntervalSeconds int
}

// New builds the service from a validated config and the storage registry.
func New(cfg *config.Config, reg storage.Registry, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		registry: reg,
		logger:   logger,
		now:      time.Now,
	}

	for pi := range cfg.Providers {
		p := &cfg.Providers[pi]

		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return nil, fmt.Errorf("aggregator: provider %s: loading timezone: %w", p.Name, err)
		}

		pa := providerAggregation{name: p.Name, timezone: p.Timezone}
		seen := make(map[gtfs.ServiceType]bool)

		for ai := range p.Apis {
			api := &p.Apis[ai]

			for _, svc := range api.ServiceTypes() {
				if seen[svc] {
					continue
				}

				seen[svc] = true

				pa.entries = append(pa.entries, aggregationEntry{
					service:              svc,
					frequencyMinutes:     api.FrequencyMinutes,
					checkIntervalSeconds: api.CheckIntervalSeconds,
				})
			}
		}

		s.providers = append(s.providers, pa)
	}

	return s, nil
}

// SetNow overrides the clock. Test hook.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// RunOnce performs one aggregation tick for the provider: every listed
// service type is aggregated, concurrently. A failure on one service type
// never prevents the others from running; errors are logged and the tick
// returns normally.
func (s *Service) RunOnce(ctx context.Context, provider string, services []gtfs.ServiceType, frequencyMinutes int, timezone string) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		s.logger.Error("aggregation tick with invalid timezone",
			slog.String("provider", provider),
			slog.String("timezone", timezone),
			slog.String("error", err.Error()),
		)

		return
	}

	var g errgroup.Group

	for _, svc := range services {
		g.Go(func() error {
			if err := s.aggregateServiceType(ctx, provider, svc, frequencyMinutes, loc); err != nil {
				s.logger.Error("aggregation failed",
					slog.String("provider", provider),
					slog.String("service", svc.String()),
					slog.String("error", err.Error()),
				)
			}

			return nil
		})
	}

	// Goroutines report nil above so one failing service type never
	// cancels its siblings.
	_ = g.Wait()
}

// groupFilesByTime buckets individual file paths by the start of the
// window their filename timestamp falls in. Paths whose basename does not
// parse are skipped. Within each bucket, files are sorted chronologically
// so aggregate row order is deterministic regardless of List order.
func (s *Service) groupFilesByTime(files []string, frequencyMinutes int, loc *time.Location) map[time.Time][]string {
	groups := make(map[time.Time][]string)

	for _, p := range files {
		t, ok := parseIndividualTimestamp(p, loc)
		if !ok {
			continue
		}

		ws := floorToWindow(t, frequencyMinutes)
		groups[ws] = append(groups[ws], p)
	}

	for _, bucket := range groups {
		// The zero-padded timestamp format makes the lexical order the
		// chronological order.
		sort.Strings(bucket)
	}

	return groups
}

// aggregateFiles merges windowFiles (plus any existing aggregate at
// outPath) into one file at outPath, then deletes the inputs. Inputs are
// deleted only after the aggregate is verified present; individual delete
// failures are logged and do not roll back the aggregate.
func (s *Service) aggregateFiles(
	ctx context.Context, st storage.Storage, service gtfs.ServiceType, windowFiles []string, outPath string,
) error {
	merged := gtfs.NewSnapshot(service, time.Time{})

	// Late individuals can arrive after a window was already aggregated;
	// merging the existing aggregate first keeps the operation idempotent
	// across partial prior runs.
	exists, err := st.Exists(ctx, outPath)
	if err != nil {
		return err
	}

	if exists {
		data, err := st.Get(ctx, outPath)
		if err != nil {
			return err
		}

		prior, err := gtfs.Unmarshal(data, service)
		if err != nil {
			return fmt.Errorf("reading existing aggregate %s: %w", outPath, err)
		}

		if err := merged.Append(prior); err != nil {
			return err
		}
	}

	for _, p := range windowFiles {
		data, err := st.Get(ctx, p)
		if err != nil {
			return err
		}

		snap, err := gtfs.Unmarshal(data, service)
		if err != nil {
			return fmt.Errorf("reading individual file %s: %w", p, err)
		}

		if err := merged.Append(snap); err != nil {
			return err
		}
	}

	data, err := gtfs.Marshal(merged)
	if err != nil {
		return fmt.Errorf("serializing aggregate %s: %w", outPath, err)
	}

	if _, err := st.Put(ctx, outPath, data); err != nil {
		return err
	}

	// Data preservation over cleanup: inputs survive unless the aggregate
	// is verifiably durable.
	written, err := st.Exists(ctx, outPath)
	if err != nil {
		return err
	}

	if !written {
		return fmt.Errorf("aggregate %s not present after put, keeping inputs", outPath)
	}

	for _, p := range windowFiles {
		if _, err := st.Delete(ctx, p); err != nil {
			s.logger.Warn("failed to delete aggregated input",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("window aggregated",
		slog.String("path", outPath),
		slog.Int("inputs", len(windowFiles)),
		slog.Int("rows", merged.Len()),
	)

	return nil
}

// aggregateServiceType aggregates every closed window of one (provider,
// service type) pair. Open windows are skipped; a later tick picks them up
// once they close.
func (s *Service) aggregateServiceType(
	ctx context.Context, provider string, service gtfs.ServiceType, frequencyMinutes int, loc *time.Location,
) error {
	st, err := s.registry.For(provider)
	if err != nil {
		return err
	}

	dir := fmt.Sprintf("%s/%s/individual/", provider, service)

	files, err := st.List(ctx, dir, individualPrefix+"*"+parquetSuffix)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return nil
	}

	groups := s.groupFilesByTime(files, frequencyMinutes, loc)

	currentWindowStart := floorToWindow(s.now().In(loc), frequencyMinutes)

	for windowStart, windowFiles := range groups {
		if !windowStart.Before(currentWindowStart) {
			// Window still open; the fetcher may be writing into it.
			continue
		}

		if len(windowFiles) == 0 {
			continue
		}

		outPath := aggregatePath(provider, service.String(), windowStart)

		if err := s.aggregateFiles(ctx, st, service, windowFiles, outPath); err != nil {
			return err
		}
	}

	return nil
}

// Jobs returns one scheduling descriptor per (provider, service type)
// pair. Names are deterministic: aggregate/{provider}/{service}.
func (s *Service) Jobs() []scheduler.Job {
	var jobs []scheduler.Job

	for _, pa := range s.providers {
		provider, timezone := pa.name, pa.timezone

		for _, entry := range pa.entries {
			svc := entry.service
			freq := entry.frequencyMinutes

			jobs = append(jobs, scheduler.Job{
				Interval: time.Duration(entry.checkIntervalSeconds) * time.Second,
				Name:     JobName(provider, svc),
				Task: func(ctx context.Context) {
					s.RunOnce(ctx, provider, []gtfs.ServiceType{svc}, freq, timezone)
				},
			})
		}
	}

	return jobs
}

// JobName is the deterministic scheduler name for an aggregation job.
func JobName(provider string, service gtfs.ServiceType) string {
	return "aggregate/" + provider + "/" + service.String()
}
