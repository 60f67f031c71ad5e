// Package fetcher owns the per-(provider, api) fetch jobs: each tick
// fetches one feed, splits the result per service type, and persists one
// individual Parquet file per type.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/config"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/feed"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/gtfs"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/scheduler"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/storage"
)

// FilenameTimeLayout is the timestamp format embedded in individual file
// names. It round-trips: parsing a formatted name in the provider timezone
// recovers the fetch instant at second precision.
const FilenameTimeLayout = "2006-01-02_15-04-05"

// IndividualPath builds the storage key for one snapshot:
// {provider}/{service}/individual/individual_{fetch_time in tz}.parquet.
func IndividualPath(provider string, service gtfs.ServiceType, fetchTime time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s/%s/individual/individual_%s.parquet",
		provider, service, fetchTime.In(loc).Format(FilenameTimeLayout))
}

// target is one scheduled fetch: an api endpoint bound to its provider's
// timezone and resolved storage. Immutable after construction.
type target struct {
	provider       string
	url            string
	services       []gtfs.ServiceType
	refreshSeconds int
	loc            *time.Location
	storage        storage.Storage
}

type targetKey struct {
	provider string
	url      string
}

// Service runs fetch ticks. The target map is read-only after New, so
// ticks for different apis may run concurrently.
type Service struct {
	client  *feed.Client
	targets map[targetKey]*target
	logger  *slog.Logger

	// now is the clock; tests substitute a fixed instant.
	now func() time.Time
}

// New builds the service from a validated config, resolving each api's
// storage at construction (provider-specific storage wins over global).
func New(cfg *config.Config, reg storage.Registry, client *feed.Client, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		client:  client,
		targets: make(map[targetKey]*target),
		logger:  logger,
		now:     time.Now,
	}

	for pi := range cfg.Providers {
		p := &cfg.Providers[pi]

		loc, err := time.LoadLocation(p.Timezone)
		if err != nil {
			return nil, fmt.Errorf("fetcher: provider %s: loading timezone: %w", p.Name, err)
		}

		st, err := reg.For(p.Name)
		if err != nil {
			return nil, fmt.Errorf("fetcher: provider %s: %w", p.Name, err)
		}

		for ai := range p.Apis {
			api := &p.Apis[ai]

			s.targets[targetKey{provider: p.Name, url: api.URL}] = &target{
				provider:       p.Name,
				url:            api.URL,
				services:       api.ServiceTypes(),
				refreshSeconds: api.RefreshSeconds,
				loc:            loc,
				storage:        st,
			}
		}
	}

	return s, nil
}

// SetNow overrides the clock. Test hook.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// RunOnce performs one fetch tick for the (provider, url) pair: fetch,
// split per service type, serialize, persist. Fetch, parse, and storage
// failures are logged and swallowed — the schedule interval is the retry
// cadence, and there is no in-memory backlog.
func (s *Service) RunOnce(ctx context.Context, provider, feedURL string) {
	tgt, ok := s.targets[targetKey{provider: provider, url: feedURL}]
	if !ok {
		s.logger.Error("fetch tick for unknown target",
			slog.String("provider", provider),
			slog.String("url", feedURL),
		)

		return
	}

	nowUTC := s.now().UTC()

	snapshots, err := s.client.Fetch(ctx, tgt.url, tgt.services, nowUTC)
	if err != nil {
		s.logger.Warn("fetch failed",
			slog.String("provider", provider),
			slog.String("url", feedURL),
			slog.String("error", err.Error()),
		)

		return
	}

	// One file per service type keeps every persisted path single-service,
	// even when one URL serves several entity categories.
	for _, svc := range tgt.services {
		snap, ok := snapshots[svc]
		if !ok {
			continue
		}

		data, err := gtfs.Marshal(snap)
		if err != nil {
			s.logger.Error("snapshot serialization failed",
				slog.String("provider", provider),
				slog.String("service", svc.String()),
				slog.String("error", err.Error()),
			)

			continue
		}

		p := IndividualPath(provider, svc, nowUTC, tgt.loc)

		if _, err := tgt.storage.Put(ctx, p, data); err != nil {
			s.logger.Error("snapshot write failed",
				slog.String("provider", provider),
				slog.String("path", p),
				slog.String("error", err.Error()),
			)

			continue
		}

		s.logger.Info("snapshot persisted",
			slog.String("provider", provider),
			slog.String("service", svc.String()),
			slog.String("path", p),
			slog.Int("rows", snap.Len()),
		)
	}
}

// Jobs returns one scheduling descriptor per (provider, api) pair. Names
// are deterministic: fetch/{provider}/{host}{path}.
func (s *Service) Jobs() []scheduler.Job {
	jobs := make([]scheduler.Job, 0, len(s.targets))

	for key, tgt := range s.targets {
		provider, feedURL := key.provider, key.url

		jobs = append(jobs, scheduler.Job{
			Interval: time.Duration(tgt.refreshSeconds) * time.Second,
			Name:     JobName(provider, feedURL),
			Task: func(ctx context.Context) {
				s.RunOnce(ctx, provider, feedURL)
			},
		})
	}

	return jobs
}

// JobName is the deterministic scheduler name for a fetch job.
func JobName(provider, feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "fetch/" + provider + "/" + feedURL
	}

	return "fetch/" + provider + "/" + u.Host + u.Path
}
