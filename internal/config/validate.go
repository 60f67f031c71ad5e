package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/gtfs"
)

// secondsPerMinute converts frequency_minutes for the refresh constraint.
const secondsPerMinute = 60

// knownStorageTypes are the accepted [storage] type values.
var knownStorageTypes = map[string]bool{
	"filesystem": true,
	"bucket":     true,
	"memory":     true,
}

// Validate checks the whole configuration and returns all errors found.
// It accumulates every error rather than stopping at the first.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateStorage(&cfg.Storage, "storage")...)

	if len(cfg.Providers) == 0 {
		errs = append(errs, errors.New("providers: at least one provider is required"))
	}

	seen := make(map[string]bool, len(cfg.Providers))

	for i := range cfg.Providers {
		p := &cfg.Providers[i]

		if p.Name == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: name must not be empty", i))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate provider name %q", i, p.Name))
		}

		seen[p.Name] = true

		errs = append(errs, validateProvider(p, i)...)
	}

	return errors.Join(errs...)
}

func validateProvider(p *ProviderConfig, idx int) []error {
	var errs []error

	prefix := fmt.Sprintf("providers[%d] (%s)", idx, p.Name)

	if p.Timezone == "" {
		errs = append(errs, fmt.Errorf("%s: timezone must not be empty", prefix))
	} else if _, err := time.LoadLocation(p.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%s: invalid timezone %q: %w", prefix, p.Timezone, err))
	}

	if p.Storage != nil {
		errs = append(errs, validateStorage(p.Storage, prefix+".storage")...)
	}

	if len(p.Apis) == 0 {
		errs = append(errs, fmt.Errorf("%s: at least one api is required", prefix))
	}

	for ai := range p.Apis {
		errs = append(errs, validateApi(&p.Apis[ai], fmt.Sprintf("%s.apis[%d]", prefix, ai))...)
	}

	return errs
}

func validateApi(a *ApiConfig, prefix string) []error {
	var errs []error

	if a.URL == "" {
		errs = append(errs, fmt.Errorf("%s: url must not be empty", prefix))
	}

	if len(a.Services) == 0 {
		errs = append(errs, fmt.Errorf("%s: at least one service is required", prefix))
	}

	for _, s := range a.Services {
		if _, err := gtfs.ParseServiceType(s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
		}
	}

	if a.RefreshSeconds <= 0 {
		errs = append(errs, fmt.Errorf("%s: refresh_seconds must be positive, got %d", prefix, a.RefreshSeconds))
	}

	if a.FrequencyMinutes <= 0 {
		errs = append(errs, fmt.Errorf("%s: frequency_minutes must be positive, got %d", prefix, a.FrequencyMinutes))
	}

	if a.CheckIntervalSeconds <= 0 {
		errs = append(errs,
			fmt.Errorf("%s: check_interval_seconds must be positive, got %d", prefix, a.CheckIntervalSeconds))
	}

	// A refresh slower than the window would leave windows with at most one
	// snapshot, defeating aggregation.
	if a.RefreshSeconds > 0 && a.FrequencyMinutes > 0 &&
		a.RefreshSeconds >= a.FrequencyMinutes*secondsPerMinute {
		errs = append(errs, fmt.Errorf("%s: refresh_seconds (%d) must be less than frequency_minutes*60 (%d)",
			prefix, a.RefreshSeconds, a.FrequencyMinutes*secondsPerMinute))
	}

	return errs
}

func validateStorage(s *StorageConfig, prefix string) []error {
	var errs []error

	if s.Type == "" {
		errs = append(errs, fmt.Errorf("%s: type must not be empty", prefix))
	} else if !knownStorageTypes[s.Type] {
		errs = append(errs, fmt.Errorf("%s: unknown storage type %q", prefix, s.Type))
	}

	return errs
}
