// Package config implements TOML configuration loading, defaulting, and
// validation for the aggregator pipeline.
package config

import "github.com/tonimelisma/gtfsrt-aggregator/internal/gtfs"

// Config is the top-level configuration document: one default storage plus
// one or more providers. Immutable after Load.
type Config struct {
	Storage   StorageConfig    `toml:"storage"`
	Providers []ProviderConfig `toml:"providers"`
}

// StorageConfig selects a storage backend and its parameters.
type StorageConfig struct {
	Type   string            `toml:"type"`
	Params map[string]string `toml:"params"`
}

// ProviderConfig is a named group of feeds sharing one timezone and,
// optionally, a dedicated storage backend overriding the global one.
type ProviderConfig struct {
	Name     string         `toml:"name"`
	Timezone string         `toml:"timezone"`
	Storage  *StorageConfig `toml:"storage"`
	Apis     []ApiConfig    `toml:"apis"`
}

// ApiConfig is one fetchable feed endpoint.
type ApiConfig struct {
	URL                  string   `toml:"url"`
	Services             []string `toml:"services"`
	RefreshSeconds       int      `toml:"refresh_seconds"`
	FrequencyMinutes     int      `toml:"frequency_minutes"`
	CheckIntervalSeconds int      `toml:"check_interval_seconds"`
}

// ServiceTypes returns the api's services as typed values. Call only after
// Validate has accepted the config.
func (a *ApiConfig) ServiceTypes() []gtfs.ServiceType {
	out := make([]gtfs.ServiceType, 0, len(a.Services))

	for _, s := range a.Services {
		out = append(out, gtfs.ServiceType(s))
	}

	return out
}
