package config

// Per-api defaults applied before validation.
const (
	// DefaultFrequencyMinutes is the aggregation window width.
	DefaultFrequencyMinutes = 60
	// DefaultCheckIntervalSeconds is the aggregation tick cadence.
	DefaultCheckIntervalSeconds = 300
)

// applyDefaults fills unset optional api fields in place.
func applyDefaults(cfg *Config) {
	for pi := range cfg.Providers {
		for ai := range cfg.Providers[pi].Apis {
			api := &cfg.Providers[pi].Apis[ai]

			if api.FrequencyMinutes == 0 {
				api.FrequencyMinutes = DefaultFrequencyMinutes
			}

			if api.CheckIntervalSeconds == 0 {
				api.CheckIntervalSeconds = DefaultCheckIntervalSeconds
			}
		}
	}
}
