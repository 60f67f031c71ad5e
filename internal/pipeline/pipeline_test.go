package pipeline_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/config"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Type: "memory"},
		Providers: []config.ProviderConfig{
			{
				Name:     "test_provider",
				Timezone: "UTC",
				Apis: []config.ApiConfig{
					{
						URL:                  "http://localhost:8788/vehicle_positions",
						Services:             []string{"VehiclePosition"},
						RefreshSeconds:       60,
						FrequencyMinutes:     15,
						CheckIntervalSeconds: 300,
					},
					{
						URL:                  "http://localhost:8788/alerts",
						Services:             []string{"Alert"},
						RefreshSeconds:       120,
						FrequencyMinutes:     60,
						CheckIntervalSeconds: 600,
					},
				},
			},
		},
	}
}

func TestNewRegistersAllJobs(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(testConfig(), testLogger())
	require.NoError(t, err)

	jobs := pipe.Jobs()

	// 2 fetch jobs + 2 aggregation jobs (VehiclePosition, Alert).
	require.Len(t, jobs, 4)

	var fetchJobs, aggJobs int

	for _, job := range jobs {
		switch {
		case strings.HasPrefix(job.Name, "fetch/"):
			fetchJobs++
		case strings.HasPrefix(job.Name, "aggregate/"):
			aggJobs++
		default:
			t.Errorf("unexpected job name %q", job.Name)
		}

		assert.Positive(t, job.Interval)
		assert.NotNil(t, job.Task)
		assert.Contains(t, job.Name, "test_provider")
	}

	assert.Equal(t, 2, fetchJobs)
	assert.Equal(t, 2, aggJobs)
}

func TestNewRejectsBadStorage(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Storage.Type = "filesystem" // missing params.directory

	_, err := pipeline.New(cfg, testLogger())
	assert.Error(t, err)
}

func TestNewBuildsProviderStorageOverride(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Providers[0].Storage = &config.StorageConfig{
		Type:   "filesystem",
		Params: map[string]string{"directory": t.TempDir()},
	}

	pipe, err := pipeline.New(cfg, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, pipe)
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(testConfig(), testLogger())
	require.NoError(t, err)

	pipe.Start()
	pipe.Start() // idempotent

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, pipe.Stop(ctx))
}
