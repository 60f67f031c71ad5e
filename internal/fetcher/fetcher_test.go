package fetcher_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/config"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/feed"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/fetcher"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/gtfs"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/scheduler"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/storage"
	"github.com/tonimelisma/gtfsrt-aggregator/testutil"
)

var feedServer *testutil.FeedServer

func TestMain(m *testing.M) {
	var err error

	feedServer, err = testutil.StartFeedServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting mock feed server: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	feedServer.Stop()
	os.Exit(code)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// individualBasename is the filename contract for persisted snapshots.
var individualBasename = regexp.MustCompile(`^individual_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.parquet$`)

func testConfig(urls ...string) *config.Config {
	apis := make([]config.ApiConfig, 0, len(urls))

	services := map[string][]string{
		"/alerts":            {"Alert"},
		"/trip_updates":      {"TripUpdate"},
		"/vehicle_positions": {"VehiclePosition"},
	}

	for _, u := range urls {
		apis = append(apis, config.ApiConfig{
			URL:                  u,
			Services:             services["/"+path.Base(u)],
			RefreshSeconds:       60,
			FrequencyMinutes:     15,
			CheckIntervalSeconds: 300,
		})
	}

	return &config.Config{
		Storage: config.StorageConfig{Type: "memory"},
		Providers: []config.ProviderConfig{
			{Name: "test_provider", Timezone: "UTC", Apis: apis},
		},
	}
}

func newService(t *testing.T, cfg *config.Config, st storage.Storage) *fetcher.Service {
	t.Helper()

	reg := storage.Registry{storage.GlobalKey: st}

	svc, err := fetcher.New(cfg, reg, feed.NewClient(0, testLogger()), testLogger())
	require.NoError(t, err)

	return svc
}

func TestRunOncePersistsOneFilePerService(t *testing.T) {
	for _, tc := range []struct {
		endpoint string
		service  gtfs.ServiceType
	}{
		{endpoint: "/alerts", service: gtfs.ServiceAlert},
		{endpoint: "/trip_updates", service: gtfs.ServiceTripUpdate},
		{endpoint: "/vehicle_positions", service: gtfs.ServiceVehiclePosition},
	} {
		t.Run(string(tc.service), func(t *testing.T) {
			st := storage.NewMemory()
			url := feedServer.URL(tc.endpoint)
			svc := newService(t, testConfig(url), st)

			fetchTime := time.Date(2023, 6, 15, 9, 30, 45, 0, time.UTC)
			svc.SetNow(func() time.Time { return fetchTime })

			svc.RunOnce(context.Background(), "test_provider", url)

			prefix := fmt.Sprintf("test_provider/%s/individual/", tc.service)

			files, err := st.List(context.Background(), prefix, "")
			require.NoError(t, err)
			require.Len(t, files, 1)

			base := path.Base(files[0])
			assert.Regexp(t, individualBasename, base)

			// The filename timestamp round-trips to the fetch instant.
			stamp := base[len("individual_") : len(base)-len(".parquet")]

			parsed, err := time.ParseInLocation(fetcher.FilenameTimeLayout, stamp, time.UTC)
			require.NoError(t, err)
			assert.True(t, parsed.Equal(fetchTime))

			// The payload is a readable snapshot with rows and fetch_time.
			data, err := st.Get(context.Background(), files[0])
			require.NoError(t, err)

			snap, err := gtfs.Unmarshal(data, tc.service)
			require.NoError(t, err)
			assert.Greater(t, snap.Len(), 0)
			assert.Equal(t, fetchTime, snap.FetchTime)
		})
	}
}

func TestRunOnceUsesProviderTimezoneInFilename(t *testing.T) {
	st := storage.NewMemory()
	url := feedServer.URL("/alerts")

	cfg := testConfig(url)
	cfg.Providers[0].Timezone = "Europe/Helsinki"

	svc := newService(t, cfg, st)

	// 09:30 UTC is 12:30 in Helsinki (summer, UTC+3).
	fetchTime := time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return fetchTime })

	svc.RunOnce(context.Background(), "test_provider", url)

	files, err := st.List(context.Background(), "test_provider/Alert/individual/", "")
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Contains(t, files[0], "individual_2023-06-15_12-30-00.parquet")
}

func TestRunOnceFetchFailureLeavesNoFile(t *testing.T) {
	st := storage.NewMemory()
	url := feedServer.URL("/no_such_feed")

	cfg := testConfig(url)
	cfg.Providers[0].Apis[0].Services = []string{"Alert"}

	svc := newService(t, cfg, st)

	// A 404 is a FetchError: logged, swallowed, nothing persisted.
	svc.RunOnce(context.Background(), "test_provider", url)

	assert.Zero(t, st.Len())
}

func TestRunOnceUnknownTarget(t *testing.T) {
	st := storage.NewMemory()
	svc := newService(t, testConfig(feedServer.URL("/alerts")), st)

	svc.RunOnce(context.Background(), "test_provider", "http://unregistered/feed")

	assert.Zero(t, st.Len())
}

func TestRunOnceSplitsMultiServiceApi(t *testing.T) {
	st := storage.NewMemory()
	url := feedServer.URL("/vehicle_positions")

	cfg := testConfig(url)
	// One URL configured for two service types: the persisted paths must
	// stay single-service.
	cfg.Providers[0].Apis[0].Services = []string{"VehiclePosition", "Alert"}

	svc := newService(t, cfg, st)
	svc.RunOnce(context.Background(), "test_provider", url)

	vpFiles, err := st.List(context.Background(), "test_provider/VehiclePosition/individual/", "")
	require.NoError(t, err)
	assert.Len(t, vpFiles, 1)

	// The fixture has no alerts; the split still writes an empty snapshot.
	alertFiles, err := st.List(context.Background(), "test_provider/Alert/individual/", "")
	require.NoError(t, err)
	require.Len(t, alertFiles, 1)

	data, err := st.Get(context.Background(), alertFiles[0])
	require.NoError(t, err)

	snap, err := gtfs.Unmarshal(data, gtfs.ServiceAlert)
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestJobsDescriptors(t *testing.T) {
	urls := []string{
		feedServer.URL("/alerts"),
		feedServer.URL("/trip_updates"),
		feedServer.URL("/vehicle_positions"),
	}

	svc := newService(t, testConfig(urls...), storage.NewMemory())

	jobs := svc.Jobs()
	require.Len(t, jobs, 3)

	names := make(map[string]scheduler.Job, len(jobs))

	for _, job := range jobs {
		assert.Equal(t, 60*time.Second, job.Interval)
		assert.NotNil(t, job.Task)
		assert.Contains(t, job.Name, "fetch/test_provider/")

		names[job.Name] = job
	}

	// Names are deterministic and unique per (provider, api).
	require.Len(t, names, 3)
	assert.Contains(t, names, fetcher.JobName("test_provider", urls[0]))

	// A descriptor's task is runnable as-is.
	st := storage.NewMemory()
	svc2 := newService(t, testConfig(urls[0]), st)

	svc2.Jobs()[0].Task(context.Background())
	assert.Equal(t, 1, st.Len())
}
