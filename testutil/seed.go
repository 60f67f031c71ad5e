package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/fetcher"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/gtfs"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/storage"
)

// rowsPerSeededFile is the row count of each synthetic snapshot.
const rowsPerSeededFile = 5

// SeedIndividualFiles writes count synthetic individual snapshot files for
// the provider and service, spaced by spacing starting at baseTime. Each
// file carries rowsPerSeededFile rows whose fetch_time equals the file's
// timestamp. Returns the created paths in chronological order.
func SeedIndividualFiles(
	ctx context.Context,
	st storage.Storage,
	provider string,
	service gtfs.ServiceType,
	count int,
	baseTime time.Time,
	spacing time.Duration,
	loc *time.Location,
) ([]string, error) {
	paths := make([]string, 0, count)

	for i := range count {
		ts := baseTime.Add(time.Duration(i) * spacing)

		snap := SyntheticSnapshot(service, ts, rowsPerSeededFile, i)

		data, err := gtfs.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("testutil: marshaling seed snapshot %d: %w", i, err)
		}

		p := fetcher.IndividualPath(provider, service, ts, loc)

		if _, err := st.Put(ctx, p, data); err != nil {
			return nil, fmt.Errorf("testutil: seeding %s: %w", p, err)
		}

		paths = append(paths, p)
	}

	return paths, nil
}

// SyntheticSnapshot builds an in-memory snapshot with n rows at fetchTime.
// seq distinguishes rows across files so concatenation order is checkable.
func SyntheticSnapshot(service gtfs.ServiceType, fetchTime time.Time, n, seq int) *gtfs.Snapshot {
	snap := gtfs.NewSnapshot(service, fetchTime)
	millis := fetchTime.UTC().UnixMilli()

	for j := range n {
		id := fmt.Sprintf("seed-%d-%d", seq, j)

		switch service {
		case gtfs.ServiceVehiclePosition:
			lat := float32(60.0)
			snap.VehiclePositions = append(snap.VehiclePositions, gtfs.VehiclePositionRow{
				EntityID:  id,
				Latitude:  &lat,
				FetchTime: millis,
			})
		case gtfs.ServiceTripUpdate:
			snap.TripUpdates = append(snap.TripUpdates, gtfs.TripUpdateRow{
				EntityID:  id,
				FetchTime: millis,
			})
		case gtfs.ServiceAlert:
			snap.Alerts = append(snap.Alerts, gtfs.AlertRow{
				EntityID:  id,
				FetchTime: millis,
			})
		}
	}

	return snap
}
