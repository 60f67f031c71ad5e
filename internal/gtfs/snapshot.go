package gtfs

import (
	"fmt"
	"time"
)

// Snapshot is the in-memory tabular result of decoding one fetch for one
// service type. Exactly one of the row slices is populated, matching
// Service. FetchTime is the UTC instant of the fetch; every row carries it
// in its fetch_time column.
type Snapshot struct {
	Service   ServiceType
	FetchTime time.Time

	VehiclePositions []VehiclePositionRow
	TripUpdates      []TripUpdateRow
	Alerts           []AlertRow
}

// NewSnapshot returns an empty snapshot for the given service type.
// An empty snapshot still marshals to a schema-bearing Parquet file.
func NewSnapshot(service ServiceType, fetchTime time.Time) *Snapshot {
	return &Snapshot{Service: service, FetchTime: fetchTime.UTC()}
}

// Len returns the number of rows.
func (s *Snapshot) Len() int {
	switch s.Service {
	case ServiceVehiclePosition:
		return len(s.VehiclePositions)
	case ServiceTripUpdate:
		return len(s.TripUpdates)
	case ServiceAlert:
		return len(s.Alerts)
	default:
		return 0
	}
}

// Empty reports whether the snapshot has no rows.
func (s *Snapshot) Empty() bool {
	return s.Len() == 0
}

// Append concatenates other's rows onto s, preserving order. Both snapshots
// must be of the same service type. s keeps its own FetchTime; appended rows
// keep theirs in the fetch_time column.
func (s *Snapshot) Append(other *Snapshot) error {
	if other == nil {
		return nil
	}

	if s.Service != other.Service {
		return fmt.Errorf("append %s rows to %s snapshot", other.Service, s.Service)
	}

	s.VehiclePositions = append(s.VehiclePositions, other.VehiclePositions...)
	s.TripUpdates = append(s.TripUpdates, other.TripUpdates...)
	s.Alerts = append(s.Alerts, other.Alerts...)

	return nil
}

// FetchTimes returns the distinct fetch_time column values, in row order.
// Used by aggregation tests to check window membership.
func (s *Snapshot) FetchTimes() []time.Time {
	seen := make(map[int64]struct{})

	var out []time.Time

	add := func(ms int64) {
		if _, ok := seen[ms]; ok {
			return
		}

		seen[ms] = struct{}{}
		out = append(out, time.UnixMilli(ms).UTC())
	}

	switch s.Service {
	case ServiceVehiclePosition:
		for i := range s.VehiclePositions {
			add(s.VehiclePositions[i].FetchTime)
		}
	case ServiceTripUpdate:
		for i := range s.TripUpdates {
			add(s.TripUpdates[i].FetchTime)
		}
	case ServiceAlert:
		for i := range s.Alerts {
			add(s.Alerts[i].FetchTime)
		}
	}

	return out
}
