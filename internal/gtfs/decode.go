package gtfs

import (
	"fmt"
	"strings"
	"time"

	rt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Decode unmarshals a GTFS-RT FeedMessage and tabularizes it into one
// snapshot per requested service type. Entities not matching any requested
// type are ignored. Row order follows feed entity order. A valid feed with
// no matching entities yields empty snapshots, not an error.
func Decode(body []byte, services []ServiceType, fetchTime time.Time) (map[ServiceType]*Snapshot, error) {
	var msg rt.FeedMessage
	if err := proto.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshaling feed message: %w", err)
	}

	fetchTime = fetchTime.UTC()
	fetchMillis := fetchTime.UnixMilli()

	out := make(map[ServiceType]*Snapshot, len(services))
	for _, svc := range services {
		out[svc] = NewSnapshot(svc, fetchTime)
	}

	for _, entity := range msg.GetEntity() {
		id := entity.GetId()

		if v := entity.GetVehicle(); v != nil {
			if snap, ok := out[ServiceVehiclePosition]; ok {
				snap.VehiclePositions = append(snap.VehiclePositions, vehicleRow(id, v, fetchMillis))
			}
		}

		if tu := entity.GetTripUpdate(); tu != nil {
			if snap, ok := out[ServiceTripUpdate]; ok {
				snap.TripUpdates = append(snap.TripUpdates, tripUpdateRows(id, tu, fetchMillis)...)
			}
		}

		if a := entity.GetAlert(); a != nil {
			if snap, ok := out[ServiceAlert]; ok {
				snap.Alerts = append(snap.Alerts, alertRow(id, a, fetchMillis))
			}
		}
	}

	return out, nil
}

func vehicleRow(id string, v *rt.VehiclePosition, fetchMillis int64) VehiclePositionRow {
	row := VehiclePositionRow{EntityID: id, FetchTime: fetchMillis}

	if t := v.GetTrip(); t != nil {
		row.TripID = optString(t.TripId)
		row.RouteID = optString(t.RouteId)

		if t.DirectionId != nil {
			row.DirectionID = ptr(int32(t.GetDirectionId()))
		}

		row.StartTime = optString(t.StartTime)
		row.StartDate = optString(t.StartDate)

		if t.ScheduleRelationship != nil {
			row.ScheduleRelationship = ptr(t.GetScheduleRelationship().String())
		}
	}

	if d := v.GetVehicle(); d != nil {
		row.VehicleID = optString(d.Id)
		row.VehicleLabel = optString(d.Label)
		row.LicensePlate = optString(d.LicensePlate)
	}

	if p := v.GetPosition(); p != nil {
		row.Latitude = optFloat32(p.Latitude)
		row.Longitude = optFloat32(p.Longitude)
		row.Bearing = optFloat32(p.Bearing)
		row.Odometer = optFloat64(p.Odometer)
		row.Speed = optFloat32(p.Speed)
	}

	if v.CurrentStopSequence != nil {
		row.CurrentStopSequence = ptr(int32(v.GetCurrentStopSequence()))
	}

	row.StopID = optString(v.StopId)

	if v.CurrentStatus != nil {
		row.CurrentStatus = ptr(v.GetCurrentStatus().String())
	}

	if v.CongestionLevel != nil {
		row.CongestionLevel = ptr(v.GetCongestionLevel().String())
	}

	if v.OccupancyStatus != nil {
		row.OccupancyStatus = ptr(v.GetOccupancyStatus().String())
	}

	if v.Timestamp != nil {
		row.Timestamp = ptr(int64(v.GetTimestamp()))
	}

	return row
}

// tripUpdateRows flattens one trip update into one row per stop time
// update. A trip update without stop time updates still yields one row so
// the trip-level fields are not lost.
func tripUpdateRows(id string, tu *rt.TripUpdate, fetchMillis int64) []TripUpdateRow {
	base := TripUpdateRow{EntityID: id, FetchTime: fetchMillis}

	if t := tu.GetTrip(); t != nil {
		base.TripID = optString(t.TripId)
		base.RouteID = optString(t.RouteId)

		if t.DirectionId != nil {
			base.DirectionID = ptr(int32(t.GetDirectionId()))
		}

		base.StartTime = optString(t.StartTime)
		base.StartDate = optString(t.StartDate)

		if t.ScheduleRelationship != nil {
			base.TripScheduleRelation = ptr(t.GetScheduleRelationship().String())
		}
	}

	if d := tu.GetVehicle(); d != nil {
		base.VehicleID = optString(d.Id)
		base.VehicleLabel = optString(d.Label)
	}

	if tu.Timestamp != nil {
		base.Timestamp = ptr(int64(tu.GetTimestamp()))
	}

	if tu.Delay != nil {
		base.Delay = ptr(tu.GetDelay())
	}

	stus := tu.GetStopTimeUpdate()
	if len(stus) == 0 {
		return []TripUpdateRow{base}
	}

	rows := make([]TripUpdateRow, 0, len(stus))

	for _, stu := range stus {
		row := base

		if stu.StopSequence != nil {
			row.StopSequence = ptr(int32(stu.GetStopSequence()))
		}

		row.StopID = optString(stu.StopId)

		if arr := stu.GetArrival(); arr != nil {
			row.ArrivalDelay = optInt32(arr.Delay)
			row.ArrivalTime = optInt64(arr.Time)
			row.ArrivalUncertainty = optInt32(arr.Uncertainty)
		}

		if dep := stu.GetDeparture(); dep != nil {
			row.DepartureDelay = optInt32(dep.Delay)
			row.DepartureTime = optInt64(dep.Time)
			row.DepartureUncertainty = optInt32(dep.Uncertainty)
		}

		if stu.ScheduleRelationship != nil {
			row.StopScheduleRelation = ptr(stu.GetScheduleRelationship().String())
		}

		rows = append(rows, row)
	}

	return rows
}

func alertRow(id string, a *rt.Alert, fetchMillis int64) AlertRow {
	row := AlertRow{EntityID: id, FetchTime: fetchMillis}

	if periods := a.GetActivePeriod(); len(periods) > 0 {
		if periods[0].Start != nil {
			row.ActivePeriodStart = ptr(int64(periods[0].GetStart()))
		}

		if periods[0].End != nil {
			row.ActivePeriodEnd = ptr(int64(periods[0].GetEnd()))
		}
	}

	var agencies, routes, stops []string

	for _, sel := range a.GetInformedEntity() {
		if sel.AgencyId != nil {
			agencies = append(agencies, sel.GetAgencyId())
		}

		if sel.RouteId != nil {
			routes = append(routes, sel.GetRouteId())
		}

		if sel.StopId != nil {
			stops = append(stops, sel.GetStopId())
		}
	}

	row.AgencyIDs = joined(agencies)
	row.RouteIDs = joined(routes)
	row.StopIDs = joined(stops)

	if a.Cause != nil {
		row.Cause = ptr(a.GetCause().String())
	}

	if a.Effect != nil {
		row.Effect = ptr(a.GetEffect().String())
	}

	row.URL = firstTranslation(a.GetUrl())
	row.HeaderText = firstTranslation(a.GetHeaderText())
	row.DescriptionText = firstTranslation(a.GetDescriptionText())

	return row
}

func firstTranslation(ts *rt.TranslatedString) *string {
	if ts == nil {
		return nil
	}

	trs := ts.GetTranslation()
	if len(trs) == 0 {
		return nil
	}

	return ptr(trs[0].GetText())
}

func joined(vals []string) *string {
	if len(vals) == 0 {
		return nil
	}

	return ptr(strings.Join(vals, ","))
}

func ptr[T any](v T) *T { return &v }

func optString(v *string) *string {
	if v == nil {
		return nil
	}

	return ptr(*v)
}

func optInt32(v *int32) *int32 {
	if v == nil {
		return nil
	}

	return ptr(*v)
}

func optInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}

	return ptr(*v)
}

func optFloat32(v *float32) *float32 {
	if v == nil {
		return nil
	}

	return ptr(*v)
}

func optFloat64(v *float64) *float64 {
	if v == nil {
		return nil
	}

	return ptr(*v)
}
