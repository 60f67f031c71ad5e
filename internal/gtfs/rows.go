package gtfs

// Flattened row schemas, one struct per service type. One row corresponds to
// one feed entity, except TripUpdateRow where the trip header is repeated for
// each stop time update so a row stays self-describing. Optional protobuf
// fields map to pointer columns; enums are stored by name. Every schema
// carries fetch_time as TIMESTAMP_MILLIS in UTC.

// VehiclePositionRow is one vehicle observation.
type VehiclePositionRow struct {
	EntityID             string   `parquet:"name=entity_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	TripID               *string  `parquet:"name=trip_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	RouteID              *string  `parquet:"name=route_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	DirectionID          *int32   `parquet:"name=direction_id, type=INT32, repetitiontype=OPTIONAL"`
	StartTime            *string  `parquet:"name=start_time, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	StartDate            *string  `parquet:"name=start_date, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ScheduleRelationship *string  `parquet:"name=schedule_relationship, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	VehicleID            *string  `parquet:"name=vehicle_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	VehicleLabel         *string  `parquet:"name=vehicle_label, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LicensePlate         *string  `parquet:"name=license_plate, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Latitude             *float32 `parquet:"name=latitude, type=FLOAT, repetitiontype=OPTIONAL"`
	Longitude            *float32 `parquet:"name=longitude, type=FLOAT, repetitiontype=OPTIONAL"`
	Bearing              *float32 `parquet:"name=bearing, type=FLOAT, repetitiontype=OPTIONAL"`
	Odometer             *float64 `parquet:"name=odometer, type=DOUBLE, repetitiontype=OPTIONAL"`
	Speed                *float32 `parquet:"name=speed, type=FLOAT, repetitiontype=OPTIONAL"`
	CurrentStopSequence  *int32   `parquet:"name=current_stop_sequence, type=INT32, repetitiontype=OPTIONAL"`
	StopID               *string  `parquet:"name=stop_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	CurrentStatus        *string  `parquet:"name=current_status, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	CongestionLevel      *string  `parquet:"name=congestion_level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	OccupancyStatus      *string  `parquet:"name=occupancy_status, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Timestamp            *int64   `parquet:"name=timestamp, type=INT64, repetitiontype=OPTIONAL"`
	FetchTime            int64    `parquet:"name=fetch_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// TripUpdateRow is one stop time update within a trip update entity.
type TripUpdateRow struct {
	EntityID             string  `parquet:"name=entity_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	TripID               *string `parquet:"name=trip_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	RouteID              *string `parquet:"name=route_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	DirectionID          *int32  `parquet:"name=direction_id, type=INT32, repetitiontype=OPTIONAL"`
	StartTime            *string `parquet:"name=start_time, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	StartDate            *string `parquet:"name=start_date, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	TripScheduleRelation *string `parquet:"name=trip_schedule_relationship, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	VehicleID            *string `parquet:"name=vehicle_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	VehicleLabel         *string `parquet:"name=vehicle_label, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	StopSequence         *int32  `parquet:"name=stop_sequence, type=INT32, repetitiontype=OPTIONAL"`
	StopID               *string `parquet:"name=stop_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ArrivalDelay         *int32  `parquet:"name=arrival_delay, type=INT32, repetitiontype=OPTIONAL"`
	ArrivalTime          *int64  `parquet:"name=arrival_time, type=INT64, repetitiontype=OPTIONAL"`
	ArrivalUncertainty   *int32  `parquet:"name=arrival_uncertainty, type=INT32, repetitiontype=OPTIONAL"`
	DepartureDelay       *int32  `parquet:"name=departure_delay, type=INT32, repetitiontype=OPTIONAL"`
	DepartureTime        *int64  `parquet:"name=departure_time, type=INT64, repetitiontype=OPTIONAL"`
	DepartureUncertainty *int32  `parquet:"name=departure_uncertainty, type=INT32, repetitiontype=OPTIONAL"`
	StopScheduleRelation *string `parquet:"name=stop_schedule_relationship, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Timestamp            *int64  `parquet:"name=timestamp, type=INT64, repetitiontype=OPTIONAL"`
	Delay                *int32  `parquet:"name=delay, type=INT32, repetitiontype=OPTIONAL"`
	FetchTime            int64   `parquet:"name=fetch_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// AlertRow is one service alert entity. Repeated sub-messages (active
// periods, informed entities) are collapsed: the first active period is
// kept as the range, informed entities are joined into summary columns,
// and translated strings take their first translation.
type AlertRow struct {
	EntityID          string  `parquet:"name=entity_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ActivePeriodStart *int64  `parquet:"name=active_period_start, type=INT64, repetitiontype=OPTIONAL"`
	ActivePeriodEnd   *int64  `parquet:"name=active_period_end, type=INT64, repetitiontype=OPTIONAL"`
	AgencyIDs         *string `parquet:"name=agency_ids, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	RouteIDs          *string `parquet:"name=route_ids, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	StopIDs           *string `parquet:"name=stop_ids, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Cause             *string `parquet:"name=cause, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Effect            *string `parquet:"name=effect, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	URL               *string `parquet:"name=url, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	HeaderText        *string `parquet:"name=header_text, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	DescriptionText   *string `parquet:"name=description_text, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	FetchTime         int64   `parquet:"name=fetch_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}
