// Package testutil provides shared helpers for unit and E2E tests: GTFS-RT
// fixture feeds, a mock feed server, and storage seeding.
package testutil

import (
	"fmt"

	rt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// feedHeader is the constant header shared by all fixture feeds.
func feedHeader() *rt.FeedHeader {
	return &rt.FeedHeader{
		GtfsRealtimeVersion: proto.String("2.0"),
		Incrementality:      rt.FeedHeader_FULL_DATASET.Enum(),
		Timestamp:           proto.Uint64(1672574400),
	}
}

// VehiclePositionFeed returns a marshaled FeedMessage with n vehicle
// position entities.
func VehiclePositionFeed(n int) []byte {
	msg := &rt.FeedMessage{Header: feedHeader()}

	for i := range n {
		msg.Entity = append(msg.Entity, &rt.FeedEntity{
			Id: proto.String(fmt.Sprintf("vehicle-%d", i)),
			Vehicle: &rt.VehiclePosition{
				Trip: &rt.TripDescriptor{
					TripId:  proto.String(fmt.Sprintf("trip-%d", i)),
					RouteId: proto.String("route-1"),
				},
				Vehicle: &rt.VehicleDescriptor{
					Id:    proto.String(fmt.Sprintf("bus-%d", i)),
					Label: proto.String(fmt.Sprintf("Bus %d", i)),
				},
				Position: &rt.Position{
					Latitude:  proto.Float32(60.17 + float32(i)*0.001),
					Longitude: proto.Float32(24.94 + float32(i)*0.001),
					Speed:     proto.Float32(8.5),
				},
				CurrentStatus: rt.VehiclePosition_IN_TRANSIT_TO.Enum(),
				Timestamp:     proto.Uint64(uint64(1672574400 + i)),
			},
		})
	}

	return mustMarshal(msg)
}

// TripUpdateFeed returns a marshaled FeedMessage with n trip update
// entities of two stop time updates each.
func TripUpdateFeed(n int) []byte {
	msg := &rt.FeedMessage{Header: feedHeader()}

	for i := range n {
		msg.Entity = append(msg.Entity, &rt.FeedEntity{
			Id: proto.String(fmt.Sprintf("trip-update-%d", i)),
			TripUpdate: &rt.TripUpdate{
				Trip: &rt.TripDescriptor{
					TripId:  proto.String(fmt.Sprintf("trip-%d", i)),
					RouteId: proto.String("route-2"),
				},
				StopTimeUpdate: []*rt.TripUpdate_StopTimeUpdate{
					{
						StopSequence: proto.Uint32(1),
						StopId:       proto.String("stop-a"),
						Arrival: &rt.TripUpdate_StopTimeEvent{
							Delay: proto.Int32(30),
						},
					},
					{
						StopSequence: proto.Uint32(2),
						StopId:       proto.String("stop-b"),
						Departure: &rt.TripUpdate_StopTimeEvent{
							Delay: proto.Int32(45),
						},
					},
				},
			},
		})
	}

	return mustMarshal(msg)
}

// AlertFeed returns a marshaled FeedMessage with n alert entities.
func AlertFeed(n int) []byte {
	msg := &rt.FeedMessage{Header: feedHeader()}

	for i := range n {
		msg.Entity = append(msg.Entity, &rt.FeedEntity{
			Id: proto.String(fmt.Sprintf("alert-%d", i)),
			Alert: &rt.Alert{
				ActivePeriod: []*rt.TimeRange{
					{Start: proto.Uint64(1672570800), End: proto.Uint64(1672592400)},
				},
				InformedEntity: []*rt.EntitySelector{
					{RouteId: proto.String("route-3")},
				},
				Cause:  rt.Alert_MAINTENANCE.Enum(),
				Effect: rt.Alert_DETOUR.Enum(),
				HeaderText: &rt.TranslatedString{
					Translation: []*rt.TranslatedString_Translation{
						{Text: proto.String(fmt.Sprintf("Detour %d", i)), Language: proto.String("en")},
					},
				},
			},
		})
	}

	return mustMarshal(msg)
}

func mustMarshal(msg *rt.FeedMessage) []byte {
	data, err := proto.Marshal(msg)
	if err != nil {
		panic(fmt.Sprintf("marshaling fixture feed: %v", err))
	}

	return data
}
