package gtfs

import (
	"fmt"
	"time"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetParallelism is the encoder/decoder goroutine count. Snapshots are
// small (one fetch worth of rows), so a single lane is enough.
const parquetParallelism = 1

// Marshal serializes a snapshot to Parquet bytes with snappy compression.
// An empty snapshot produces a valid zero-row file that still carries the
// service type's full schema.
func Marshal(s *Snapshot) ([]byte, error) {
	fw := buffer.NewBufferFile()

	pw, err := newRowWriter(fw, s.Service)
	if err != nil {
		return nil, fmt.Errorf("creating parquet writer for %s: %w", s.Service, err)
	}

	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	switch s.Service {
	case ServiceVehiclePosition:
		for i := range s.VehiclePositions {
			if err := pw.Write(s.VehiclePositions[i]); err != nil {
				return nil, fmt.Errorf("writing vehicle position row: %w", err)
			}
		}
	case ServiceTripUpdate:
		for i := range s.TripUpdates {
			if err := pw.Write(s.TripUpdates[i]); err != nil {
				return nil, fmt.Errorf("writing trip update row: %w", err)
			}
		}
	case ServiceAlert:
		for i := range s.Alerts {
			if err := pw.Write(s.Alerts[i]); err != nil {
				return nil, fmt.Errorf("writing alert row: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("marshaling snapshot: unknown service type %q", s.Service)
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalizing parquet file: %w", err)
	}

	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("closing parquet buffer: %w", err)
	}

	return fw.Bytes(), nil
}

// Unmarshal reads Parquet bytes back into a snapshot of the given service
// type. FetchTime is taken from the first row's fetch_time column (zero for
// an empty file).
func Unmarshal(data []byte, service ServiceType) (*Snapshot, error) {
	fr := buffer.NewBufferFileFromBytes(data)
	defer fr.Close()

	snap := NewSnapshot(service, time.Time{})

	switch service {
	case ServiceVehiclePosition:
		rows, err := readRows[VehiclePositionRow](fr)
		if err != nil {
			return nil, err
		}

		snap.VehiclePositions = rows
		if len(rows) > 0 {
			snap.FetchTime = time.UnixMilli(rows[0].FetchTime).UTC()
		}
	case ServiceTripUpdate:
		rows, err := readRows[TripUpdateRow](fr)
		if err != nil {
			return nil, err
		}

		snap.TripUpdates = rows
		if len(rows) > 0 {
			snap.FetchTime = time.UnixMilli(rows[0].FetchTime).UTC()
		}
	case ServiceAlert:
		rows, err := readRows[AlertRow](fr)
		if err != nil {
			return nil, err
		}

		snap.Alerts = rows
		if len(rows) > 0 {
			snap.FetchTime = time.UnixMilli(rows[0].FetchTime).UTC()
		}
	default:
		return nil, fmt.Errorf("unmarshaling snapshot: unknown service type %q", service)
	}

	return snap, nil
}

func newRowWriter(fw source.ParquetFile, service ServiceType) (*writer.ParquetWriter, error) {
	switch service {
	case ServiceVehiclePosition:
		return writer.NewParquetWriter(fw, new(VehiclePositionRow), parquetParallelism)
	case ServiceTripUpdate:
		return writer.NewParquetWriter(fw, new(TripUpdateRow), parquetParallelism)
	case ServiceAlert:
		return writer.NewParquetWriter(fw, new(AlertRow), parquetParallelism)
	default:
		return nil, fmt.Errorf("unknown service type %q", service)
	}
}

func readRows[T any](fr source.ParquetFile) ([]T, error) {
	pr, err := reader.NewParquetReader(fr, new(T), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("creating parquet reader: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	if num == 0 {
		return nil, nil
	}

	rows := make([]T, num)
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("reading parquet rows: %w", err)
	}

	return rows, nil
}
