package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedParkingLot struct {
	*ParkingLot
	telemetry *TelemetryProvider

	// Metrics
	parkingOperations metric.Int64Counter
	releaseOperations metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	feeCollected      metric.Float64Counter
	parkingDuration   metric.Int64Histogram
	operationDuration metric.Float64Histogram
	totalSlotsGauge   metric.Int64UpDownCounter
}

func NewInstrumentedParkingLot(lot *ParkingLot, telemetry *TelemetryProvider) (*InstrumentedParkingLot, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of park commands"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	releaseOperations, err := meter.Int64Counter("release_operations_total",
		metric.WithDescription("Total number of release commands"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	feeCollected, err := meter.Float64Counter("parking_fee_collected",
		metric.WithDescription("Sum of fees of recorded transactions"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, err
	}

	parkingDuration, err := meter.Int64Histogram("parking_duration_minutes",
		metric.WithDescription("Billed parking duration per transaction"),
		metric.WithUnit("min"),
		metric.WithExplicitBucketBoundaries(10, 20, 40, 80, 120, 240, 480, 1440))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_slots",
		metric.WithDescription("Total number of parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	ipl := &InstrumentedParkingLot{
		ParkingLot:        lot,
		telemetry:         telemetry,
		parkingOperations: parkingOperations,
		releaseOperations: releaseOperations,
		occupancyGauge:    occupancyGauge,
		feeCollected:      feeCollected,
		parkingDuration:   parkingDuration,
		operationDuration: operationDuration,
		totalSlotsGauge:   totalSlotsGauge,
	}

	totalSlotsGauge.Add(context.Background(), int64(lot.Capacity()))
	if occupied := lot.Snapshot().OccupiedCount; occupied > 0 {
		occupancyGauge.Add(context.Background(), int64(occupied))
	}

	return ipl, nil
}

func (ipl *InstrumentedParkingLot) Park(ctx context.Context, index int, plate string) (Occupancy, error) {
	tracer := ipl.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking_lot.park",
		trace.WithAttributes(
			attribute.Int("spot.index", index),
			attribute.String("vehicle.plate", plate),
		))
	defer span.End()

	start := time.Now()

	occupancy, err := ipl.ParkingLot.Park(ctx, index, plate)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", failureReason(err)),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.AddEvent("spot_occupied", trace.WithAttributes(
			attribute.Int("spot.index", occupancy.SpotIndex),
		))
		ipl.occupancyGauge.Add(ctx, 1)
	}

	ipl.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return occupancy, err
}

func (ipl *InstrumentedParkingLot) Release(ctx context.Context, index int) (Transaction, error) {
	tracer := ipl.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking_lot.release",
		trace.WithAttributes(
			attribute.Int("spot.index", index),
		))
	defer span.End()

	start := time.Now()

	tx, err := ipl.ParkingLot.Release(ctx, index)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "release"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", failureReason(err)),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.String("vehicle.plate", tx.Plate),
			attribute.Int("transaction.duration_minutes", tx.DurationMinutes),
			attribute.Float64("transaction.fee", tx.Fee.Float()),
		)
		span.AddEvent("spot_released")
		ipl.occupancyGauge.Add(ctx, -1)
		ipl.feeCollected.Add(ctx, tx.Fee.Float())
		ipl.parkingDuration.Record(ctx, int64(tx.DurationMinutes))
	}

	ipl.releaseOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return tx, err
}

func (ipl *InstrumentedParkingLot) Snapshot(ctx context.Context) Snapshot {
	tracer := ipl.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking_lot.snapshot")
	defer span.End()

	start := time.Now()

	snap := ipl.ParkingLot.Snapshot()

	duration := time.Since(start).Seconds()

	span.SetAttributes(
		attribute.Int("occupied_spots_count", snap.OccupiedCount),
		attribute.Int("total_capacity", snap.Capacity),
	)

	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "snapshot"),
		attribute.String("status", "success"),
	))

	return snap
}

func (ipl *InstrumentedParkingLot) FindByPlate(ctx context.Context, plate string) (SpotView, error) {
	tracer := ipl.telemetry.Tracer()
	_, span := tracer.Start(ctx, "parking_lot.find_by_plate",
		trace.WithAttributes(
			attribute.String("vehicle.plate", plate),
		))
	defer span.End()

	view, err := ipl.ParkingLot.FindByPlate(plate)
	if err != nil {
		span.AddEvent("vehicle_not_found")
		return view, err
	}

	span.AddEvent("vehicle_found", trace.WithAttributes(
		attribute.Int("spot.index", view.Index),
	))
	return view, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSpotIndex):
		return "invalid_spot_index"
	case errors.Is(err, ErrInvalidPlate):
		return "invalid_plate"
	case errors.Is(err, ErrSpotOccupied):
		return "spot_occupied"
	case errors.Is(err, ErrSpotEmpty):
		return "spot_empty"
	case errors.Is(err, ErrIOFailure):
		return "io_failure"
	default:
		return "unknown"
	}
}
