package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const DefaultCapacity = 6

type ParkingLot struct {
	capacity int
	spots    []*Spot
	store    TransactionStore
	clock    Clock
	fee      FeePolicy
}

type Option func(*ParkingLot)

func WithClock(clock Clock) Option {
	return func(pl *ParkingLot) {
		pl.clock = clock
	}
}

func WithFeePolicy(policy FeePolicy) Option {
	return func(pl *ParkingLot) {
		pl.fee = policy
	}
}

// NewParkingLot creates a lot with capacity spots indexed from 0. A
// non-positive capacity falls back to DefaultCapacity.
func NewParkingLot(capacity int, store TransactionStore, opts ...Option) *ParkingLot {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	spots := make([]*Spot, capacity)
	for i := 0; i < capacity; i++ {
		spots[i] = NewSpot(i)
	}

	pl := &ParkingLot{
		capacity: capacity,
		spots:    spots,
		store:    store,
		clock:    SystemClock{},
		fee:      ComputeFee,
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

func (pl *ParkingLot) Capacity() int {
	return pl.capacity
}

func (pl *ParkingLot) spot(index int) (*Spot, error) {
	if index < 0 || index >= pl.capacity {
		return nil, fmt.Errorf("spot %d not in [0, %d): %w", index, pl.capacity, ErrInvalidSpotIndex)
	}
	return pl.spots[index], nil
}

func (pl *ParkingLot) Park(ctx context.Context, index int, plate string) (Occupancy, error) {
	spot, err := pl.spot(index)
	if err != nil {
		return Occupancy{}, err
	}

	plate = strings.TrimSpace(plate)
	if plate == "" {
		return Occupancy{}, ErrInvalidPlate
	}

	spot.mu.Lock()
	defer spot.mu.Unlock()

	if spot.occupancy != nil {
		return Occupancy{}, fmt.Errorf("spot %d: %w", index, ErrSpotOccupied)
	}

	return spot.park(plate, pl.clock.Now()), nil
}

// Release ends the occupancy of a spot and records the resulting transaction.
// The spot is only cleared once the store has accepted the transaction; on
// store failure the occupancy is kept and the error wraps ErrIOFailure.
func (pl *ParkingLot) Release(ctx context.Context, index int) (Transaction, error) {
	spot, err := pl.spot(index)
	if err != nil {
		return Transaction{}, err
	}

	spot.mu.Lock()
	defer spot.mu.Unlock()

	if spot.occupancy == nil {
		return Transaction{}, fmt.Errorf("spot %d: %w", index, ErrSpotEmpty)
	}

	exit := pl.clock.Now()
	minutes := int(exit.Sub(spot.occupancy.EntryTime).Seconds()) / 60
	if minutes < 0 {
		minutes = 0
	}

	tx := Transaction{
		SpotIndex:       index,
		Plate:           spot.occupancy.Plate,
		DurationMinutes: minutes,
		Fee:             pl.fee(minutes),
		ExitTime:        exit,
	}

	if pl.store != nil {
		if err := pl.store.Append(ctx, tx); err != nil {
			if !errors.Is(err, ErrIOFailure) {
				err = fmt.Errorf("%w: %w", ErrIOFailure, err)
			}
			return Transaction{}, fmt.Errorf("release spot %d: %w", index, err)
		}
	}

	spot.leave()
	return tx, nil
}

// Snapshot copies every spot's state. OccupiedCount is derived from the
// copied views, never cached.
func (pl *ParkingLot) Snapshot() Snapshot {
	snap := Snapshot{
		Capacity: pl.capacity,
		Spots:    make([]SpotView, 0, pl.capacity),
	}
	for _, spot := range pl.spots {
		v := spot.view()
		if v.State == SpotStateOccupied {
			snap.OccupiedCount++
		}
		snap.Spots = append(snap.Spots, v)
	}
	return snap
}

func (pl *ParkingLot) FindByPlate(plate string) (SpotView, error) {
	plate = strings.TrimSpace(plate)
	for _, spot := range pl.spots {
		if v := spot.view(); v.State == SpotStateOccupied && v.Plate == plate {
			return v, nil
		}
	}
	return SpotView{}, ErrVehicleNotFound
}
