package parking

import "errors"

var (
	ErrInvalidSpotIndex = errors.New("invalid spot index")
	ErrInvalidPlate     = errors.New("invalid plate")
	ErrSpotOccupied     = errors.New("spot is already occupied")
	ErrSpotEmpty        = errors.New("spot is already empty")
	ErrVehicleNotFound  = errors.New("vehicle not found")

	// ErrIOFailure wraps any failure to durably record a transaction.
	ErrIOFailure = errors.New("transaction store failure")
)
