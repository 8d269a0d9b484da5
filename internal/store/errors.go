package store

import (
	"errors"
	"fmt"

	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

var ErrClosed = errors.New("store is closed")

func wrapIO(err error) error {
	if err == nil || errors.Is(err, parking.ErrIOFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", parking.ErrIOFailure, err)
}
