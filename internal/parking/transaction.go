package parking

import (
	"context"
	"time"
)

// ExitTimeLayout is how exit times are rendered in the transaction log, in
// local time.
const ExitTimeLayout = "2006-01-02 15:04:05"

// Transaction is the billing record produced when an occupancy ends.
type Transaction struct {
	SpotIndex       int
	Plate           string
	DurationMinutes int
	Fee             Money
	ExitTime        time.Time
}

// TransactionStore durably records completed transactions. Implementations
// must wrap failures with ErrIOFailure.
type TransactionStore interface {
	Append(ctx context.Context, tx Transaction) error
}

// SpotView is a read-only copy of one spot's state.
type SpotView struct {
	Index     int        `json:"index"`
	State     SpotState  `json:"state"`
	Plate     string     `json:"plate,omitempty"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
}

type Snapshot struct {
	Capacity      int        `json:"capacity"`
	OccupiedCount int        `json:"occupied"`
	Spots         []SpotView `json:"spots"`
}

func (s Snapshot) Available() int {
	return s.Capacity - s.OccupiedCount
}
