package parking

import (
	"sync"
	"time"
)

type SpotState string

const (
	SpotStateEmpty    SpotState = "empty"
	SpotStateOccupied SpotState = "occupied"
)

// Occupancy is the vehicle currently parked in a spot.
type Occupancy struct {
	SpotIndex int       `json:"spot_index"`
	Plate     string    `json:"plate"`
	EntryTime time.Time `json:"entry_time"`
}

// Spot holds at most one Occupancy. The mutex serializes every transition
// of this spot, including the store append on release.
type Spot struct {
	Index int

	mu        sync.Mutex
	occupancy *Occupancy
}

func NewSpot(index int) *Spot {
	return &Spot{Index: index}
}

func (s *Spot) IsOccupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupancy != nil
}

// park and leave expect s.mu to be held.
func (s *Spot) park(plate string, entry time.Time) Occupancy {
	s.occupancy = &Occupancy{
		SpotIndex: s.Index,
		Plate:     plate,
		EntryTime: entry,
	}
	return *s.occupancy
}

func (s *Spot) leave() Occupancy {
	occupancy := *s.occupancy
	s.occupancy = nil
	return occupancy
}

func (s *Spot) view() SpotView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SpotView{Index: s.Index, State: SpotStateEmpty}
	if s.occupancy != nil {
		entry := s.occupancy.EntryTime
		v.State = SpotStateOccupied
		v.Plate = s.occupancy.Plate
		v.EntryTime = &entry
	}
	return v
}
