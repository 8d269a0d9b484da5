package parking

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 14, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingStore struct {
	mu  sync.Mutex
	txs []Transaction
	err error
}

func (s *recordingStore) Append(_ context.Context, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.txs = append(s.txs, tx)
	return nil
}

func (s *recordingStore) Transactions(_ context.Context) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transaction(nil), s.txs...), nil
}

func (s *recordingStore) recorded() []Transaction {
	txs, _ := s.Transactions(context.Background())
	return txs
}

func newTestLot(capacity int) (*ParkingLot, *recordingStore, *fakeClock) {
	store := &recordingStore{}
	clock := newFakeClock()
	return NewParkingLot(capacity, store, WithClock(clock)), store, clock
}
