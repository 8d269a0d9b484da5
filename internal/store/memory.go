package store

import (
	"context"
	"sync"

	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

// MemoryStore keeps transactions in process. FailWith makes the next
// appends fail, which is how tests exercise the ledger's IO failure path.
type MemoryStore struct {
	mu      sync.Mutex
	txs     []parking.Transaction
	failErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, tx parking.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return wrapIO(s.failErr)
	}
	s.txs = append(s.txs, tx)
	return nil
}

func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *MemoryStore) Transactions(_ context.Context) ([]parking.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}
