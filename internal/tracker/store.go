package tracker

import (
	"context"
	"sync"

	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
)

// Store persists product records. Implementations must serialize mutations
// per product and apply Update callbacks atomically: a callback error
// leaves the record untouched.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, productID uint64) (Record, error)
	Update(ctx context.Context, productID uint64, fn func(rec *Record) error) (Record, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	records map[uint64]*lockedRecord
}

type lockedRecord struct {
	mu  sync.Mutex
	rec Record
}

// NewMemoryStore returns the in-process store backing the ledger. The
// substrate's durability is assumed upstream; this process is the single
// writer.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[uint64]*lockedRecord)}
}

func (s *memoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Product.ProductID]; exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "product id already exists")
	}
	s.records[rec.Product.ProductID] = &lockedRecord{rec: rec.clone()}
	return nil
}

func (s *memoryStore) Get(_ context.Context, productID uint64) (Record, error) {
	s.mu.RLock()
	locked, ok := s.records[productID]
	s.mu.RUnlock()
	if !ok {
		return Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	locked.mu.Lock()
	defer locked.mu.Unlock()
	return locked.rec.clone(), nil
}

func (s *memoryStore) Update(_ context.Context, productID uint64, fn func(rec *Record) error) (Record, error) {
	s.mu.RLock()
	locked, ok := s.records[productID]
	s.mu.RUnlock()
	if !ok {
		return Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	locked.mu.Lock()
	defer locked.mu.Unlock()

	// Work on a copy so a failing callback leaves no partial effects.
	working := locked.rec.clone()
	if err := fn(&working); err != nil {
		return Record{}, err
	}
	locked.rec = working
	return working.clone(), nil
}
