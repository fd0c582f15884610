package store

import (
	"context"
	"errors"
	"sync"

	"github.com/dreamtumulus/andun/internal/model/subject"
)

var ErrEmptySubjectID = errors.New("subject id is required")

// Store is the keyed persistence contract for subject records. Get creates an
// empty default record on first access; Save merges the patch shallowly into
// the stored record, last writer wins.
type Store interface {
	Get(ctx context.Context, subjectID string) (subject.Record, error)
	Save(ctx context.Context, subjectID string, patch subject.Patch) error
}

// MemoryStore keeps records in a mutex-guarded map, suitable for demos and
// tests. Production deployments use the SQLite store behind the same contract.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]subject.Record
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]subject.Record)}
}

// Get returns a copy of the stored record, lazily creating an empty one.
func (s *MemoryStore) Get(_ context.Context, subjectID string) (subject.Record, error) {
	if subjectID == "" {
		return subject.Record{}, ErrEmptySubjectID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[subjectID]
	if !ok {
		rec = subject.Record{}
		s.records[subjectID] = rec
	}
	return rec.Clone(), nil
}

// Save merges the patch into the stored record.
func (s *MemoryStore) Save(_ context.Context, subjectID string, patch subject.Patch) error {
	if subjectID == "" {
		return ErrEmptySubjectID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[subjectID]
	patch.Apply(&rec)
	s.records[subjectID] = rec
	return nil
}
