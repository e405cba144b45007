package store

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu          sync.RWMutex
	current     []byte
	checkpoints map[string][]byte
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{checkpoints: make(map[string][]byte)}
}

// Save replaces the current snapshot. Snapshots are kept gob-encoded.
func (s *MemStore) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	data, err := encodeGob(snap)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = data
	return nil
}

// Load returns the current snapshot.
func (s *MemStore) Load() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrSnapshotNotFound
	}
	return decodeSnapshot(s.current)
}

// PutCheckpoint stores snap under name.
func (s *MemStore) PutCheckpoint(name string, snap *Snapshot) error {
	if name == "" {
		return ErrInvalidName
	}
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	data, err := encodeGob(snap)
	if err != nil {
		return fmt.Errorf("store: encode checkpoint: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[name] = data
	return nil
}

// GetCheckpoint returns the checkpoint stored under name.
func (s *MemStore) GetCheckpoint(name string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.checkpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}
	return decodeSnapshot(data)
}

// Checkpoints lists checkpoint names.
func (s *MemStore) Checkpoints() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.checkpoints))
	for n := range s.checkpoints {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteCheckpoint removes a checkpoint.
func (s *MemStore) DeleteCheckpoint(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checkpoints[name]; !ok {
		return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}
	delete(s.checkpoints, name)
	return nil
}
