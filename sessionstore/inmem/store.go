package inmem

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Gurpartap/horizons/sessionstore"
)

// Store persists session snapshots in memory with optimistic version checks.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]sessionstore.Snapshot
}

var _ sessionstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{snapshots: map[string]sessionstore.Snapshot{}}
}

func (s *Store) Save(ctx context.Context, snapshot sessionstore.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(snapshot.ID) == "" {
		return fmt.Errorf("%w: field=id reason=empty", sessionstore.ErrSessionInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.snapshots[snapshot.ID]
	switch {
	case !exists:
		if snapshot.Version != 0 {
			return fmt.Errorf(
				"%w: session %q expected version 0 on create, got %d",
				sessionstore.ErrSessionVersionConflict,
				snapshot.ID,
				snapshot.Version,
			)
		}
		next := snapshot.Clone()
		next.Version = 1
		s.snapshots[snapshot.ID] = next
		return nil
	case snapshot.Version != current.Version:
		return fmt.Errorf(
			"%w: session %q expected version %d, got %d",
			sessionstore.ErrSessionVersionConflict,
			snapshot.ID,
			current.Version,
			snapshot.Version,
		)
	default:
		next := snapshot.Clone()
		next.Version = current.Version + 1
		s.snapshots[snapshot.ID] = next
		return nil
	}
}

func (s *Store) Load(ctx context.Context, id string) (sessionstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return sessionstore.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return sessionstore.Snapshot{}, fmt.Errorf("%w: %q", sessionstore.ErrSessionNotFound, id)
	}
	return snapshot.Clone(), nil
}
