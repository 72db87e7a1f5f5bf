// Package sessionstore defines persistence for assistant sessions.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/Gurpartap/horizons/conversation"
)

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionInvalid         = errors.New("session is invalid")
	ErrSessionVersionConflict = errors.New("session version conflict")
)

// Snapshot is the persisted form of a session. Version is managed by the
// store: zero on create, then incremented on every successful save.
type Snapshot struct {
	ID        string             `json:"id"`
	Version   int64              `json:"version"`
	State     conversation.State `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.State = s.State.Clone()
	return out
}

// Store persists session snapshots with optimistic version checks.
type Store interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
}
