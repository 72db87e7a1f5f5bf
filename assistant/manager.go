package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gurpartap/horizons/sessionstore"
)

// Manager creates and tracks sessions. Sessions share the service and the
// store but no conversation state.
type Manager struct {
	service *Service
	store   sessionstore.Store
	now     func() time.Time

	mu   sync.Mutex
	live map[string]*Session
}

func NewManager(service *Service, store sessionstore.Store) (*Manager, error) {
	if service == nil {
		return nil, errors.New("new session manager: nil service")
	}
	if store == nil {
		return nil, errors.New("new session manager: nil store")
	}
	return &Manager{
		service: service,
		store:   store,
		now:     service.now,
		live:    map[string]*Session{},
	}, nil
}

// Service returns the service backing every session.
func (m *Manager) Service() *Service {
	return m.service
}

// Create starts an empty session with a fresh ID.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := m.now().UTC()
	snapshot := sessionstore.Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	snapshot.Version = 1

	session := &Session{manager: m, snapshot: snapshot}
	m.mu.Lock()
	m.live[snapshot.ID] = session
	m.mu.Unlock()
	return session, nil
}

// Get returns a live session or restores it from the store.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.live[id]; ok {
		return session, nil
	}
	snapshot, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	session := &Session{manager: m, snapshot: snapshot}
	m.live[id] = session
	return session, nil
}
