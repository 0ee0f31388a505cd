package calculator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned by Create once the session cap is hit.
	ErrTooManySessions = errors.New("too many live sessions")
)

// View is a read-only snapshot of a session for the outside world.
type View struct {
	ID           string   `json:"id"`
	Slot         string   `json:"slot,omitempty"`
	Transcript   string   `json:"transcript"`
	Lines        []string `json:"lines"`
	TrailingLine string   `json:"trailing_line"`
	Pending      string   `json:"pending_operator,omitempty"`
	Accumulator  string   `json:"accumulator"`
	Scroll       string   `json:"scroll"`
	Error        string   `json:"error,omitempty"`
}

type managed struct {
	// mu serialises events, matching a UI's single dispatch thread.
	mu         sync.Mutex
	session    *Session
	transcript *Transcript
	// lastUsed is the unix-nano time of the last create, read or event.
	lastUsed atomic.Int64
}

func (m *managed) view(id string) View {
	return View{
		ID:           id,
		Slot:         m.session.Slot(),
		Transcript:   m.transcript.Text(),
		Lines:        m.transcript.Lines(),
		TrailingLine: m.transcript.TrailingLine(),
		Pending:      m.session.PendingOperator(),
		Accumulator:  Render(m.session.Accumulator(), false),
		Scroll:       m.transcript.Scroll(),
		Error:        m.transcript.LastError(),
	}
}

// Manager owns the live sessions of a process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managed

	store       ValueStore
	defaultSlot string
	logger      *zap.Logger

	idleTimeout time.Duration
	maxSessions int
	now         func() time.Time
}

type ManagerOption func(*Manager)

// WithIdleTimeout lets Sweep end sessions untouched for longer than d. Zero
// keeps idle sessions forever.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleTimeout = d
	}
}

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// NewManager creates a manager persisting to vs; a nil store disables
// persistence.
func NewManager(vs ValueStore, defaultSlot string, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultSlot == "" {
		defaultSlot = "default"
	}
	m := &Manager{
		sessions:    make(map[string]*managed),
		store:       vs,
		defaultSlot: defaultSlot,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) touch(ms *managed) {
	ms.lastUsed.Store(m.now().UnixNano())
}

// Create starts a session on slot, loading its last value. At the session
// cap it first sweeps idle sessions and fails with ErrTooManySessions if
// none could be freed.
func (m *Manager) Create(ctx context.Context, slot string) (View, error) {
	if slot == "" {
		slot = m.defaultSlot
	}
	if m.maxSessions > 0 && m.Len() >= m.maxSessions {
		m.Sweep(ctx)
		if m.Len() >= m.maxSessions {
			return View{}, fmt.Errorf("%w: limit %d", ErrTooManySessions, m.maxSessions)
		}
	}
	id := uuid.New().String()

	t := NewTranscript()
	opts := []Option{WithLogger(m.logger.With(zap.String("session_id", id)))}
	if m.store != nil {
		opts = append(opts, WithStore(m.store, slot))
	}
	ms := &managed{session: NewSession(t, opts...), transcript: t}
	ms.session.Start(ctx)
	m.touch(ms)

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return View{}, fmt.Errorf("%w: limit %d", ErrTooManySessions, m.maxSessions)
	}
	m.sessions[id] = ms
	m.mu.Unlock()

	activeSessions.Add(ctx, 1)
	m.logger.Info("session started", zap.String("session_id", id), zap.String("slot", slot))
	return ms.view(id), nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep ends, and so persists, every session idle for longer than the idle
// timeout. It returns how many sessions it ended.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTimeout).UnixNano()

	m.mu.Lock()
	var idle []string
	for id, ms := range m.sessions {
		if ms.lastUsed.Load() < cutoff {
			idle = append(idle, id)
		}
	}
	m.mu.Unlock()

	ended := 0
	for _, id := range idle {
		_, err := m.End(ctx, id)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			continue
		case err != nil:
			m.logger.Warn("ending idle session failed", zap.String("session_id", id), zap.Error(err))
		}
		ended++
	}
	if ended > 0 {
		m.logger.Info("idle sessions ended", zap.Int("count", ended))
	}
	return ended
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

func (m *Manager) lookup(id string) (*managed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ms, nil
}

func (m *Manager) Get(id string) (View, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	m.touch(ms)
	return ms.view(id), nil
}

// Dispatch runs ev on session id.
func (m *Manager) Dispatch(id string, ev Event) (View, Outcome, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return View{}, Outcome{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := ms.session.Dispatch(ev)
	m.touch(ms)
	return ms.view(id), out, nil
}

// End persists and removes session id.
func (m *Manager) End(ctx context.Context, id string) (View, error) {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	activeSessions.Add(ctx, -1)
	v := ms.view(id)
	if err := ms.session.End(ctx); err != nil {
		return v, fmt.Errorf("end session %s: %w", id, err)
	}
	m.logger.Info("session ended", zap.String("session_id", id))
	return v, nil
}

// IDs lists the live session ids in lexical order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown ends every live session.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, id := range m.IDs() {
		if _, err := m.End(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
