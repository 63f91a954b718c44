// Package viewport owns the set of independent navigation cursors. Each
// viewport holds its own path into the shared graph; the manager linearizes
// mutations per viewport so at most one operation touches a cursor at a time.
package viewport

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/ports"
)

// lockEntry holds the per-viewport mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager maps viewport ids to state. Safe for concurrent use.
type Manager struct {
	logger *slog.Logger
	locker ports.DistributedLocker
	root   domain.NodeID

	mu        sync.Mutex
	viewports map[domain.ViewportID]*domain.Viewport
	locks     map[domain.ViewportID]*lockEntry
	focused   domain.ViewportID
	seq       uint64
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking for multi-replica deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager whose viewports start at the given root.
func NewManager(root domain.NodeID, opts ...Option) *Manager {
	m := &Manager{
		logger:    logging.NewNop(),
		root:      root,
		viewports: make(map[domain.ViewportID]*domain.Viewport),
		locks:     make(map[domain.ViewportID]*lockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu and later call release(id) after unlocking.
func (m *Manager) acquire(id domain.ViewportID) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and drops the entry at zero.
func (m *Manager) release(id domain.ViewportID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Create registers a new viewport at the sectors overview. The first
// viewport receives focus.
func (m *Manager) Create(anchor domain.Anchor) domain.Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := domain.ViewportID(fmt.Sprintf("vp-%d", m.seq))
	v := &domain.Viewport{
		ID:     id,
		Anchor: anchor,
		Path:   domain.Path{m.root},
	}
	if len(m.viewports) == 0 {
		v.Focused = true
		m.focused = id
	}
	m.viewports[id] = v

	m.logger.Debug("viewport created", "viewport", id, "output", anchor.Output)
	return v.Clone()
}

// Get returns a copy of the viewport state.
func (m *Manager) Get(id domain.ViewportID) (domain.Viewport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.viewports[id]
	if !ok {
		return domain.Viewport{}, fmt.Errorf("viewport %s: %w", id, domain.ErrViewportNotFound)
	}
	return v.Clone(), nil
}

// Destroy releases a viewport. Focus moves to an arbitrary survivor.
func (m *Manager) Destroy(id domain.ViewportID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.viewports[id]; !ok {
		return fmt.Errorf("viewport %s: %w", id, domain.ErrViewportNotFound)
	}
	delete(m.viewports, id)

	if m.focused == id {
		m.focused = ""
		for survivor, v := range m.viewports {
			v.Focused = true
			m.focused = survivor
			break
		}
	}

	m.logger.Debug("viewport destroyed", "viewport", id)
	return nil
}

// List returns copies of all viewports ordered by id.
func (m *Manager) List() []domain.Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Viewport, 0, len(m.viewports))
	for _, v := range m.viewports {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Focus moves input focus to the given viewport.
func (m *Manager) Focus(id domain.ViewportID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.viewports[id]
	if !ok {
		return fmt.Errorf("viewport %s: %w", id, domain.ErrViewportNotFound)
	}
	for _, v := range m.viewports {
		v.Focused = false
	}
	target.Focused = true
	m.focused = id
	return nil
}

// Focused returns the id of the focused viewport, if any.
func (m *Manager) Focused() (domain.ViewportID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused, m.focused != ""
}

// Update runs fn against the viewport's live state while holding its
// per-viewport lock, linearizing navigation operations. fn may mutate the
// viewport; errors from fn are returned unchanged.
func (m *Manager) Update(ctx context.Context, id domain.ViewportID, fn func(v *domain.Viewport) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, string(id), 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"viewport", id,
					"err", err,
				)
			}
		}()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.viewports[id]
	if !ok {
		return fmt.Errorf("viewport %s: %w", id, domain.ErrViewportNotFound)
	}
	return fn(v)
}

// DetachOutput reacts to a monitor unplug: viewports anchored to the output
// are migrated to a surviving output when one exists, destroyed otherwise.
func (m *Manager) DetachOutput(output string) (migrated, destroyed []domain.ViewportID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fallback := ""
	for _, v := range m.viewports {
		if v.Anchor.Output != output {
			fallback = v.Anchor.Output
			break
		}
	}

	for id, v := range m.viewports {
		if v.Anchor.Output != output {
			continue
		}
		if fallback != "" {
			v.Anchor.Output = fallback
			v.Anchor.Geometry = domain.FullGeometry()
			migrated = append(migrated, id)
			continue
		}
		delete(m.viewports, id)
		destroyed = append(destroyed, id)
		if m.focused == id {
			m.focused = ""
		}
	}

	if m.focused == "" {
		for id, v := range m.viewports {
			v.Focused = true
			m.focused = id
			break
		}
	}

	sort.Slice(migrated, func(i, j int) bool { return migrated[i] < migrated[j] })
	sort.Slice(destroyed, func(i, j int) bool { return destroyed[i] < destroyed[j] })
	if len(migrated) > 0 || len(destroyed) > 0 {
		m.logger.Debug("output detached", "output", output, "migrated", len(migrated), "destroyed", len(destroyed))
	}
	return migrated, destroyed
}
