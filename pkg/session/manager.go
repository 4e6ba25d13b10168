package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/oklog/ulid/v2"
)

// DefaultLockTTL bounds how long a crashed replica can hold a dialogue.
const DefaultLockTTL = 30 * time.Second

// DialogFactory creates the dialogues hosted by a Manager.
// tendril.Engine satisfies it.
type DialogFactory interface {
	NewDialog() *graph.Dialog
	Types() []domain.TypeInfo
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// live is a dialogue held in memory together with the transcript it was
// built from.
type live struct {
	dialog     *graph.Dialog
	transcript *domain.Transcript
}

// Manager hosts many dialogues, serializing turns per dialogue.
// Graphs stay in memory; the store only keeps transcripts, which are
// replayed whenever the cached graph is missing or stale (another replica
// advanced the dialogue). It uses Reference Counting to garbage collect
// unused locks.
type Manager struct {
	factory DialogFactory
	store   ports.TranscriptStore

	mu    sync.Mutex            // Global lock for the maps
	locks map[string]*lockEntry // Map of active locks
	live  map[string]*live      // Cached dialogues

	locker  ports.DistributedLocker
	lockTTL time.Duration
	newID   func() string
	logger  *slog.Logger
}

var _ ports.DialogueService = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator replaces the ULID generator used by Create.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		m.newID = gen
	}
}

// NewManager creates a new dialogue Manager over the given transcript store.
func NewManager(factory DialogFactory, store ports.TranscriptStore, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		store:   store,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*live),
		lockTTL: DefaultLockTTL,
		newID:   func() string { return ulid.Make().String() },
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
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

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
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

// WithLock executes a function while holding the lock for the dialogue.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"dialogue_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create starts an empty dialogue and persists its transcript.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := m.newID()
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		t := domain.NewTranscript(id)
		if err := m.store.Save(ctx, id, t); err != nil {
			return fmt.Errorf("failed to initialize dialogue: %w", err)
		}
		m.cache(id, &live{dialog: m.factory.NewDialog(), transcript: t})
		return nil
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("dialogue created", "dialogue_id", id)
	return id, nil
}

// Turn evaluates one P-expression in the dialogue and records it.
func (m *Manager) Turn(ctx context.Context, id, expression string) (*domain.TurnReport, error) {
	var report *domain.TurnReport
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		l, err := m.dialog(ctx, id)
		if err != nil {
			return err
		}

		res, turnErr := l.dialog.Turn(ctx, expression)
		if turnErr != nil && ctx.Err() != nil {
			m.evict(id)
			return turnErr
		}

		// Rejected expressions are recorded too: the turn counter may
		// already have advanced, and replay must reproduce it.
		t := l.transcript.Clone()
		t.Append(expression, turnErr != nil || res.Failed())
		if err := m.store.Save(ctx, id, t); err != nil {
			m.evict(id)
			return fmt.Errorf("failed to save transcript: %w", err)
		}
		l.transcript = t

		if turnErr != nil {
			return turnErr
		}
		report = res.Report(id)
		return nil
	})
	return report, err
}

// Snapshot describes the goals and pending exceptions of a dialogue.
func (m *Manager) Snapshot(ctx context.Context, id string) (*domain.DialogueSnapshot, error) {
	var snap *domain.DialogueSnapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		l, err := m.dialog(ctx, id)
		if err != nil {
			return err
		}
		snap = l.dialog.Snapshot(id)
		return nil
	})
	return snap, err
}

// Transcript returns the stored transcript of a dialogue.
func (m *Manager) Transcript(ctx context.Context, id string) (*domain.Transcript, error) {
	var t *domain.Transcript
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		t, err = m.store.Load(ctx, id)
		return err
	})
	return t, err
}

// Delete removes the dialogue from memory and from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.evict(id)
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Types describes the node types available to every dialogue.
func (m *Manager) Types() []domain.TypeInfo {
	return m.factory.Types()
}

// Evict drops the in-memory graph of a dialogue. The next access replays
// its transcript.
func (m *Manager) Evict(id string) {
	m.evict(id)
}

// Live reports how many dialogues are held in memory.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Store returns the underlying transcript store.
func (m *Manager) Store() ports.TranscriptStore {
	return m.store
}

// dialog returns the live dialogue, replaying the stored transcript when
// the cache is empty or behind the store. Must run under the dialogue lock.
func (m *Manager) dialog(ctx context.Context, id string) (*live, error) {
	t, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDialogueNotFound) {
			m.evict(id)
		}
		return nil, err
	}

	m.mu.Lock()
	l, ok := m.live[id]
	m.mu.Unlock()
	if ok && len(l.transcript.Turns) == len(t.Turns) && l.transcript.UpdatedAt.Equal(t.UpdatedAt) {
		return l, nil
	}

	d := m.factory.NewDialog()
	exprs := make([]string, len(t.Turns))
	for i, turn := range t.Turns {
		exprs[i] = turn.Expression
	}
	if err := d.Replay(ctx, exprs); err != nil {
		return nil, fmt.Errorf("failed to replay dialogue: %w", err)
	}
	m.logger.Debug("dialogue rebuilt from transcript", "dialogue_id", id, "turns", len(exprs), "stale", ok)

	l = &live{dialog: d, transcript: t}
	m.cache(id, l)
	return l, nil
}

func (m *Manager) cache(id string, l *live) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[id] = l
}

func (m *Manager) evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, id)
}
