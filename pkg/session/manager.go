package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Manager orchestrates session access so that advance calls on one session
// never overlap. Unused per-session locks are reference counted away.
type Manager struct {
	store ports.SessionStore
	locks keyedMutex

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
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

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		return err
	})
	return s, err
}

// LoadOrCreate loads a session or creates and persists an empty one.
func (m *Manager) LoadOrCreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.loadOrCreate(ctx, sessionID)
		return err
	})
	return s, err
}

func (m *Manager) loadOrCreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}

	s = domain.NewSession(sessionID)
	if err := m.store.Save(ctx, sessionID, s); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return s, nil
}

// AdvanceOption tunes a single Manager.Advance call.
type AdvanceOption func(*advanceCall)

type advanceCall struct {
	resume  bool
	opts    *domain.Options
	observe func(prev, next *domain.Session)
}

// Resuming marks a stored session that has already played and not ended
// as resumed, so the story's resume section runs before play continues.
func Resuming() AdvanceOption {
	return func(c *advanceCall) { c.resume = true }
}

// WithOptions runs the call with explicit options. The engine must
// implement ports.TunableAdvancer.
func WithOptions(opts domain.Options) AdvanceOption {
	return func(c *advanceCall) { c.opts = &opts }
}

// Observe calls fn under the session lock with a copy of the stored session
// before the call and the session after it.
func Observe(fn func(prev, next *domain.Session)) AdvanceOption {
	return func(c *advanceCall) { c.observe = fn }
}

// Advance loads (or creates) the session, runs one advance call and saves
// the result, all under the session lock. A session whose turn ended in an
// error seam is saved as well, so the failure is visible on the next load.
func (m *Manager) Advance(ctx context.Context, engine ports.Advancer, sessionID, input string, opts ...AdvanceOption) (*domain.Result, error) {
	var call advanceCall
	for _, opt := range opts {
		opt(&call)
	}

	var res *domain.Result
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.loadOrCreate(ctx, sessionID)
		if err != nil {
			return err
		}
		var prev *domain.Session
		if call.observe != nil {
			prev = s.Clone()
		}
		if call.resume && s.Turn > 0 && s.Address != domain.AddressEnd {
			s.Resume = true
		}

		if call.opts != nil {
			tunable, ok := engine.(ports.TunableAdvancer)
			if !ok {
				return errors.New("engine does not accept advance options")
			}
			var in *string
			if input != "" {
				in = &input
			}
			res = tunable.AdvanceWith(ctx, s, *call.opts, in)
		} else {
			res = engine.Advance(ctx, s, input)
		}

		if err := m.store.Save(ctx, sessionID, res.Session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		m.logger.DebugContext(ctx, "session advanced",
			"session_id", sessionID,
			"turn", res.Session.Turn,
			"seam", res.Seam,
			"address", res.Address,
			"resumed", call.resume,
		)
		if call.observe != nil {
			call.observe(prev, res.Session)
		}
		return nil
	})
	return res, err
}

// Revert restores a stored session to checkpoint index and saves it.
func (m *Manager) Revert(ctx context.Context, engine ports.Advancer, sessionID string, index int) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := engine.Revert(s, index); err != nil {
			return err
		}
		return m.store.Save(ctx, sessionID, s)
	})
	return s, err
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, sessionID string, s *domain.Session) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, s)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock runs fn while holding the session lock: the in-process mutex
// first, then the distributed lock when one is configured.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	if m.locker == nil {
		return fn(ctx)
	}
	release, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		// Release even when ctx was cancelled mid-call.
		if err := release(context.WithoutCancel(ctx)); err != nil {
			m.logger.WarnContext(ctx, "distributed lock not released, it will expire",
				"session_id", sessionID,
				"ttl", m.lockTTL,
				"err", err,
			)
		}
	}()
	return fn(ctx)
}
