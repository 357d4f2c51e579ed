package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke races if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[sessionID] = sess.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.data[sessionID]; ok {
		return sess.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func newEngine(t *testing.T, markup string) *fable.Engine {
	t.Helper()
	loader, err := memory.NewFromMarkup(markup)
	require.NoError(t, err)
	eng, err := fable.New("", fable.WithLoader(loader))
	require.NoError(t, err)
	return eng
}

func TestManager_AdvanceSerializesTurns(t *testing.T) {
	eng := newEngine(t, `<var name="n" value="0"/><while cond="True"><code>n = n + 1</code><p>{{n}}</p></while>`)
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Advance(ctx, eng, "race", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, 8, s.Turn, "no turn may be lost")
	assert.Equal(t, domain.Num(8), s.State["n"])
}

func TestManager_AdvanceResuming(t *testing.T) {
	eng := newEngine(t, `<resume><p>Welcome back.</p></resume><p>One.</p><p>Two.</p>`)
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	res, err := manager.Advance(ctx, eng, "r", "", session.Resuming())
	require.NoError(t, err)
	assert.Equal(t, "One.", res.Ops[0].Body, "a new session has nothing to resume")

	res, err = manager.Advance(ctx, eng, "r", "", session.Resuming())
	require.NoError(t, err)
	require.NotEmpty(t, res.Ops)
	assert.Equal(t, "Welcome back.", res.Ops[0].Body)
	assert.False(t, res.Session.Resume, "the flag is consumed by the call")

	res, err = manager.Advance(ctx, eng, "r", "")
	require.NoError(t, err)
	assert.Equal(t, "Two.", res.Ops[0].Body)
	assert.Equal(t, domain.SeamFinish, res.Seam)

	res, err = manager.Advance(ctx, eng, "r", "", session.Resuming())
	require.NoError(t, err)
	assert.Equal(t, domain.SeamFinish, res.Seam, "finished sessions are not resumed")
}

func TestManager_AdvanceWithOptions(t *testing.T) {
	eng := newEngine(t, `<p>One.</p><p>Two.</p>`)
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	opts := eng.Options()
	opts.Verbose = true
	res, err := manager.Advance(ctx, eng, "v", "", session.WithOptions(opts))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Info.Trace)

	res, err = manager.Advance(ctx, eng, "v", "")
	require.NoError(t, err)
	assert.Empty(t, res.Info.Trace)
}

func TestManager_AdvanceObserve(t *testing.T) {
	eng := newEngine(t, `<var name="n" value="1"/><p>One.</p><code>n = n + 1</code><p>Two.</p>`)
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := manager.Advance(ctx, eng, "o", "")
	require.NoError(t, err)

	var before, after *domain.Session
	_, err = manager.Advance(ctx, eng, "o", "", session.Observe(func(prev, next *domain.Session) {
		before, after = prev, next
	}))
	require.NoError(t, err)
	require.NotNil(t, before)
	require.NotNil(t, after)
	assert.Equal(t, 1, before.Turn)
	assert.Equal(t, domain.Num(1), before.State["n"])
	assert.Equal(t, 2, after.Turn)
	assert.Equal(t, domain.Num(2), after.State["n"])
}

func TestManager_LoadOrCreate(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := manager.LoadOrCreate(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Zero(t, s.Turn)
}

func TestManager_Revert(t *testing.T) {
	eng := newEngine(t, `<p>One.</p><p>Two.</p><p>Three.</p>`)
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := manager.Advance(ctx, eng, "r", "")
		require.NoError(t, err)
	}

	s, err := manager.Revert(ctx, eng, "r", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Turn)
	require.Len(t, s.Checkpoints, 1)

	res, err := manager.Advance(ctx, eng, "r", "")
	require.NoError(t, err)
	assert.Equal(t, "Two.", res.Ops[0].Body)

	_, err = manager.Revert(ctx, eng, "missing", 0)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("cluster down")
}

type countingLocker struct {
	mu    sync.Mutex
	locks int
	ttl   time.Duration
}

func (c *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	c.mu.Lock()
	c.locks++
	c.ttl = ttl
	c.mu.Unlock()
	return func(context.Context) error { return nil }, nil
}

func TestManager_DistributedLock(t *testing.T) {
	ctx := context.Background()

	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Minute))
	require.NoError(t, manager.Save(ctx, "a", domain.NewSession("a")))
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, time.Minute, locker.ttl)

	manager = session.NewManager(memory.NewStore(), session.WithLocker(failingLocker{}))
	err := manager.Save(ctx, "a", domain.NewSession("a"))
	assert.ErrorContains(t, err, "cluster down")
}
