package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/conditions"
)

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockRepo struct {
	mu    sync.Mutex
	saved map[string]domain.Trigger
	fail  bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{saved: make(map[string]domain.Trigger)}
}

func (r *mockRepo) Load(ctx context.Context, id string) (*domain.Trigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trg, ok := r.saved[id]
	if !ok {
		return nil, nil
	}
	return &trg, nil
}

func (r *mockRepo) Save(ctx context.Context, trg *domain.Trigger) error {
	if r.fail {
		return errors.New("save failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[trg.ID] = *trg
	return nil
}

func (r *mockRepo) List(ctx context.Context, filter ports.TriggerFilter) ([]*domain.Trigger, error) {
	return nil, nil
}

type mockDispatcher struct {
	mu       sync.Mutex
	calls    int
	failNext bool
}

func (d *mockDispatcher) Dispatch(ctx context.Context, trg *domain.Trigger, actions []domain.TriggerAction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext {
		d.failNext = false
		return errors.New("downstream unavailable")
	}
	d.calls++
	return nil
}

func (d *mockDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// testClock is a settable clock for deterministic cooldown tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func alwaysTrue() domain.ConditionGroup {
	return domain.ConditionGroup{
		Logic: domain.LogicAND,
		Conditions: []domain.ConditionSpec{
			{Field: "close", Operator: domain.OpGT, Threshold: 0},
		},
	}
}

func newTestMachine(t *testing.T) (*Machine, *mockRepo, *mockDispatcher, *testClock) {
	t.Helper()
	repo := newMockRepo()
	disp := &mockDispatcher{}
	clock := &testClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	m, err := NewMachine(Config{
		Repository: repo,
		Dispatcher: disp,
		Clock:      clock,
		Logger:     mockLogger{},
	})
	require.NoError(t, err)
	return m, repo, disp, clock
}

func newTestTrigger() *domain.Trigger {
	return &domain.Trigger{
		ID:         "trg-1",
		Name:       "breakout alert",
		Symbol:     "ETHUSDT",
		Conditions: alwaysTrue(),
		Actions:    []domain.TriggerAction{{Kind: "notify"}},
		Cooldown:   60 * time.Second,
		Status:     domain.TriggerActive,
	}
}

func TestNewMachine_RequiresCollaborators(t *testing.T) {
	_, err := NewMachine(Config{Dispatcher: &mockDispatcher{}, Logger: mockLogger{}})
	assert.Error(t, err)
	_, err = NewMachine(Config{Repository: newMockRepo(), Logger: mockLogger{}})
	assert.Error(t, err)
	_, err = NewMachine(Config{Repository: newMockRepo(), Dispatcher: &mockDispatcher{}})
	assert.Error(t, err)
}

func TestEvaluate_CooldownDebounce(t *testing.T) {
	m, _, disp, clock := newTestMachine(t)
	trg := newTestTrigger()
	evalCtx := conditions.Context{"close": 100}

	// First evaluation fires immediately.
	fired, err := m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 1, trg.ExecutionCount)

	// The condition stays true 30s later: suppressed, not re-fired.
	clock.advance(30 * time.Second)
	fired, err = m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, 1, trg.ExecutionCount)

	// Past the window it fires again.
	clock.advance(31 * time.Second)
	fired, err = m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 2, trg.ExecutionCount)
	assert.Equal(t, 2, disp.callCount())
}

func TestEvaluate_ConditionNotSatisfied(t *testing.T) {
	m, _, disp, _ := newTestMachine(t)
	trg := newTestTrigger()

	fired, err := m.Evaluate(context.Background(), trg, conditions.Context{"close": -5})
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, 0, disp.callCount())
	assert.Nil(t, trg.LastTriggeredAt)
}

func TestEvaluate_MaxExecutionsExhausts(t *testing.T) {
	m, repo, _, clock := newTestMachine(t)
	trg := newTestTrigger()
	trg.MaxExecutions = 2
	evalCtx := conditions.Context{"close": 100}

	fired, err := m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, domain.TriggerActive, trg.Status)

	clock.advance(61 * time.Second)
	fired, err = m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.True(t, fired)
	// The cap is reached on the fire itself.
	assert.Equal(t, domain.TriggerExhausted, trg.Status)

	clock.advance(61 * time.Second)
	fired, err = m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, 2, trg.ExecutionCount)

	saved, err := repo.Load(context.Background(), trg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerExhausted, saved.Status)
}

// A failed dispatch must not consume the execution slot; the next evaluation
// may retry and fire.
func TestEvaluate_DispatchFailureLeavesCountUntouched(t *testing.T) {
	m, _, disp, _ := newTestMachine(t)
	trg := newTestTrigger()
	disp.failNext = true
	evalCtx := conditions.Context{"close": 100}

	fired, err := m.Evaluate(context.Background(), trg, evalCtx)
	assert.False(t, fired)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrDispatchFailed))
	assert.Equal(t, 0, trg.ExecutionCount)
	assert.Nil(t, trg.LastTriggeredAt)

	// Retry succeeds.
	fired, err = m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 1, trg.ExecutionCount)
}

func TestEvaluate_Expiry(t *testing.T) {
	m, repo, disp, clock := newTestMachine(t)
	trg := newTestTrigger()
	expires := clock.Now().Add(time.Hour)
	trg.ExpiresAt = &expires
	evalCtx := conditions.Context{"close": 100}

	clock.advance(2 * time.Hour)
	fired, err := m.Evaluate(context.Background(), trg, evalCtx)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, domain.TriggerExpired, trg.Status)
	assert.Equal(t, 0, disp.callCount())

	saved, err := repo.Load(context.Background(), trg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerExpired, saved.Status)
}

func TestEvaluate_PausedNeverFires(t *testing.T) {
	m, _, disp, _ := newTestMachine(t)
	trg := newTestTrigger()
	trg.Status = domain.TriggerPaused

	fired, err := m.Evaluate(context.Background(), trg, conditions.Context{"close": 100})
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, 0, disp.callCount())
}

func TestPauseAndResume(t *testing.T) {
	m, _, _, _ := newTestMachine(t)
	trg := newTestTrigger()

	require.NoError(t, m.Pause(context.Background(), trg))
	assert.Equal(t, domain.TriggerPaused, trg.Status)

	// Pausing a non-active trigger is rejected.
	err := m.Pause(context.Background(), trg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrTriggerNotFireable))

	require.NoError(t, m.Resume(context.Background(), trg))
	assert.Equal(t, domain.TriggerActive, trg.Status)

	err = m.Resume(context.Background(), trg)
	assert.True(t, errors.Is(err, ports.ErrTriggerNotFireable))
}

// Concurrent evaluations of one trigger must be serialized: with a cooldown
// in place exactly one of the racing evaluations may fire.
func TestEvaluate_ConcurrentSingleFire(t *testing.T) {
	m, _, disp, _ := newTestMachine(t)
	trg := newTestTrigger()
	evalCtx := conditions.Context{"close": 100}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Evaluate(context.Background(), trg, evalCtx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, disp.callCount())
	assert.Equal(t, 1, trg.ExecutionCount)
}
