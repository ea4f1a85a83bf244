package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tickwatch/internal/config"
	"tickwatch/internal/model"
	"tickwatch/internal/source"
	"tickwatch/internal/tickrange"
)

type step struct {
	tick    int64
	spacing int64
	err     error
}

// scriptedSource replays steps per pool and repeats the last one.
type scriptedSource struct {
	mu    sync.Mutex
	steps map[uint64][]step
	calls map[uint64]int
}

func newScriptedSource(steps map[uint64][]step) *scriptedSource {
	return &scriptedSource{steps: steps, calls: make(map[uint64]int)}
}

func (s *scriptedSource) Fetch(_ context.Context, pool config.Pool) (model.TickSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := s.steps[pool.ID]
	i := s.calls[pool.ID]
	if i >= len(steps) {
		i = len(steps) - 1
	}
	s.calls[pool.ID]++
	st := steps[i]
	if st.err != nil {
		return model.TickSnapshot{}, st.err
	}
	return model.TickSnapshot{PoolID: pool.ID, CurrentTick: st.tick, TickSpacing: st.spacing}, nil
}

func (s *scriptedSource) count(poolID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[poolID]
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, text)
	n.mu.Unlock()
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type memorySink struct {
	mu           sync.Mutex
	observations []model.Observation
	alerts       []model.Alert
}

func (m *memorySink) PutObservations(_ context.Context, observations []model.Observation) error {
	m.mu.Lock()
	m.observations = append(m.observations, observations...)
	m.mu.Unlock()
	return nil
}

func (m *memorySink) PutAlerts(_ context.Context, alerts []model.Alert) error {
	m.mu.Lock()
	m.alerts = append(m.alerts, alerts...)
	m.mu.Unlock()
	return nil
}

var testPool = config.Pool{ID: 1135, Threshold: 2, Name: "OSMO/ATOM", Source: config.SourceLCD}

func newTestRunner(src source.Source) (*Runner, *recordingNotifier, *memorySink) {
	notifier := &recordingNotifier{}
	sink := &memorySink{}
	r := NewRunner(RunConfig{Interval: 10 * time.Millisecond}, []config.Pool{testPool}, src, notifier, sink, zap.NewNop())
	return r, notifier, sink
}

func TestPollFirstObservationOnlySeeds(t *testing.T) {
	src := newScriptedSource(map[uint64][]step{testPool.ID: {{tick: 498, spacing: 100}}})
	r, notifier, sink := newTestRunner(src)

	eval, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)
	assert.Equal(t, tickrange.Evaluation{}, eval)
	assert.Empty(t, notifier.messages())

	snap, ok := r.Table().Get(testPool.ID)
	require.True(t, ok)
	assert.Equal(t, int64(498), snap.CurrentTick)
	require.Len(t, sink.observations, 1)
	assert.Nil(t, sink.observations[0].PreviousTick)
}

func TestPollNoChange(t *testing.T) {
	src := newScriptedSource(map[uint64][]step{testPool.ID: {{tick: -14673411, spacing: 100}}})
	r, notifier, sink := newTestRunner(src)

	_, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)
	eval, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)

	assert.Equal(t, tickrange.KindNone, eval.Kind)
	assert.Empty(t, notifier.messages())
	assert.Empty(t, sink.alerts)
	snap, _ := r.Table().Get(testPool.ID)
	assert.Equal(t, int64(-14673411), snap.CurrentTick)
}

func TestPollNearUpperThreshold(t *testing.T) {
	src := newScriptedSource(map[uint64][]step{testPool.ID: {{tick: 500, spacing: 100}, {tick: 498, spacing: 100}}})
	r, notifier, sink := newTestRunner(src)

	_, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)
	eval, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)

	assert.Equal(t, tickrange.KindNearThreshold, eval.Kind)
	assert.Equal(t, tickrange.BoundaryUpper, eval.Boundary)
	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "near the upper threshold")

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "near_threshold", sink.alerts[0].Kind)
	assert.Equal(t, int64(400), sink.alerts[0].LowerTick)
	require.Len(t, sink.observations, 2)
	require.NotNil(t, sink.observations[1].PreviousTick)
	assert.Equal(t, int64(500), *sink.observations[1].PreviousTick)

	snap, _ := r.Table().Get(testPool.ID)
	assert.Equal(t, int64(498), snap.CurrentTick)
}

func TestPollNewRange(t *testing.T) {
	src := newScriptedSource(map[uint64][]step{testPool.ID: {{tick: 150, spacing: 100}, {tick: 360, spacing: 100}}})
	r, notifier, _ := newTestRunner(src)

	_, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)
	eval, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)

	assert.Equal(t, tickrange.KindNewRange, eval.Kind)
	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "New Range: 300 to 400")
}

func TestPollFetchErrorLeavesTable(t *testing.T) {
	fetchErr := errors.New("lcd unreachable")
	src := newScriptedSource(map[uint64][]step{testPool.ID: {
		{tick: 150, spacing: 100},
		{err: fetchErr},
		{tick: 360, spacing: 100},
	}})
	r, notifier, _ := newTestRunner(src)

	_, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)
	_, err = r.Poll(context.Background(), testPool)
	require.ErrorIs(t, err, fetchErr)

	snap, _ := r.Table().Get(testPool.ID)
	assert.Equal(t, int64(150), snap.CurrentTick)

	eval, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)
	assert.Equal(t, int64(150), eval.Previous)
	assert.Equal(t, tickrange.KindNewRange, eval.Kind)
	assert.Len(t, notifier.messages(), 1)
}

func TestPollInvalidSpacingIsError(t *testing.T) {
	src := newScriptedSource(map[uint64][]step{testPool.ID: {{tick: 150, spacing: 100}, {tick: 360, spacing: 0}}})
	r, notifier, _ := newTestRunner(src)

	_, err := r.Poll(context.Background(), testPool)
	require.NoError(t, err)
	_, err = r.Poll(context.Background(), testPool)
	require.ErrorIs(t, err, source.ErrInvalidTickSpacing)

	snap, _ := r.Table().Get(testPool.ID)
	assert.Equal(t, int64(150), snap.CurrentTick)
	assert.Empty(t, notifier.messages())

	fresh, _, _ := newTestRunner(newScriptedSource(map[uint64][]step{testPool.ID: {{tick: 1, spacing: -5}}}))
	_, err = fresh.Poll(context.Background(), testPool)
	require.ErrorIs(t, err, source.ErrInvalidTickSpacing)
	assert.Equal(t, 0, fresh.Table().Len())
}

func TestRunPollsEveryPoolUntilCancelled(t *testing.T) {
	pools := []config.Pool{
		{ID: 1, Threshold: 2, Name: "A", Source: config.SourceLCD},
		{ID: 2, Threshold: 2, Name: "B", Source: config.SourceLCD},
	}
	src := newScriptedSource(map[uint64][]step{
		1: {{tick: 10, spacing: 100}, {tick: 250, spacing: 100}},
		2: {{tick: 10, spacing: 100}},
	})
	notifier := &recordingNotifier{}
	r := NewRunner(RunConfig{Interval: 5 * time.Millisecond, NotifyStartup: true}, pools, src, notifier, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return src.count(1) >= 3 && src.count(2) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	var started, newRange int
	for _, msg := range notifier.messages() {
		switch {
		case strings.HasPrefix(msg, "Monitoring started"):
			started++
		case strings.Contains(msg, "new tick range"):
			newRange++
		}
	}
	assert.Equal(t, 2, started)
	assert.Equal(t, 1, newRange)
}

func TestRunValidates(t *testing.T) {
	r := NewRunner(RunConfig{Interval: time.Second}, nil, newScriptedSource(nil), nil, nil, nil)
	assert.Error(t, r.Run(context.Background()))

	r = NewRunner(RunConfig{}, []config.Pool{testPool}, newScriptedSource(nil), nil, nil, nil)
	assert.Error(t, r.Run(context.Background()))
}

func TestStaggerDelay(t *testing.T) {
	interval := 9 * time.Second
	assert.Equal(t, time.Duration(0), StaggerDelay(0, 3, interval))
	assert.Equal(t, 3*time.Second, StaggerDelay(1, 3, interval))
	assert.Equal(t, 6*time.Second, StaggerDelay(2, 3, interval))
	assert.Equal(t, time.Duration(0), StaggerDelay(1, 0, interval))
}

func TestBuildDigest(t *testing.T) {
	table := NewTickTable()
	table.Set(model.TickSnapshot{PoolID: 1, CurrentTick: -5, TickSpacing: 10})
	msg := BuildDigest([]config.Pool{{ID: 1, Name: "A"}, {ID: 2}}, table)

	assert.Contains(t, msg, "Pool 1 (A): tick -5 in -10 to 0")
	assert.Contains(t, msg, "Pool 2 (Pool #2): no data yet")
}

func TestDigestSchedule(t *testing.T) {
	notifier := &recordingNotifier{}
	_, err := NewDigest(context.Background(), "not a cron", nil, NewTickTable(), notifier, nil)
	require.Error(t, err)

	d, err := NewDigest(context.Background(), "0 0 * * * *", []config.Pool{{ID: 1, Name: "A"}}, NewTickTable(), notifier, nil)
	require.NoError(t, err)
	d.Start()
	d.Send(context.Background())
	d.Stop()
	require.Len(t, notifier.messages(), 1)
	assert.Contains(t, notifier.messages()[0], "Tick status")
}
