package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pulse/app/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingProber returns Up samples whose Code is the per-endpoint probe sequence number
type countingProber struct {
	mu    sync.Mutex
	calls map[string]int
	block bool
}

func newCountingProber() *countingProber {
	return &countingProber{calls: make(map[string]int)}
}

func (p *countingProber) Check(ctx context.Context, e models.Endpoint) models.Sample {
	p.mu.Lock()
	p.calls[e.Name]++
	n := p.calls[e.Name]
	block := p.block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return models.Sample{Timestamp: time.Now(), Status: models.StatusDown, Error: "Request timeout"}
	}
	return models.Sample{Timestamp: time.Now(), Status: models.StatusUp, Code: &n}
}

func (p *countingProber) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func testConfig(interval time.Duration, buffer int, names ...string) models.Config {
	cfg := models.Config{Settings: models.Settings{DefaultInterval: interval, ResultBuffer: buffer}}
	for _, n := range names {
		cfg.Endpoints = append(cfg.Endpoints, models.Endpoint{Name: n, Target: "http://" + n})
	}
	return cfg
}

func start(t *testing.T, s *Scheduler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func recv(t *testing.T, ch <-chan Result, within time.Duration) Result {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "results closed unexpectedly")
		return r
	case <-time.After(within):
		t.Fatalf("no result within %v", within)
	}
	return Result{}
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_ProbesEveryEndpoint(t *testing.T) {
	p := newCountingProber()
	s := New(testConfig(time.Hour, 10, "a", "b", "c"), p, nil)
	cancel, done := start(t, s)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		r := recv(t, s.Results(), time.Second)
		seen[r.Endpoint] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, seen)

	cancel()
	waitDone(t, done)
}

func TestScheduler_ForceRefreshProbesImmediately(t *testing.T) {
	p := newCountingProber()
	s := New(testConfig(time.Hour, 10, "api"), p, nil)
	cancel, done := start(t, s)
	defer func() { cancel(); waitDone(t, done) }()

	first := recv(t, s.Results(), time.Second)
	assert.Equal(t, 1, *first.Sample.Code)

	// the loop may still be between publishing and parking in its wait
	delivered := 0
	deadline := time.Now().Add(time.Second)
	for delivered == 0 && time.Now().Before(deadline) {
		delivered = s.Refresh()
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, delivered)

	second := recv(t, s.Results(), 500*time.Millisecond)
	assert.Equal(t, 2, *second.Sample.Code, "refresh skipped the hour-long wait")
}

func TestScheduler_RefreshWithoutWaitersIsDropped(t *testing.T) {
	p := newCountingProber()
	s := New(testConfig(time.Hour, 10, "api"), p, nil)

	assert.Zero(t, s.Refresh(), "no loop is running yet")
}

func TestScheduler_ShutdownWhileWaitingSkipsProbe(t *testing.T) {
	p := newCountingProber()
	s := New(testConfig(time.Hour, 10, "api"), p, nil)
	cancel, done := start(t, s)

	recv(t, s.Results(), time.Second)
	cancel()
	waitDone(t, done)

	assert.Equal(t, 1, p.count("api"), "no probe after shutdown")
	_, open := <-s.Results()
	assert.False(t, open, "results closed after the last loop exits")
}

func TestScheduler_ShutdownBeforeRun(t *testing.T) {
	p := newCountingProber()
	s := New(testConfig(time.Hour, 10, "a", "b"), p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))

	assert.Zero(t, p.count("a"))
	assert.Zero(t, p.count("b"))
	_, open := <-s.Results()
	assert.False(t, open)
}

func TestScheduler_CancelledProbeIsNotPublished(t *testing.T) {
	p := newCountingProber()
	p.block = true
	s := New(testConfig(time.Hour, 10, "api"), p, nil)
	cancel, done := start(t, s)

	require.Eventually(t, func() bool { return p.count("api") == 1 }, time.Second, time.Millisecond)
	cancel()
	waitDone(t, done)

	_, open := <-s.Results()
	assert.False(t, open, "the interrupted probe must not be delivered")
}

func TestScheduler_BackPressureNeverDrops(t *testing.T) {
	p := newCountingProber()
	s := New(testConfig(time.Millisecond, 2, "api"), p, nil)
	cancel, done := start(t, s)

	// nobody reads: the loop must block once the buffer is full
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, p.count("api"), 3, "buffer of 2 plus one probe blocked on send")

	for want := 1; want <= 10; want++ {
		r := recv(t, s.Results(), time.Second)
		assert.Equal(t, want, *r.Sample.Code, "samples arrive in probe order without gaps")
	}

	cancel()
	waitDone(t, done)
}

func TestScheduler_ShutdownUnblocksFullChannel(t *testing.T) {
	p := newCountingProber()
	s := New(testConfig(time.Millisecond, 1, "a", "b"), p, nil)
	cancel, done := start(t, s)

	// one sample buffered, both loops then blocked on send
	require.Eventually(t, func() bool { return p.count("a")+p.count("b") >= 3 }, time.Second, time.Millisecond)
	cancel()
	waitDone(t, done)
}

func TestScheduler_IntervalIsMaxOfOverrideAndDefault(t *testing.T) {
	short := time.Millisecond
	cfg := testConfig(time.Hour, 10)
	cfg.Endpoints = []models.Endpoint{{Name: "api", Interval: &short}}

	p := newCountingProber()
	s := New(cfg, p, nil)
	cancel, done := start(t, s)

	recv(t, s.Results(), time.Second)
	select {
	case <-s.Results():
		t.Fatal("a shorter override must not undercut the default interval")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	waitDone(t, done)
}

func TestScheduler_RunTwice(t *testing.T) {
	s := New(testConfig(time.Hour, 1), newCountingProber(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyStarted)
}
