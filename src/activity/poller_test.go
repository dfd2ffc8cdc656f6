package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gateway-dashboard/src/gateway"
	"gateway-dashboard/src/gateway/gatewaytest"
	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeGateway implements the typed client from in-memory state.
type fakeGateway struct {
	mu       sync.Mutex
	sessions []models.MSession
	jobs     []models.MCronJob
	sessErr  error
	cronErr  error
}

func (f *fakeGateway) set(fn func(f *fakeGateway)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGateway) Health(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"ok":true}`), nil
}

func (f *fakeGateway) ListSessions(ctx context.Context, lookback time.Duration) ([]models.MSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MSession(nil), f.sessions...), f.sessErr
}

func (f *fakeGateway) ListCronJobs(ctx context.Context, includeDisabled bool) ([]models.MCronJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MCronJob(nil), f.jobs...), f.cronErr
}

func (f *fakeGateway) UpdateCronEnabled(ctx context.Context, jobID string, enabled bool) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeGateway) RunCron(ctx context.Context, jobID string) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeGateway) CronRuns(ctx context.Context, jobID string, limit int) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeGateway) SendAgentMessage(ctx context.Context, message, sessionKey string) (json.RawMessage, error) {
	return nil, nil
}

func testConfig() *models.MPollerConfig {
	return &models.MPollerConfig{
		IntervalSeconds:        15,
		SessionLookbackMinutes: 1440,
		RecencyWindowSeconds:   120,
		NoiseThresholdSeconds:  10,
		MaxEntries:             500,
		ExcerptLength:          80,
	}
}

func newTestPoller(gw *fakeGateway) (*Poller, *fixedClock) {
	clock := &fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewPoller(testConfig(), gw, clock, logger.Discard("poller")), clock
}

func session(key string, updated time.Time, msg string) models.MSession {
	return models.MSession{Key: key, UpdatedAt: updated.UnixMilli(), LastMessage: msg}
}

func categories(entries []models.MActivityEntry) []models.MActivityCategory {
	out := make([]models.MActivityCategory, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Category)
	}
	return out
}

// -----------------------------------------------------------------------------

func TestSeedingPassIsSilent(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	p, clock := newTestPoller(gw)
	now := clock.Now()
	gw.sessions = []models.MSession{session("a", now, "fresh"), session("b", now.Add(-time.Hour), "old")}
	gw.jobs = []models.MCronJob{{ID: "j1", Enabled: true, State: models.MCronJobState{LastRunAtMs: now.UnixMilli()}}}

	assert.Empty(t, p.PollOnce(context.Background()))
	assert.Equal(t, 2, p.Status().TrackedSessions)
	assert.Equal(t, 1, p.Status().TrackedJobs)
	assert.Equal(t, 0, p.Status().Entries)
}

func TestNewSessionsRespectRecencyWindow(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	p, clock := newTestPoller(gw)
	p.PollOnce(context.Background())

	clock.Advance(15 * time.Second)
	now := clock.Now()
	gw.set(func(f *fakeGateway) {
		f.sessions = []models.MSession{
			session("recent", now.Add(-time.Minute), "what's the status?"),
			session("backfill", now.Add(-10*time.Minute), "ancient history"),
		}
	})

	entries := p.PollOnce(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].Subject)
	assert.Equal(t, "New session recent: what's the status?", entries[0].Message)
	assert.Equal(t, now, entries[0].CreatedAt)
	assert.Equal(t, 2, p.Status().TrackedSessions)

	// The backfilled session is now known: a later advance is reported.
	clock.Advance(15 * time.Second)
	gw.set(func(f *fakeGateway) {
		f.sessions[1].UpdatedAt = clock.Now().UnixMilli()
		f.sessions[1].LastMessage = "back again"
	})
	entries = p.PollOnce(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "Activity in backfill: back again", entries[0].Message)
}

func TestKnownSessionNoiseIsSuppressed(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	p, clock := newTestPoller(gw)
	start := clock.Now()
	gw.sessions = []models.MSession{session("s", start, "one")}
	p.PollOnce(context.Background())

	gw.set(func(f *fakeGateway) { f.sessions[0].UpdatedAt = start.Add(5 * time.Second).UnixMilli() })
	assert.Empty(t, p.PollOnce(context.Background()))

	gw.set(func(f *fakeGateway) { f.sessions[0].UpdatedAt = start.Add(30 * time.Second).UnixMilli() })
	entries := p.PollOnce(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, models.CategorySession, entries[0].Category)

	// Unchanged on the next poll: nothing new.
	assert.Empty(t, p.PollOnce(context.Background()))
}

func TestTrackedSessionBoundDoesNotReannounce(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxTrackedSessions = 2
	gw := &fakeGateway{}
	clock := &fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	p := NewPoller(cfg, gw, clock, logger.Discard("poller"))

	start := clock.Now()
	gw.sessions = []models.MSession{session("a", start, "one"), session("b", start, "two")}
	assert.Empty(t, p.PollOnce(context.Background()))

	clock.Advance(15 * time.Second)
	gw.set(func(f *fakeGateway) {
		f.sessions = append(f.sessions, session("c", clock.Now(), "three"))
	})
	entries := p.PollOnce(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "New session c: three", entries[0].Message)

	// More sessions are live than the bound allows; none of them is evicted
	// and re-announced on later polls.
	for i := 0; i < 3; i++ {
		clock.Advance(15 * time.Second)
		assert.Empty(t, p.PollOnce(context.Background()), "poll %d", i)
	}
	assert.Equal(t, 3, p.Status().TrackedSessions)
	assert.Equal(t, 1, p.Status().Entries)

	// Once a session disappears it is the one evicted.
	clock.Advance(15 * time.Second)
	gw.set(func(f *fakeGateway) { f.sessions = f.sessions[1:] })
	assert.Empty(t, p.PollOnce(context.Background()))
	assert.Equal(t, 2, p.Status().TrackedSessions)
}

func TestCronRunsAndToggles(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	p, _ := newTestPoller(gw)
	gw.jobs = []models.MCronJob{{ID: "j1", Name: "backup", Enabled: true, State: models.MCronJobState{LastRunAtMs: 1000, LastStatus: "ok"}}}
	p.PollOnce(context.Background())

	assert.Empty(t, p.PollOnce(context.Background()))

	gw.set(func(f *fakeGateway) {
		f.jobs[0].State = models.MCronJobState{LastRunAtMs: 2000, LastStatus: "error", LastDurationMs: 1500, LastError: "boom"}
		f.jobs = append(f.jobs, models.MCronJob{ID: "j2", Name: "report", Enabled: true, State: models.MCronJobState{LastRunAtMs: 9000}})
	})
	entries := p.PollOnce(context.Background())
	require.Len(t, entries, 1, "new job j2 is recorded silently")
	assert.Equal(t, models.CategoryCronRun, entries[0].Category)
	assert.Equal(t, "Cron job backup failed in 1.5s: boom", entries[0].Message)

	gw.set(func(f *fakeGateway) { f.jobs[1].Enabled = false })
	entries = p.PollOnce(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, models.CategoryCronToggle, entries[0].Category)
	assert.Equal(t, "j2", entries[0].Subject)
}

func TestFetchFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	p, clock := newTestPoller(gw)
	gw.jobs = []models.MCronJob{{ID: "j1", Enabled: true, State: models.MCronJobState{LastRunAtMs: 1000}}}
	p.PollOnce(context.Background())

	gw.set(func(f *fakeGateway) {
		f.sessErr = helpers.NewTimeout("sessions.list", 10*time.Second)
		f.jobs[0].State.LastRunAtMs = 2000
	})
	entries := p.PollOnce(context.Background())
	assert.Equal(t, []models.MActivityCategory{models.CategoryCronRun}, categories(entries))
	assert.Equal(t, 1, p.Errors.ErrorCount(opSessions))
	assert.Equal(t, 1, p.Status().ConsecutiveFailures)
	assert.True(t, p.Status().GatewayReachable)

	gw.set(func(f *fakeGateway) { f.sessErr = nil })
	clock.Advance(time.Minute)
	p.PollOnce(context.Background())
	assert.Equal(t, 0, p.Errors.ErrorCount(opSessions))
	assert.Equal(t, 0, p.Status().ConsecutiveFailures)
	assert.Equal(t, clock.Now(), p.Status().LastSuccessAt)
}

func TestFailedSeedMakesNextSuccessSilent(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{sessErr: errors.New("boom")}
	p, clock := newTestPoller(gw)
	p.PollOnce(context.Background())

	gw.set(func(f *fakeGateway) {
		f.sessErr = nil
		f.sessions = []models.MSession{session("s", clock.Now(), "hi")}
	})
	assert.Empty(t, p.PollOnce(context.Background()))
	assert.Equal(t, 1, p.Status().TrackedSessions)
}

func TestReachabilityTransitions(t *testing.T) {
	t.Parallel()

	down := helpers.NewTransportError("dialing", errors.New("connection refused"))
	gw := &fakeGateway{}
	p, _ := newTestPoller(gw)
	p.PollOnce(context.Background())

	gw.set(func(f *fakeGateway) { f.sessErr, f.cronErr = down, down })
	entries := p.PollOnce(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, models.CategorySystem, entries[0].Category)
	assert.Equal(t, "Gateway unreachable (transport_error)", entries[0].Message)
	assert.False(t, p.Status().GatewayReachable)

	assert.Empty(t, p.PollOnce(context.Background()), "only transitions are reported")
	assert.Equal(t, 2, p.Status().ConsecutiveFailures)

	gw.set(func(f *fakeGateway) { f.sessErr, f.cronErr = nil, nil })
	entries = p.PollOnce(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "Gateway connection restored", entries[0].Message)
}

func TestLogIsBoundedAndNewestFirst(t *testing.T) {
	t.Parallel()

	p, _ := newTestPoller(&fakeGateway{})
	for i := 1; i <= 600; i++ {
		p.Record(models.CategoryAgentMessage, "", fmt.Sprintf("m%d", i))
	}

	assert.Equal(t, 500, p.Status().Entries)
	all := p.Latest(0, "")
	require.Len(t, all, 500)
	assert.Equal(t, "m600", all[0].Message)
	assert.Equal(t, "m101", all[499].Message)

	latest := p.Latest(3, models.CategoryAgentMessage)
	assert.Equal(t, []string{"m600", "m599", "m598"}, []string{latest[0].Message, latest[1].Message, latest[2].Message})
	assert.Empty(t, p.Latest(10, models.CategorySession))
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	p, _ := newTestPoller(gw)
	out := make(chan []models.MActivityEntry, 8)
	var wg sync.WaitGroup

	require.NoError(t, p.Start(context.Background(), out, &wg))
	assert.Error(t, p.Start(context.Background(), out, &wg))

	select {
	case batch := <-out:
		require.Len(t, batch, 1)
		assert.Equal(t, models.CategorySystem, batch[0].Category)
		assert.Equal(t, "Activity monitor started", batch[0].Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no start entry pushed")
	}
	assert.True(t, p.Status().Running)

	entry := p.Record(models.CategoryAgentMessage, "agent:main:main", "Sent: hi")
	select {
	case batch := <-out:
		assert.Equal(t, entry.ID, batch[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("recorded entry not pushed")
	}

	require.NoError(t, p.Stop())
	assert.Error(t, p.Stop())
	wg.Wait()
	assert.False(t, p.Status().Running)
}

// -----------------------------------------------------------------------------

func TestPollerOverRealBridge(t *testing.T) {
	t.Parallel()

	clock := &fixedClock{now: time.Now()}
	seededAt := clock.Now()
	var advanced atomic.Bool
	fake := gatewaytest.NewServer(func(method string, params json.RawMessage) (interface{}, *models.MRpcError) {
		switch method {
		case gateway.MethodSessionsList:
			discord := session("agent:main:discord", seededAt.Add(-10*time.Second), "pong")
			if !advanced.Load() {
				return map[string]interface{}{"sessions": []models.MSession{discord}}, nil
			}
			discord.UpdatedAt = seededAt.Add(5 * time.Second).UnixMilli()
			return map[string]interface{}{"sessions": []models.MSession{
				session("agent:main:telegram", clock.Now().Add(-30*time.Second), "ping"),
				discord,
			}}, nil
		case gateway.MethodCronList:
			return map[string]interface{}{"jobs": []interface{}{}}, nil
		}
		return nil, &models.MRpcError{Code: "UNKNOWN_METHOD", Message: method}
	})
	defer fake.Close()

	gwCfg := &models.MGatewayConfig{URL: fake.URL(), Token: "tok", TimeoutMs: 2000, MinProtocol: 3, MaxProtocol: 3}
	bridge := gateway.NewBridge(gwCfg, logger.Discard("bridge"))
	p := NewPoller(testConfig(), gateway.NewClient(bridge, gwCfg), clock, logger.Discard("poller"))

	assert.Empty(t, p.PollOnce(context.Background()))
	assert.Equal(t, 1, p.Status().TrackedSessions)

	// discord advances by 15s; telegram is first seen 30s after its update.
	clock.Advance(15 * time.Second)
	advanced.Store(true)
	entries := p.PollOnce(context.Background())
	require.Len(t, entries, 2)
	messages := make([]string, 0, len(entries))
	for _, e := range entries {
		assert.Equal(t, models.CategorySession, e.Category)
		messages = append(messages, e.Message)
	}
	assert.ElementsMatch(t, []string{
		"New session agent:main:telegram: ping",
		"Activity in agent:main:discord: pong",
	}, messages)

	for _, c := range fake.Connects() {
		assert.Equal(t, "tok", c.Auth.Token)
	}
	var lookback float64
	for _, r := range fake.Requests() {
		if r.Method == gateway.MethodSessionsList {
			var params map[string]float64
			require.NoError(t, json.Unmarshal(r.Params, &params))
			lookback = params["activeMinutes"]
		}
	}
	assert.Equal(t, float64(1440), lookback)
	assert.Equal(t, 4, fake.Connections())
}
