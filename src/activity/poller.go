// Package activity turns periodic gateway snapshots into a deduplicated,
// human-readable activity feed.
package activity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"
	"gateway-dashboard/src/utils"
)

const (
	opSessions = "sessions.list"
	opCron     = "cron.list"
)

type reachability int32

const (
	reachUnknown reachability = iota
	reachUp
	reachDown
)

// Poller owns the activity log and the session/cron snapshots. Nothing else
// writes to them: control actions go through Record.
type Poller struct {
	Config *models.MPollerConfig
	Client interfaces.IGatewayClient
	Clock  utils.Clock
	Logger *logger.Logger
	Errors *helpers.ErrorHandler

	thresholds Thresholds
	log        *Log
	sessions   *utils.SnapshotStore[models.MSessionSnapshot]
	jobs       *utils.SnapshotStore[models.MCronSnapshot]

	// A kind is seeded once one fetch of it succeeded; until then changes are recorded silently.
	sessionsSeeded atomic.Bool
	jobsSeeded     atomic.Bool
	reach          atomic.Int32

	pollMu sync.Mutex

	statusMu      sync.RWMutex
	lastPollAt    time.Time
	lastSuccessAt time.Time
	failures      int

	cancelFunc context.CancelFunc
	ctx        context.Context
	outputChan chan<- []models.MActivityEntry
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewPoller(cfg *models.MPollerConfig, client interfaces.IGatewayClient, clock utils.Clock, log *logger.Logger) *Poller {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Poller{
		Config: cfg,
		Client: client,
		Clock:  clock,
		Logger: log,
		Errors: helpers.NewErrorHandler(log),
		thresholds: Thresholds{
			Recency:       time.Duration(cfg.RecencyWindowSeconds) * time.Second,
			Noise:         time.Duration(cfg.NoiseThresholdSeconds) * time.Second,
			ExcerptLength: cfg.ExcerptLength,
		},
		log:      NewLog(cfg.MaxEntries),
		sessions: utils.NewSnapshotStore[models.MSessionSnapshot](cfg.MaxTrackedSessions),
		jobs:     utils.NewSnapshotStore[models.MCronSnapshot](cfg.MaxTrackedJobs),
	}
}

// -----------------------------------------------------------------------------

func (p *Poller) Name() string {
	return "ActivityPoller"
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start records a start entry, runs the silent seeding pass and then polls on
// every tick until Stop or parent cancellation. New entries are pushed to
// outputChan when it is non-nil.
func (p *Poller) Start(parentCtx context.Context, outputChan chan<- []models.MActivityEntry, wg *sync.WaitGroup) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning.Load() {
		return fmt.Errorf("%s is already running", p.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	p.cancelFunc = cancel
	p.ctx = ctx
	p.outputChan = outputChan
	p.isRunning.Store(true)

	start := p.log.append(p.Clock.Now(), models.CategorySystem, "", "Activity monitor started")

	wg.Add(1)
	go p.runLoop(ctx, outputChan, []models.MActivityEntry{start}, wg)
	p.Logger.Info("Started %s (every %ds)", p.Name(), p.Config.IntervalSeconds)
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning.Load() {
		return fmt.Errorf("%s is not running", p.Name())
	}

	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.isRunning.Store(false)
	p.Logger.Info("Stopped %s", p.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (p *Poller) runLoop(ctx context.Context, outputChan chan<- []models.MActivityEntry, initial []models.MActivityEntry, wg *sync.WaitGroup) {
	defer wg.Done()

	push(ctx, outputChan, initial)
	push(ctx, outputChan, p.PollOnce(ctx))

	ticker := time.NewTicker(time.Duration(p.Config.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			push(ctx, outputChan, p.PollOnce(ctx))
		}
	}
}

// -----------------------------------------------------------------------------

// push hands entries to the output channel, giving up once ctx is done.
func push(ctx context.Context, outputChan chan<- []models.MActivityEntry, entries []models.MActivityEntry) {
	if len(entries) == 0 || outputChan == nil {
		return
	}
	select {
	case outputChan <- entries:
	case <-ctx.Done():
	}
}

// -----------------------------------------------------------------------------
// Polling
// -----------------------------------------------------------------------------

// PollOnce fetches sessions and cron jobs concurrently, diffs them against
// the snapshots and appends the resulting entries. A failing fetch is logged
// and skipped without affecting the other. Returns the entries written.
func (p *Poller) PollOnce(ctx context.Context) []models.MActivityEntry {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	lookback := time.Duration(p.Config.SessionLookbackMinutes) * time.Minute

	var (
		wg               sync.WaitGroup
		sessions         []models.MSession
		jobs             []models.MCronJob
		sessErr, cronErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sessions, sessErr = p.Client.ListSessions(ctx, lookback)
	}()
	go func() {
		defer wg.Done()
		jobs, cronErr = p.Client.ListCronJobs(ctx, true)
	}()
	wg.Wait()

	now := p.Clock.Now()
	var changes []change

	// A failed fetch leaves its snapshots untouched.
	if !p.Errors.Handle(sessErr, opSessions) {
		p.Errors.ResetErrorCount(opSessions)
		changes = append(changes, p.applySessions(sessions, now)...)
	}
	if !p.Errors.Handle(cronErr, opCron) {
		p.Errors.ResetErrorCount(opCron)
		changes = append(changes, p.applyJobs(jobs, now)...)
	}

	changes = append(changes, p.reachabilityChange(sessErr, cronErr)...)
	p.updateStatus(now, sessErr == nil && cronErr == nil)

	written := make([]models.MActivityEntry, 0, len(changes))
	for _, c := range changes {
		written = append(written, p.log.append(now, c.category, c.subject, c.message))
	}
	if len(written) > 0 {
		p.Logger.Debug("Poll wrote %d entries", len(written))
	}
	return written
}

// -----------------------------------------------------------------------------

func (p *Poller) applySessions(sessions []models.MSession, now time.Time) []change {
	seeded := p.sessionsSeeded.Load()
	var out []change

	for _, s := range sessions {
		if s.Key == "" {
			continue
		}

		var prev *models.MSessionSnapshot
		if snap, ok := p.sessions.Get(s.Key); ok {
			prev = &snap
		}

		if c, emit := diffSession(prev, s, now, p.thresholds); emit && seeded {
			out = append(out, c)
		}

		// A session that did not move keeps its recorded timestamp.
		next := sessionSnapshot(s)
		if prev != nil && next.UpdatedAt.Before(prev.UpdatedAt) {
			next.UpdatedAt = prev.UpdatedAt
		}
		p.sessions.Put(s.Key, next, now)
	}

	if evicted := p.sessions.Prune(now); evicted > 0 {
		p.Logger.Debug("Evicted %d stale session snapshots", evicted)
	}

	if !seeded {
		p.sessionsSeeded.Store(true)
		p.Logger.Info("Seeded %d sessions", len(sessions))
	}
	return out
}

// -----------------------------------------------------------------------------

func (p *Poller) applyJobs(jobs []models.MCronJob, now time.Time) []change {
	seeded := p.jobsSeeded.Load()
	var out []change

	for _, j := range jobs {
		if j.ID == "" {
			continue
		}

		var prev *models.MCronSnapshot
		if snap, ok := p.jobs.Get(j.ID); ok {
			prev = &snap
		}

		if seeded {
			out = append(out, diffCron(prev, j, p.thresholds)...)
		}

		p.jobs.Put(j.ID, cronSnapshot(j), now)
	}

	if evicted := p.jobs.Prune(now); evicted > 0 {
		p.Logger.Debug("Evicted %d stale cron snapshots", evicted)
	}

	if !seeded {
		p.jobsSeeded.Store(true)
		p.Logger.Info("Seeded %d cron jobs", len(jobs))
	}
	return out
}

// -----------------------------------------------------------------------------

// reachabilityChange emits a system entry only when the gateway flips
// between reachable and unreachable. Unreachable means both fetches failed.
func (p *Poller) reachabilityChange(sessErr, cronErr error) []change {
	next := reachUp
	if sessErr != nil && cronErr != nil {
		next = reachDown
	}

	prev := reachability(p.reach.Swap(int32(next)))
	switch {
	case next == reachDown && prev != reachDown:
		return []change{{
			category: models.CategorySystem,
			message:  fmt.Sprintf("Gateway unreachable (%s)", helpers.Kind(sessErr)),
		}}
	case next == reachUp && prev == reachDown:
		return []change{{category: models.CategorySystem, message: "Gateway connection restored"}}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *Poller) updateStatus(now time.Time, ok bool) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	p.lastPollAt = now
	if ok {
		p.lastSuccessAt = now
		p.failures = 0
	} else {
		p.failures++
	}
}

// -----------------------------------------------------------------------------
// Feed
// -----------------------------------------------------------------------------

// Latest returns up to limit entries, newest first, optionally filtered.
func (p *Poller) Latest(limit int, category models.MActivityCategory) []models.MActivityEntry {
	return p.log.Latest(limit, category)
}

// -----------------------------------------------------------------------------

// Record appends an entry for a control action and pushes it to listeners.
func (p *Poller) Record(category models.MActivityCategory, subject, message string) models.MActivityEntry {
	entry := p.log.append(p.Clock.Now(), category, subject, message)

	p.mu.Lock()
	ctx, outputChan, running := p.ctx, p.outputChan, p.isRunning.Load()
	p.mu.Unlock()
	if running {
		push(ctx, outputChan, []models.MActivityEntry{entry})
	}
	return entry
}

// -----------------------------------------------------------------------------

func (p *Poller) Status() models.MPollerStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()

	return models.MPollerStatus{
		Running:             p.isRunning.Load(),
		GatewayReachable:    reachability(p.reach.Load()) == reachUp,
		LastPollAt:          p.lastPollAt,
		LastSuccessAt:       p.lastSuccessAt,
		ConsecutiveFailures: p.failures,
		TrackedSessions:     p.sessions.Len(),
		TrackedJobs:         p.jobs.Len(),
		Entries:             p.log.Len(),
	}
}
