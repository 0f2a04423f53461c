// Package refresh keeps every configured branch's mirror and board current by
// polling the back office on a fixed interval.
package refresh

import (
	"context"
	"log"
	"sync"
	"time"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/backoffice"
	"laundry-branch-monitor/internal/board"
	"laundry-branch-monitor/internal/notification"
	"laundry-branch-monitor/internal/parse"
	"laundry-branch-monitor/internal/publish"
	"laundry-branch-monitor/internal/store"
)

// BranchStatus is the outcome of the last refresh of one branch.
type BranchStatus struct {
	LastAttempt time.Time  `json:"last_attempt"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Retryable   bool       `json:"retryable"`
}

// Status is a point-in-time view of the refresh driver.
type Status struct {
	Enabled             bool                    `json:"enabled"`
	IntervalSeconds     int                     `json:"interval_seconds"`
	SecondsUntilRefresh int                     `json:"seconds_until_refresh"`
	LastRefresh         *time.Time              `json:"last_refresh,omitempty"`
	Branches            map[string]BranchStatus `json:"branches"`
}

// Service orchestrates the refresh cycle: fetch, mirror, simulate, record,
// notify and publish.
type Service struct {
	cfg        *config.Config
	store      store.Store
	fetcher    backoffice.Fetcher
	board      *board.Board
	publisher  publish.Publisher
	workerPool *notification.WorkerPool

	// Now is the clock used for each cycle.
	Now func() time.Time

	mu          sync.RWMutex
	secondsLeft int
	lastRefresh *time.Time
	branches    map[string]BranchStatus
}

// NewService wires the refresh driver. workerPool and publisher may be nil.
func NewService(cfg *config.Config, st store.Store, fetcher backoffice.Fetcher, b *board.Board, publisher publish.Publisher, workerPool *notification.WorkerPool) *Service {
	if publisher == nil {
		publisher = publish.NewNoop()
	}
	return &Service{
		cfg:        cfg,
		store:      st,
		fetcher:    fetcher,
		board:      b,
		publisher:  publisher,
		workerPool: workerPool,
		Now:        time.Now,
		branches:   make(map[string]BranchStatus),
	}
}

// Run performs one refresh immediately and then one per interval until ctx
// is canceled. A one-second ticker drives the countdown only.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Refresh.Enabled {
		log.Println("Refresh is disabled. Not starting.")
		return
	}
	log.Println("Starting refresh service...")

	if s.workerPool != nil {
		s.workerPool.Start(ctx)
	}

	interval := s.interval()
	s.RefreshOnce(ctx)
	s.resetCountdown(interval)

	timer := time.NewTimer(interval)
	defer timer.Stop()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Refresh service shutting down.")
			return
		case <-ticker.C:
			s.tick()
		case <-timer.C:
			s.RefreshOnce(ctx)
			s.resetCountdown(interval)
			timer.Reset(interval)
		}
	}
}

// RefreshOnce refreshes every configured branch in turn. Branches are
// independent: one failing does not stop the others.
func (s *Service) RefreshOnce(ctx context.Context) {
	log.Println("Executing refresh cycle...")
	for _, bc := range s.cfg.Branches {
		if ctx.Err() != nil {
			log.Println("Refresh cycle interrupted.")
			return
		}
		s.refreshBranch(ctx, bc)
	}
	log.Println("Refresh cycle finished.")
}

func (s *Service) refreshBranch(ctx context.Context, bc config.BranchConfig) {
	now := s.Now()
	loc := config.Location(bc.Timezone)
	day := parse.FormatDate(now, loc)

	// Step 1: Fetch both feeds before touching the mirror
	machines, err := s.fetcher.FetchMachines(ctx, bc.Code)
	if err != nil {
		s.fail(bc.Code, now, err, true)
		return
	}
	txs, err := s.fetcher.FetchTransactions(ctx, bc.Code, day)
	if err != nil {
		s.fail(bc.Code, now, err, true)
		return
	}

	// Step 2: Mirror
	branch, err := s.store.UpsertBranch(ctx, bc.Code, bc.Name, bc.Timezone)
	if err != nil {
		s.fail(bc.Code, now, err, false)
		return
	}
	if err := s.store.UpsertMachines(ctx, branch.ID, machines); err != nil {
		s.fail(bc.Code, now, err, false)
		return
	}
	if err := s.store.ReplaceTransactions(ctx, branch.ID, day, txs); err != nil {
		s.fail(bc.Code, now, err, false)
		return
	}

	// Step 3: Simulate
	res, err := s.board.Compute(ctx, branch, now)
	if err != nil {
		s.fail(bc.Code, now, err, false)
		return
	}
	for _, skipped := range res.Skipped {
		log.Printf("Warning: branch %s: skipped transaction %q: %s", bc.Code, skipped.Code, skipped.Reason)
	}
	if len(res.Overflow) > 0 {
		log.Printf("Warning: branch %s: %d tasks found no free machine", bc.Code, len(res.Overflow))
	}

	// Step 4: Record transitions
	machineIDsToNotify, err := s.store.UpdateOccupancy(ctx, now, branch.ID, board.States(res))
	if err != nil {
		log.Printf("Error processing occupancy changes for branch %s: %v", bc.Code, err)
	}

	// Step 5: Notify and publish
	if len(machineIDsToNotify) > 0 && s.workerPool != nil {
		log.Printf("Dispatching notifications for %d machines", len(machineIDsToNotify))
		for _, machineID := range machineIDsToNotify {
			s.workerPool.Dispatch(ctx, machineID)
		}
	}

	payload, err := publish.FormatSnapshot(bc.Code, res)
	if err != nil {
		log.Printf("Error encoding snapshot for branch %s: %v", bc.Code, err)
	} else if err := s.publisher.Publish(ctx, bc.Code, payload); err != nil {
		log.Printf("Error publishing snapshot for branch %s: %v", bc.Code, err)
	}

	s.succeed(bc.Code, now)
}

func (s *Service) fail(code string, now time.Time, err error, retryable bool) {
	log.Printf("Error refreshing branch %s: %v. Keeping previous data.", code, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.branches[code]
	st.LastAttempt = now
	st.LastError = err.Error()
	st.Retryable = retryable
	s.branches[code] = st
}

func (s *Service) succeed(code string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[code] = BranchStatus{LastAttempt: now, LastRefresh: &now}
	s.lastRefresh = &now
}

func (s *Service) interval() time.Duration {
	if s.cfg.Refresh.Interval > 0 {
		return s.cfg.Refresh.Interval
	}
	return time.Duration(s.cfg.Refresh.IntervalSeconds) * time.Second
}

func (s *Service) resetCountdown(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secondsLeft = int(interval / time.Second)
}

func (s *Service) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secondsLeft > 0 {
		s.secondsLeft--
	}
}

// SecondsUntilRefresh returns the countdown to the next scheduled refresh.
func (s *Service) SecondsUntilRefresh() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secondsLeft
}

// Status returns a copy of the driver state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make(map[string]BranchStatus, len(s.branches))
	for k, v := range s.branches {
		branches[k] = v
	}
	return Status{
		Enabled:             s.cfg.Refresh.Enabled,
		IntervalSeconds:     int(s.interval() / time.Second),
		SecondsUntilRefresh: s.secondsLeft,
		LastRefresh:         s.lastRefresh,
		Branches:            branches,
	}
}
