package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/board"
	"laundry-branch-monitor/internal/db"
	"laundry-branch-monitor/internal/notification"
	"laundry-branch-monitor/internal/publish"
	"laundry-branch-monitor/internal/store"
)

// fakeFetcher serves fixed feeds and counts calls.
type fakeFetcher struct {
	mu           sync.Mutex
	machines     []store.ApiMachine
	transactions []store.ApiTransaction
	err          error
	calls        atomic.Int32
}

func (f *fakeFetcher) FetchMachines(ctx context.Context, branchCode string) ([]store.ApiMachine, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.machines, nil
}

func (f *fakeFetcher) FetchTransactions(ctx context.Context, branchCode, date string) ([]store.ApiTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.transactions, nil
}

type fixture struct {
	service   *Service
	store     store.Store
	fetcher   *fakeFetcher
	publisher *publish.Fake
	pool      *notification.WorkerPool
}

func newFixture(t *testing.T) *fixture {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	st := store.NewGormStore(gormDB)

	cfg := &config.Config{
		Refresh:    config.RefreshConfig{Enabled: true, IntervalSeconds: 120, Interval: 2 * time.Minute},
		Simulation: config.SimulationConfig{DefaultWashers: 5, DefaultDryers: 5},
		Branches:   []config.BranchConfig{{Code: "KMP", Name: "Kampus", Timezone: "UTC"}},
	}
	fetcher := &fakeFetcher{
		machines: []store.ApiMachine{
			{ID: 1, Number: 1, Type: "washer", Name: "Cuci 1"},
			{ID: 2, Number: 1, Type: "dryer", Name: "Kering 1"},
		},
		transactions: []store.ApiTransaction{
			{Code: "A", Time: "08.00", Date: "2026-10-19", Services: "Cuci"},
		},
	}
	pub := publish.NewFake()
	pool := notification.NewWorkerPool(1, gormDB, nil)

	svc := NewService(cfg, st, fetcher, board.New(st, cfg.Simulation), pub, pool)
	return &fixture{service: svc, store: st, fetcher: fetcher, publisher: pub, pool: pool}
}

func (f *fixture) at(h, m int) {
	f.service.Now = func() time.Time { return time.Date(2026, 10, 19, h, m, 0, 0, time.UTC) }
}

func TestRefreshOnce_RecordsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.at(8, 5)
	f.service.RefreshOnce(ctx)

	status := f.service.Status()
	require.Contains(t, status.Branches, "KMP")
	assert.Empty(t, status.Branches["KMP"].LastError)
	require.NotNil(t, status.LastRefresh)

	require.Equal(t, 1, f.publisher.Count())
	var snap publish.Snapshot
	require.NoError(t, json.Unmarshal(f.publisher.Payloads[0], &snap))
	assert.Equal(t, "0/1", snap.Availability.Washers)

	branch, err := f.store.GetBranch(ctx, "KMP")
	require.NoError(t, err)
	txs, err := f.store.ListTransactions(ctx, branch.ID, "2026-10-19")
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	// The wash finished at 08:15; the washer is reported for notification.
	f.at(8, 20)
	f.service.RefreshOnce(ctx)

	select {
	case id := <-f.pool.Jobs():
		assert.Equal(t, int64(1), id)
	case <-time.After(time.Second):
		t.Fatal("expected a notification job for the washer")
	}
	assert.Equal(t, 2, f.publisher.Count())
}

func TestRefreshOnce_FetchFailureKeepsMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.at(8, 5)
	f.service.RefreshOnce(ctx)
	require.Equal(t, 1, f.publisher.Count())

	f.fetcher.mu.Lock()
	f.fetcher.err = errors.New("upstream timeout")
	f.fetcher.mu.Unlock()

	f.at(8, 7)
	f.service.RefreshOnce(ctx)

	status := f.service.Status().Branches["KMP"]
	assert.Equal(t, "upstream timeout", status.LastError)
	assert.True(t, status.Retryable)
	require.NotNil(t, status.LastRefresh)
	assert.Equal(t, 5, status.LastRefresh.Minute())

	// Nothing simulated or published from the failed attempt.
	assert.Equal(t, 1, f.publisher.Count())
	branch, err := f.store.GetBranch(ctx, "KMP")
	require.NoError(t, err)
	txs, err := f.store.ListTransactions(ctx, branch.ID, "2026-10-19")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.service.cfg.Refresh.Interval = 20 * time.Millisecond
	f.at(8, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.service.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.fetcher.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	calls := f.fetcher.calls.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, calls, f.fetcher.calls.Load(), "no refresh may run after Run returns")
}

func TestRun_Disabled(t *testing.T) {
	f := newFixture(t)
	f.service.cfg.Refresh.Enabled = false
	f.service.Run(context.Background())
	assert.Zero(t, f.fetcher.calls.Load())
}

func TestCountdown(t *testing.T) {
	f := newFixture(t)
	f.service.resetCountdown(3 * time.Second)
	assert.Equal(t, 3, f.service.SecondsUntilRefresh())

	f.service.tick()
	f.service.tick()
	assert.Equal(t, 1, f.service.SecondsUntilRefresh())

	for i := 0; i < 5; i++ {
		f.service.tick()
	}
	assert.Equal(t, 0, f.service.SecondsUntilRefresh())
	assert.Equal(t, 120, f.service.Status().IntervalSeconds)
}
