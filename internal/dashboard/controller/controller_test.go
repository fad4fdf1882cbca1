package controller

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/internal/dashboard/channel"
	"github.com/grovetools/fleetview/internal/dashboard/store"
	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/models"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	signals chan channel.Signal
	states  chan models.ConnectionState
	gen     atomic.Uint64
}

func newFakeSource() *fakeSource {
	s := &fakeSource{
		signals: make(chan channel.Signal, 16),
		states:  make(chan models.ConnectionState, 16),
	}
	s.gen.Store(1)
	return s
}

func (s *fakeSource) Signals() <-chan channel.Signal          { return s.signals }
func (s *fakeSource) States() <-chan models.ConnectionState { return s.states }
func (s *fakeSource) Generation() uint64                    { return s.gen.Load() }

type pendingFetch struct {
	reply chan fetchReply
}

type fetchReply struct {
	snap *models.Snapshot
	err  error
}

func (p *pendingFetch) complete(snap models.Snapshot) { p.reply <- fetchReply{snap: &snap} }
func (p *pendingFetch) fail(err error)                { p.reply <- fetchReply{err: err} }

type fakeFetcher struct {
	calls chan *pendingFetch
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan *pendingFetch, 16)}
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	p := &pendingFetch{reply: make(chan fetchReply, 1)}
	f.calls <- p
	select {
	case r := <-p.reply:
		return r.snap, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) next(t *testing.T) *pendingFetch {
	t.Helper()
	select {
	case p := <-f.calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fetch")
		return nil
	}
}

func (f *fakeFetcher) none(t *testing.T) {
	t.Helper()
	select {
	case <-f.calls:
		t.Fatal("unexpected fetch")
	case <-time.After(50 * time.Millisecond):
	}
}

type fakePredictor struct {
	result []models.Prediction
}

func (p *fakePredictor) Predict(ctx context.Context, req models.PredictionRequest) ([]models.Prediction, error) {
	return p.result, nil
}

func snapshotWith(robotID string, at time.Time) models.Snapshot {
	return models.Snapshot{
		Robots:     []models.Robot{{ID: robotID, Zone: "A", Row: 1, Shelf: 1, Battery: 80, Connected: true}},
		Statistics: models.Statistics{TotalRobots: 1, ActiveRobots: 1},
		FetchedAt:  at,
	}
}

type harness struct {
	src     *fakeSource
	fetcher *fakeFetcher
	store   *store.Store
	ctrl    *Controller
	cancel  context.CancelFunc
	errc    chan error
}

func start(t *testing.T, predictor Predictor) *harness {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		src:     newFakeSource(),
		fetcher: newFakeFetcher(),
		store:   store.New(store.Options{}),
		errc:    make(chan error, 1),
	}
	opts := Options{
		Store:        h.store,
		Source:       h.src,
		Fetcher:      h.fetcher,
		FetchTimeout: 5 * time.Second,
		Clock:        clock.Fake(t0),
		Logger:       logrus.NewEntry(logger),
	}
	if predictor != nil {
		opts.Predictor = predictor
	}
	h.ctrl = New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- h.ctrl.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.ctrl.Done()
}

func (h *harness) robotID() string {
	v := h.store.View()
	if len(v.Robots) == 0 {
		return ""
	}
	return v.Robots[0].ID
}

func TestStaleFetchNeverOverwritesNewer(t *testing.T) {
	h := start(t, nil)

	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	gen1 := h.fetcher.next(t)

	// Two reconnects happen while the gen-1 fetch is outstanding.
	h.src.gen.Store(3)
	h.src.signals <- channel.Signal{Generation: 3, Reason: channel.ReasonOpened}
	gen3 := h.fetcher.next(t)

	gen3.complete(snapshotWith("RB-NEW", t0.Add(time.Minute)))
	require.Eventually(t, func() bool { return h.robotID() == "RB-NEW" }, 2*time.Second, 5*time.Millisecond)

	gen1.complete(snapshotWith("RB-OLD", t0))
	require.Eventually(t, func() bool { return h.ctrl.Stats().StaleDiscards == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "RB-NEW", h.robotID())
	assert.Equal(t, uint64(1), h.ctrl.Stats().Commits)
	assert.Nil(t, h.store.View().LastFailure)
}

func TestSignalFromSupersededGenerationIgnored(t *testing.T) {
	h := start(t, nil)
	h.src.gen.Store(2)
	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	h.fetcher.none(t)
	assert.Equal(t, uint64(1), h.ctrl.Stats().StaleSignals)
}

func TestSignalsCoalesceIntoOneTrailingFetch(t *testing.T) {
	h := start(t, nil)

	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	first := h.fetcher.next(t)

	for i := 0; i < 3; i++ {
		h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	}
	require.Eventually(t, func() bool { return h.ctrl.Stats().Coalesced == 3 }, 2*time.Second, 5*time.Millisecond)
	h.fetcher.none(t)

	first.complete(snapshotWith("RB-001", t0))
	trailing := h.fetcher.next(t)
	trailing.complete(snapshotWith("RB-002", t0.Add(time.Second)))

	require.Eventually(t, func() bool { return h.robotID() == "RB-002" }, 2*time.Second, 5*time.Millisecond)
	h.fetcher.none(t)
	assert.Equal(t, uint64(2), h.ctrl.Stats().FetchesIssued)
	assert.Equal(t, uint64(2), h.ctrl.Stats().Commits)
}

func TestPauseDiscardsAndResumeFetchesOnce(t *testing.T) {
	h := start(t, nil)

	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	inFlight := h.fetcher.next(t)

	require.NoError(t, h.ctrl.Pause())
	assert.True(t, h.store.View().Paused)

	inFlight.complete(snapshotWith("RB-001", t0))
	require.Eventually(t, func() bool { return h.ctrl.Stats().PausedDiscards == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, h.store.View().HasSnapshot)

	for i := 0; i < 5; i++ {
		h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	}
	require.NoError(t, h.ctrl.Refresh())
	require.Eventually(t, func() bool { return h.ctrl.Stats().DroppedWhilePaused == 6 }, 2*time.Second, 5*time.Millisecond)
	h.fetcher.none(t)

	// Connection changes still reach the store while paused.
	h.src.states <- models.ConnectionState{Phase: models.PhaseError, Generation: 1, Err: "lost"}
	require.Eventually(t, func() bool { return h.store.View().Connection.Phase == models.PhaseError }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.ctrl.Resume())
	assert.False(t, h.store.View().Paused)
	resumed := h.fetcher.next(t)
	h.fetcher.none(t)

	resumed.complete(snapshotWith("RB-002", t0))
	require.Eventually(t, func() bool { return h.robotID() == "RB-002" }, 2*time.Second, 5*time.Millisecond)
}

func TestFetchFailureKeepsLastSnapshot(t *testing.T) {
	h := start(t, nil)

	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonOpened}
	h.fetcher.next(t).complete(snapshotWith("RB-001", t0))
	require.Eventually(t, func() bool { return h.robotID() == "RB-001" }, 2*time.Second, 5*time.Millisecond)

	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	h.fetcher.next(t).fail(fmt.Errorf("502 bad gateway"))
	require.Eventually(t, func() bool { return h.store.View().LastFailure != nil }, 2*time.Second, 5*time.Millisecond)

	v := h.store.View()
	assert.Equal(t, "RB-001", v.Robots[0].ID)
	assert.Contains(t, v.LastFailure.Err, "502")

	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonRobotUpdate}
	bad := snapshotWith("", t0.Add(time.Minute))
	h.fetcher.next(t).complete(bad)
	require.Eventually(t, func() bool { return h.ctrl.Stats().FetchFailures == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "RB-001", h.robotID())
}

func TestAppendScanEventsThroughController(t *testing.T) {
	h := start(t, nil)
	kept, err := h.ctrl.AppendScanEvents([]models.ScanEvent{{
		Time: t0, RobotID: "RB-001", Zone: "B", Row: 3, ProductID: "SKU-1", Quantity: 4,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, kept)
	require.Len(t, h.store.View().Scans, 1)
}

func TestPredictionsClearedOnTeardown(t *testing.T) {
	p := &fakePredictor{result: []models.Prediction{{ProductID: "SKU-1", DaysUntilStockout: 2, RecommendedOrder: 40}}}
	h := start(t, p)

	require.NoError(t, h.ctrl.RefreshPredictions())
	require.Eventually(t, func() bool { return len(h.store.View().Predictions) == 1 }, 2*time.Second, 5*time.Millisecond)

	h.stop()
	assert.Empty(t, h.store.View().Predictions)
	assert.NoError(t, <-h.errc)

	assert.ErrorIs(t, h.ctrl.Pause(), ErrStopped)
}

func TestPredictionsWithoutService(t *testing.T) {
	h := start(t, nil)
	assert.Error(t, h.ctrl.RefreshPredictions())
}

func TestTeardownCancelsOutstandingFetch(t *testing.T) {
	h := start(t, nil)
	h.src.signals <- channel.Signal{Generation: 1, Reason: channel.ReasonOpened}
	h.fetcher.next(t)

	done := make(chan struct{})
	go func() {
		h.stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("teardown blocked on outstanding fetch")
	}
	assert.False(t, h.store.View().HasSnapshot)
}
