// Package controller reconciles push signals, snapshot fetches and operator
// commands into the dashboard store. It is the store's only writer.
package controller

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/fleetview/internal/dashboard/channel"
	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/models"
)

// ErrStopped is returned by commands issued after the loop has exited.
var ErrStopped = stderrors.New("controller stopped")

// DefaultFetchTimeout bounds a single snapshot fetch.
const DefaultFetchTimeout = 10 * time.Second

// Fetcher retrieves a complete snapshot from the backend.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// Predictor requests restock predictions.
type Predictor interface {
	Predict(ctx context.Context, req models.PredictionRequest) ([]models.Prediction, error)
}

// Writer is the write side of the dashboard store.
type Writer interface {
	ReplaceSnapshot(models.Snapshot) error
	AppendScanEvents([]models.ScanEvent) (int, error)
	SetConnection(models.ConnectionState)
	SetPredictions([]models.Prediction)
	ClearPredictions()
	RecordFetchFailure(err error, at time.Time)
	SetPaused(bool)
}

// Options configures a Controller.
type Options struct {
	Store        Writer
	Source       channel.Source
	Fetcher      Fetcher
	Predictor    Predictor
	Predictions  models.PredictionRequest
	FetchTimeout time.Duration
	Clock        clock.Clock
	Logger       *logrus.Entry
}

// Stats counts what the loop did with signals and fetch results.
type Stats struct {
	FetchesIssued      uint64 `json:"fetches_issued"`
	Commits            uint64 `json:"commits"`
	StaleDiscards      uint64 `json:"stale_discards"`
	PausedDiscards     uint64 `json:"paused_discards"`
	Coalesced          uint64 `json:"coalesced"`
	DroppedWhilePaused uint64 `json:"dropped_while_paused"`
	StaleSignals       uint64 `json:"stale_signals"`
	FetchFailures      uint64 `json:"fetch_failures"`
}

type counters struct {
	fetchesIssued      atomic.Uint64
	commits            atomic.Uint64
	staleDiscards      atomic.Uint64
	pausedDiscards     atomic.Uint64
	coalesced          atomic.Uint64
	droppedWhilePaused atomic.Uint64
	staleSignals       atomic.Uint64
	fetchFailures      atomic.Uint64
}

type fetchResult struct {
	generation uint64
	snapshot   *models.Snapshot
	err        error
}

type predictionResult struct {
	predictions []models.Prediction
	err         error
}

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdRefresh
	cmdAppend
	cmdPredict
)

type command struct {
	kind   commandKind
	events []models.ScanEvent
	reply  chan commandReply
}

type commandReply struct {
	kept int
	err  error
}

// Controller runs the synchronization loop. Its commands (Pause, Resume,
// Refresh and the prediction calls) block until the loop has applied them,
// so they must not be issued before Run is started.
type Controller struct {
	opts     Options
	logger   *logrus.Entry
	commands chan command
	done     chan struct{}
	stats    counters

	// loop-owned
	paused     bool
	inFlight   map[uint64]bool
	trailing   bool
	predicting bool
}

// New creates a Controller. Run starts it.
func New(opts Options) *Controller {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("controller")
	}
	return &Controller{
		opts:     opts,
		logger:   opts.Logger,
		commands: make(chan command),
		done:     make(chan struct{}),
		inFlight: make(map[uint64]bool),
	}
}

// Run processes signals, state changes, fetch results and commands until ctx
// is cancelled. On exit outstanding fetches are cancelled and predictions are
// cleared.
func (c *Controller) Run(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	results := make(chan fetchResult)
	predictions := make(chan predictionResult)

	defer func() {
		cancel()
		wg.Wait()
		c.opts.Store.ClearPredictions()
		close(c.done)
	}()

	signals := c.opts.Source.Signals()
	states := c.opts.Source.States()

	for {
		select {
		case <-loopCtx.Done():
			return nil

		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			c.opts.Store.SetConnection(st)

		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			c.handleSignal(loopCtx, &wg, results, sig)

		case res := <-results:
			c.handleResult(loopCtx, &wg, results, res)

		case res := <-predictions:
			c.predicting = false
			if res.err != nil {
				c.logger.WithError(res.err).Warn("Prediction request failed")
				c.opts.Store.RecordFetchFailure(res.err, c.opts.Clock.Now())
				continue
			}
			c.opts.Store.SetPredictions(res.predictions)

		case cmd := <-c.commands:
			cmd.reply <- c.handleCommand(loopCtx, &wg, results, predictions, cmd)
		}
	}
}

func (c *Controller) handleSignal(ctx context.Context, wg *sync.WaitGroup, results chan<- fetchResult, sig channel.Signal) {
	log := c.logger.WithFields(logrus.Fields{"generation": sig.Generation, "reason": sig.Reason})
	if c.paused {
		c.stats.droppedWhilePaused.Add(1)
		log.Debug("Dropping signal while paused")
		return
	}
	if sig.Generation != c.opts.Source.Generation() {
		c.stats.staleSignals.Add(1)
		log.Debug("Dropping signal from superseded connection")
		return
	}
	c.requestFetch(ctx, wg, results)
}

// requestFetch issues a fetch for the current generation, or folds the
// request into a single trailing refetch if one is already outstanding.
func (c *Controller) requestFetch(ctx context.Context, wg *sync.WaitGroup, results chan<- fetchResult) {
	gen := c.opts.Source.Generation()
	if c.inFlight[gen] {
		c.trailing = true
		c.stats.coalesced.Add(1)
		return
	}
	c.issue(ctx, wg, results, gen)
}

func (c *Controller) issue(ctx context.Context, wg *sync.WaitGroup, results chan<- fetchResult, gen uint64) {
	c.inFlight[gen] = true
	c.stats.fetchesIssued.Add(1)
	c.logger.WithField("generation", gen).Debug("Fetching snapshot")

	wg.Add(1)
	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
		snap, err := c.opts.Fetcher.FetchSnapshot(fetchCtx)
		select {
		case results <- fetchResult{generation: gen, snapshot: snap, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) handleResult(ctx context.Context, wg *sync.WaitGroup, results chan<- fetchResult, res fetchResult) {
	delete(c.inFlight, res.generation)
	current := c.opts.Source.Generation()
	log := c.logger.WithFields(logrus.Fields{"generation": res.generation, "current": current})

	switch {
	case res.generation != current:
		c.stats.staleDiscards.Add(1)
		log.Debug("Discarding fetch from superseded connection")
	case c.paused:
		c.stats.pausedDiscards.Add(1)
		log.Debug("Discarding fetch completed while paused")
	case res.err != nil:
		c.stats.fetchFailures.Add(1)
		log.WithError(res.err).Warn("Snapshot fetch failed")
		c.opts.Store.RecordFetchFailure(res.err, c.opts.Clock.Now())
	case res.snapshot == nil:
		c.stats.fetchFailures.Add(1)
		log.Warn("Snapshot fetch returned nothing")
	default:
		if err := c.opts.Store.ReplaceSnapshot(*res.snapshot); err != nil {
			c.stats.fetchFailures.Add(1)
			log.WithError(err).Warn("Rejected snapshot")
			c.opts.Store.RecordFetchFailure(err, c.opts.Clock.Now())
			break
		}
		c.stats.commits.Add(1)
		log.WithField("robots", len(res.snapshot.Robots)).Debug("Committed snapshot")
	}

	if c.trailing && !c.paused && !c.inFlight[current] {
		c.trailing = false
		c.issue(ctx, wg, results, current)
	}
}

func (c *Controller) handleCommand(ctx context.Context, wg *sync.WaitGroup, results chan<- fetchResult, predictions chan<- predictionResult, cmd command) commandReply {
	switch cmd.kind {
	case cmdPause:
		if !c.paused {
			c.paused = true
			c.trailing = false
			c.opts.Store.SetPaused(true)
			c.logger.Info("Live updates paused")
		}
	case cmdResume:
		if c.paused {
			c.paused = false
			c.opts.Store.SetPaused(false)
			c.logger.Info("Live updates resumed")
			c.requestFetch(ctx, wg, results)
		}
	case cmdRefresh:
		if c.paused {
			c.stats.droppedWhilePaused.Add(1)
			return commandReply{}
		}
		c.requestFetch(ctx, wg, results)
	case cmdAppend:
		kept, err := c.opts.Store.AppendScanEvents(cmd.events)
		return commandReply{kept: kept, err: err}
	case cmdPredict:
		if c.opts.Predictor == nil {
			return commandReply{err: stderrors.New("no prediction service configured")}
		}
		if c.predicting {
			return commandReply{}
		}
		c.predicting = true
		req := c.opts.Predictions
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
			defer cancel()
			p, err := c.opts.Predictor.Predict(pctx, req)
			select {
			case predictions <- predictionResult{predictions: p, err: err}:
			case <-ctx.Done():
			}
		}()
	}
	return commandReply{}
}

func (c *Controller) send(cmd command) commandReply {
	cmd.reply = make(chan commandReply, 1)
	select {
	case c.commands <- cmd:
	case <-c.done:
		return commandReply{err: ErrStopped}
	}
	return <-cmd.reply
}

// Pause stops committing fetch results. Signals received while paused are
// dropped.
func (c *Controller) Pause() error { return c.send(command{kind: cmdPause}).err }

// Resume re-enables commits and fetches the current state once.
func (c *Controller) Resume() error { return c.send(command{kind: cmdResume}).err }

// Refresh requests a snapshot fetch as if a push signal had arrived.
func (c *Controller) Refresh() error { return c.send(command{kind: cmdRefresh}).err }

// RefreshPredictions requests new restock predictions.
func (c *Controller) RefreshPredictions() error { return c.send(command{kind: cmdPredict}).err }

// AppendScanEvents appends events to the store in arrival order and returns
// how many were kept.
func (c *Controller) AppendScanEvents(events []models.ScanEvent) (int, error) {
	r := c.send(command{kind: cmdAppend, events: events})
	return r.kept, r.err
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Stats returns a snapshot of the loop counters.
func (c *Controller) Stats() Stats {
	return Stats{
		FetchesIssued:      c.stats.fetchesIssued.Load(),
		Commits:            c.stats.commits.Load(),
		StaleDiscards:      c.stats.staleDiscards.Load(),
		PausedDiscards:     c.stats.pausedDiscards.Load(),
		Coalesced:          c.stats.coalesced.Load(),
		DroppedWhilePaused: c.stats.droppedWhilePaused.Load(),
		StaleSignals:       c.stats.staleSignals.Load(),
		FetchFailures:      c.stats.fetchFailures.Load(),
	}
}
