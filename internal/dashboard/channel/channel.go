package channel

import (
	"context"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures a Channel.
type Options struct {
	Dialer  Dialer
	Backoff Backoff
	Clock   clock.Clock
	Logger  *logrus.Entry
}

// Channel keeps a push connection alive, reconnecting with backoff, and
// reports every lifecycle transition. It never reads or writes dashboard
// state itself.
type Channel struct {
	dialer  Dialer
	backoff *backoff
	clock   clock.Clock
	logger  *logrus.Entry

	generation atomic.Uint64
	signals    chan Signal
	states     chan models.ConnectionState

	mu      sync.Mutex
	current models.ConnectionState

	startOnce sync.Once
	closeOnce sync.Once
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ Source = (*Channel)(nil)

// New creates a Channel. Call Start to begin connecting.
func New(opts Options) *Channel {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("channel")
	}
	return &Channel{
		dialer:  opts.Dialer,
		backoff: newBackoff(opts.Backoff),
		clock:   opts.Clock,
		logger:  opts.Logger,
		signals: make(chan Signal, 16),
		states:  make(chan models.ConnectionState, 16),
		current: models.ConnectionState{Phase: models.PhaseClosed},
		done:    make(chan struct{}),
	}
}

// Start runs the connection loop until ctx is cancelled or Close is called.
func (c *Channel) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		ctx, c.cancel = context.WithCancel(ctx)
		go c.run(ctx)
	})
}

// Close tears the connection down and waits for the loop to exit. Teardown
// advances the generation and discards buffered signals, so nothing read
// from Signals after Close returns and no fetch started for an earlier
// generation can be mistaken for current.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		cancel := c.cancel
		c.mu.Unlock()
		if cancel == nil {
			// never started
			close(c.signals)
			close(c.states)
			close(c.done)
			return
		}
		cancel()
		<-c.done
	})
	return nil
}

// Done is closed once the loop has exited.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Signals delivers refetch requests. It is closed when the channel stops.
func (c *Channel) Signals() <-chan Signal { return c.signals }

// States delivers every connection transition in order. It is closed when
// the channel stops.
func (c *Channel) States() <-chan models.ConnectionState { return c.states }

// Generation returns the generation of the current connection attempt.
func (c *Channel) Generation() uint64 { return c.generation.Load() }

// State returns the latest connection state.
func (c *Channel) State() models.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Channel) run(ctx context.Context) {
	defer func() {
		c.retire()
		c.finish()
		close(c.signals)
		close(c.states)
		close(c.done)
	}()

	endpoint := c.dialer.Endpoint()
	for {
		gen := c.generation.Add(1)
		if !c.transition(ctx, models.ConnectionState{Phase: models.PhaseConnecting, Generation: gen}) {
			return
		}

		conn, err := c.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithError(err).WithFields(logrus.Fields{
				"endpoint":   endpoint,
				"generation": gen,
			}).Warn("Push connection failed")
			if !c.transition(ctx, models.ConnectionState{Phase: models.PhaseError, Generation: gen, Err: err.Error()}) {
				return
			}
			if !c.wait(ctx) {
				return
			}
			continue
		}

		c.backoff.Reset()
		c.logger.WithFields(logrus.Fields{"endpoint": endpoint, "generation": gen}).Info("Push connection open")
		if !c.transition(ctx, models.ConnectionState{Phase: models.PhaseOpen, Generation: gen}) {
			conn.Close()
			return
		}
		c.emit(ctx, Signal{Generation: gen, Reason: ReasonOpened})

		err = c.receive(ctx, conn, gen)
		if ctx.Err() != nil {
			return
		}

		next := models.ConnectionState{Phase: models.PhaseClosed, Generation: gen}
		if err != nil {
			next = models.ConnectionState{Phase: models.PhaseError, Generation: gen, Err: err.Error()}
			c.logger.WithError(err).WithField("generation", gen).Warn("Push connection lost")
		}
		if !c.transition(ctx, next) {
			return
		}
		if !c.wait(ctx) {
			return
		}
	}
}

// receive reads frames until the connection fails or ctx is cancelled.
func (c *Channel) receive(ctx context.Context, conn Conn, gen uint64) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close()
	}()

	for {
		data, err := conn.Read()
		if err != nil {
			return err
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.WithError(err).WithField("generation", gen).Warn("Ignoring malformed push frame")
			continue
		}
		switch f.Type {
		case FrameRobotUpdate:
			c.emit(ctx, Signal{Generation: gen, Reason: ReasonRobotUpdate})
		case FrameHeartbeat:
		default:
			c.logger.WithField("type", f.Type).Debug("Ignoring push frame")
		}
	}
}

func (c *Channel) wait(ctx context.Context) bool {
	d := c.backoff.Next()
	c.logger.WithField("delay", d).Debug("Reconnecting after backoff")
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

func (c *Channel) setCurrent(s models.ConnectionState) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

// transition publishes s, blocking until the consumer takes it or ctx ends.
func (c *Channel) transition(ctx context.Context, s models.ConnectionState) bool {
	c.setCurrent(s)
	if ctx.Err() != nil {
		return false
	}
	select {
	case c.states <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

// retire invalidates everything issued so far and drops undelivered signals.
func (c *Channel) retire() {
	c.generation.Add(1)
	for {
		select {
		case <-c.signals:
		default:
			return
		}
	}
}

// finish publishes the terminal closed state without waiting on a consumer
// that may already be gone.
func (c *Channel) finish() {
	s := models.ConnectionState{Phase: models.PhaseClosed, Generation: c.generation.Load()}
	c.setCurrent(s)
	select {
	case c.states <- s:
	default:
	}
}

func (c *Channel) emit(ctx context.Context, sig Signal) {
	if ctx.Err() != nil {
		return
	}
	select {
	case c.signals <- sig:
	case <-ctx.Done():
	}
}
