package channel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/models"
)

type fakeConn struct {
	msgs      chan []byte
	fail      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs:   make(chan []byte, 8),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read() ([]byte, error) {
	select {
	case m := <-c.msgs:
		return m, nil
	case err := <-c.fail:
		return nil, err
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

type dialResult struct {
	conn *fakeConn
	err  error
}

type fakeDialer struct {
	results chan dialResult
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan dialResult, 8)}
}

func (d *fakeDialer) Endpoint() string { return "fake" }

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	select {
	case r := <-d.results:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func nextState(t *testing.T, c *Channel) models.ConnectionState {
	t.Helper()
	select {
	case s := <-c.States():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state")
		return models.ConnectionState{}
	}
}

func nextSignal(t *testing.T, c *Channel) Signal {
	t.Helper()
	select {
	case s := <-c.Signals():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
		return Signal{}
	}
}

func newTestChannel(d Dialer, clk clock.Clock) *Channel {
	return New(Options{
		Dialer:  d,
		Backoff: Backoff{MinDelay: time.Second, MaxDelay: 8 * time.Second, Multiplier: 2},
		Clock:   clk,
		Logger:  quietLogger(),
	})
}

func TestChannelSignalsOnOpenAndRobotUpdate(t *testing.T) {
	d := newFakeDialer()
	conn := newFakeConn()
	d.results <- dialResult{conn: conn}

	c := newTestChannel(d, clock.Fake(time.Now()))
	c.Start(context.Background())
	defer c.Close()

	assert.Equal(t, models.ConnectionState{Phase: models.PhaseConnecting, Generation: 1}, nextState(t, c))
	assert.Equal(t, models.ConnectionState{Phase: models.PhaseOpen, Generation: 1}, nextState(t, c))
	assert.Equal(t, Signal{Generation: 1, Reason: ReasonOpened}, nextSignal(t, c))

	conn.msgs <- []byte(`{"type":"heartbeat","timestamp":"2026-03-01T09:00:00"}`)
	conn.msgs <- []byte(`not json`)
	conn.msgs <- []byte(`{"type":"something_else"}`)
	conn.msgs <- []byte(`{"type":"robot_update"}`)

	assert.Equal(t, Signal{Generation: 1, Reason: ReasonRobotUpdate}, nextSignal(t, c))
	select {
	case s := <-c.Signals():
		t.Fatalf("unexpected signal %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, uint64(1), c.Generation())
}

func TestChannelReconnectIncrementsGeneration(t *testing.T) {
	d := newFakeDialer()
	first := newFakeConn()
	d.results <- dialResult{conn: first}

	clk := clock.Fake(time.Now())
	c := newTestChannel(d, clk)
	c.Start(context.Background())
	defer c.Close()

	nextState(t, c)
	nextState(t, c)
	nextSignal(t, c)

	first.fail <- fmt.Errorf("reset by peer")
	lost := nextState(t, c)
	assert.Equal(t, models.PhaseError, lost.Phase)
	assert.Equal(t, uint64(1), lost.Generation)
	assert.Equal(t, "reset by peer", lost.Err)

	second := newFakeConn()
	d.results <- dialResult{conn: second}
	clk.WaitForTimers(1)
	clk.Advance(time.Second)

	assert.Equal(t, models.ConnectionState{Phase: models.PhaseConnecting, Generation: 2}, nextState(t, c))
	assert.Equal(t, models.ConnectionState{Phase: models.PhaseOpen, Generation: 2}, nextState(t, c))
	assert.Equal(t, Signal{Generation: 2, Reason: ReasonOpened}, nextSignal(t, c))
	assert.Equal(t, uint64(2), c.Generation())
}

func TestChannelRetriesFailedDials(t *testing.T) {
	d := newFakeDialer()
	d.results <- dialResult{err: fmt.Errorf("refused")}
	d.results <- dialResult{err: fmt.Errorf("refused")}

	clk := clock.Fake(time.Now())
	c := newTestChannel(d, clk)
	c.Start(context.Background())
	defer c.Close()

	for gen := uint64(1); gen <= 2; gen++ {
		assert.Equal(t, models.ConnectionState{Phase: models.PhaseConnecting, Generation: gen}, nextState(t, c))
		failed := nextState(t, c)
		assert.Equal(t, models.PhaseError, failed.Phase)
		assert.Equal(t, gen, failed.Generation)
		clk.WaitForTimers(1)
		clk.Advance(8 * time.Second)
	}

	d.results <- dialResult{conn: newFakeConn()}
	assert.Equal(t, models.ConnectionState{Phase: models.PhaseConnecting, Generation: 3}, nextState(t, c))
	assert.Equal(t, models.ConnectionState{Phase: models.PhaseOpen, Generation: 3}, nextState(t, c))
}

func TestChannelCloseIsGraceful(t *testing.T) {
	d := newFakeDialer()
	conn := newFakeConn()
	d.results <- dialResult{conn: conn}

	c := newTestChannel(d, clock.Fake(time.Now()))
	c.Start(context.Background())
	nextState(t, c)
	nextState(t, c)
	nextSignal(t, c)

	require.NoError(t, c.Close())

	select {
	case <-conn.closed:
	default:
		t.Fatal("connection left open")
	}
	assert.Equal(t, models.PhaseClosed, c.State().Phase)

	for range c.Signals() {
		t.Fatal("signal delivered after close")
	}
	require.NoError(t, c.Close())
}

func TestChannelCloseDiscardsUndeliveredSignals(t *testing.T) {
	d := newFakeDialer()
	conn := newFakeConn()
	d.results <- dialResult{conn: conn}

	c := newTestChannel(d, clock.Fake(time.Now()))
	c.Start(context.Background())

	// Nobody reads Signals, so the opened signal and both updates stay buffered.
	conn.msgs <- []byte(`{"type":"robot_update"}`)
	conn.msgs <- []byte(`{"type":"robot_update"}`)
	require.Eventually(t, func() bool { return len(c.signals) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), c.Generation())

	require.NoError(t, c.Close())

	n := 0
	for range c.Signals() {
		n++
	}
	assert.Zero(t, n)
	assert.Equal(t, uint64(2), c.Generation())

	var last models.ConnectionState
	for s := range c.States() {
		last = s
	}
	assert.Equal(t, models.ConnectionState{Phase: models.PhaseClosed, Generation: 2}, last)
	assert.Equal(t, last, c.State())
}

func TestChannelCloseBeforeStart(t *testing.T) {
	c := newTestChannel(newFakeDialer(), clock.Fake(time.Now()))
	require.NoError(t, c.Close())
	c.Start(context.Background())
	_, ok := <-c.Signals()
	assert.False(t, ok)
}

func TestBackoff(t *testing.T) {
	b := newBackoff(Backoff{MinDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3})
	assert.Equal(t, 100*time.Millisecond, b.Next())
	assert.Equal(t, 300*time.Millisecond, b.Next())
	assert.Equal(t, 900*time.Millisecond, b.Next())
	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, time.Second, b.Next())
	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.Next())

	def := newBackoff(Backoff{})
	assert.Equal(t, time.Second, def.Next())
}

func TestWebsocketDialer(t *testing.T) {
	auth := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultPath {
			http.NotFound(w, r)
			return
		}
		auth <- r.Header.Get("Authorization")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"robot_update"}`))
		// hold the connection until the client goes away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	d, err := NewWebsocketDialer(srv.URL, "", "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "ws", d.URL[:2])

	c := newTestChannel(d, clock.Real())
	c.Start(context.Background())
	defer c.Close()

	assert.Equal(t, Signal{Generation: 1, Reason: ReasonOpened}, nextSignal(t, c))
	assert.Equal(t, Signal{Generation: 1, Reason: ReasonRobotUpdate}, nextSignal(t, c))
	assert.Equal(t, "Bearer tok-123", <-auth)
}

func TestNewWebsocketDialerSchemes(t *testing.T) {
	d, err := NewWebsocketDialer("https://fleet.example.com/base/", "", "")
	require.NoError(t, err)
	assert.Equal(t, "wss://fleet.example.com/base/api/ws/dashboard", d.Endpoint())

	_, err = NewWebsocketDialer("ftp://fleet.example.com", "", "")
	assert.Error(t, err)
}
