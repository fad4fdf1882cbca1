package channel

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/models"
)

type stubToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *stubToken {
	t := &stubToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *stubToken { return &stubToken{done: make(chan struct{})} }

func (t *stubToken) Wait() bool {
	<-t.done
	return true
}

func (t *stubToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *stubToken) Done() <-chan struct{} { return t.done }
func (t *stubToken) Error() error          { return t.err }

type stubMessage struct {
	mqtt.Message
	payload []byte
}

func (m stubMessage) Payload() []byte { return m.payload }

// stubClient records what the dialer asks of the broker client.
type stubClient struct {
	mqtt.Client

	connect   mqtt.Token
	subscribe mqtt.Token

	mu          sync.Mutex
	opts        *mqtt.ClientOptions
	topic       string
	handler     mqtt.MessageHandler
	disconnects int
}

func (c *stubClient) build(opts *mqtt.ClientOptions) mqtt.Client {
	c.mu.Lock()
	c.opts = opts
	c.mu.Unlock()
	return c
}

func (c *stubClient) Connect() mqtt.Token { return c.connect }

func (c *stubClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.topic = topic
	c.handler = cb
	c.mu.Unlock()
	return c.subscribe
}

func (c *stubClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
}

func (c *stubClient) deliver(payload string) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	h(c, stubMessage{payload: []byte(payload)})
}

func (c *stubClient) drop(err error) {
	c.mu.Lock()
	lost := c.opts.OnConnectionLost
	c.mu.Unlock()
	lost(c, err)
}

func (c *stubClient) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

func newStubClient() *stubClient {
	return &stubClient{connect: completedToken(nil), subscribe: completedToken(nil)}
}

func testMQTTDialer(c *stubClient) *MQTTDialer {
	return &MQTTDialer{
		Broker:    "tcp://broker:1883",
		Topic:     "fleet/robots",
		ClientID:  "fleetview-test",
		Token:     "secret",
		Timeout:   time.Second,
		newClient: c.build,
	}
}

func TestMQTTWait(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, wait(ctx, completedToken(nil), time.Second))

	err := wait(ctx, completedToken(fmt.Errorf("not authorized")), time.Second)
	assert.EqualError(t, err, "not authorized")

	err = wait(ctx, pendingToken(), 20*time.Millisecond)
	assert.EqualError(t, err, "timed out after 20ms")

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = wait(cctx, pendingToken(), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMQTTDialerConfiguresClient(t *testing.T) {
	c := newStubClient()
	d := testMQTTDialer(c)

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "tcp://broker:1883#fleet/robots", d.Endpoint())
	require.Len(t, c.opts.Servers, 1)
	assert.Equal(t, "broker:1883", c.opts.Servers[0].Host)
	assert.Equal(t, "fleetview-test", c.opts.ClientID)
	assert.Equal(t, "fleetview", c.opts.Username)
	assert.Equal(t, "secret", c.opts.Password)
	assert.False(t, c.opts.AutoReconnect)
	assert.Equal(t, "fleet/robots", c.topic)
}

func TestMQTTConnDeliversPayloadsThenLoss(t *testing.T) {
	c := newStubClient()
	conn, err := testMQTTDialer(c).Dial(context.Background())
	require.NoError(t, err)

	c.deliver(`{"type":"robot_update"}`)
	data, err := conn.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"robot_update"}`, string(data))

	c.drop(fmt.Errorf("keepalive timeout"))
	_, err = conn.Read()
	assert.EqualError(t, err, "keepalive timeout")

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, 1, c.disconnectCount())

	_, err = conn.Read()
	assert.Error(t, err)
}

func TestMQTTDialerFailures(t *testing.T) {
	c := newStubClient()
	c.connect = completedToken(fmt.Errorf("connection refused"))
	_, err := testMQTTDialer(c).Dial(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeChannel))
	assert.Zero(t, c.disconnectCount())

	c = newStubClient()
	c.subscribe = completedToken(fmt.Errorf("topic not permitted"))
	_, err = testMQTTDialer(c).Dial(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeChannel))
	assert.Equal(t, 1, c.disconnectCount())
}

func TestChannelOverMQTT(t *testing.T) {
	c := newStubClient()
	ch := newTestChannel(testMQTTDialer(c), clock.Fake(time.Now()))
	ch.Start(context.Background())
	defer ch.Close()

	assert.Equal(t, models.ConnectionState{Phase: models.PhaseConnecting, Generation: 1}, nextState(t, ch))
	assert.Equal(t, models.ConnectionState{Phase: models.PhaseOpen, Generation: 1}, nextState(t, ch))
	assert.Equal(t, Signal{Generation: 1, Reason: ReasonOpened}, nextSignal(t, ch))

	c.deliver(`{"type":"robot_update"}`)
	assert.Equal(t, Signal{Generation: 1, Reason: ReasonRobotUpdate}, nextSignal(t, ch))

	c.drop(fmt.Errorf("broker went away"))
	assert.Equal(t, models.ConnectionState{Phase: models.PhaseError, Generation: 1, Err: "broker went away"}, nextState(t, ch))
}
