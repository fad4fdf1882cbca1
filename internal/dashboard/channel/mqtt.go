package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/grovetools/fleetview/errors"
)

// MQTTDialer subscribes to a broker topic whose messages carry the same JSON
// envelope as the websocket endpoint. Reconnects are driven by the Channel,
// not by the client library.
type MQTTDialer struct {
	Broker   string
	Topic    string
	ClientID string
	Token    string
	Timeout  time.Duration

	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// Endpoint returns the broker and topic.
func (d *MQTTDialer) Endpoint() string { return d.Broker + "#" + d.Topic }

// Dial connects to the broker and subscribes to the topic.
func (d *MQTTDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clientID := d.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("fleetview-%d", time.Now().UnixNano())
	}

	conn := &mqttConn{
		msgs: make(chan []byte, 64),
		lost: make(chan error, 1),
		done: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(d.Broker)
	opts.SetClientID(clientID)
	if d.Token != "" {
		opts.SetUsername("fleetview")
		opts.SetPassword(d.Token)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		select {
		case conn.lost <- err:
		default:
		}
	})

	newClient := d.newClient
	if newClient == nil {
		newClient = mqtt.NewClient
	}
	conn.client = newClient(opts)
	if err := wait(ctx, conn.client.Connect(), timeout); err != nil {
		return nil, errors.ChannelFailed(d.Endpoint(), err)
	}

	token := conn.client.Subscribe(d.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case conn.msgs <- msg.Payload():
		case <-conn.done:
		}
	})
	if err := wait(ctx, token, timeout); err != nil {
		conn.client.Disconnect(0)
		return nil, errors.ChannelFailed(d.Endpoint(), err)
	}
	return conn, nil
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %s", timeout)
	}
}

type mqttConn struct {
	client mqtt.Client
	msgs   chan []byte
	lost   chan error
	done   chan struct{}
	once   sync.Once
}

func (c *mqttConn) Read() ([]byte, error) {
	select {
	case data := <-c.msgs:
		return data, nil
	case err := <-c.lost:
		return nil, err
	case <-c.done:
		return nil, fmt.Errorf("mqtt connection closed")
	}
}

func (c *mqttConn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.client.Disconnect(250)
	})
	return nil
}
