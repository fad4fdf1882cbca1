package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grovetools/fleetview/errors"
)

// DefaultPath is the push endpoint on the dashboard backend.
const DefaultPath = "/api/ws/dashboard"

// WebsocketDialer connects to the backend's websocket push endpoint.
type WebsocketDialer struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
}

// NewWebsocketDialer derives the websocket URL from an http(s) base URL.
func NewWebsocketDialer(baseURL, path, token string) (*WebsocketDialer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("invalid server base_url %q: %v", baseURL, err))
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported scheme %q in server base_url", u.Scheme))
	}
	if path == "" {
		path = DefaultPath
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return &WebsocketDialer{URL: u.String(), Token: token, HandshakeTimeout: 10 * time.Second}, nil
}

// Endpoint returns the websocket URL.
func (d *WebsocketDialer) Endpoint() string { return d.URL }

// Dial opens the websocket.
func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}
	ws, resp, err := dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, errors.ChannelFailed(d.URL, fmt.Errorf("%w (status %d)", err, resp.StatusCode))
		}
		return nil, errors.ChannelFailed(d.URL, err)
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Read() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
