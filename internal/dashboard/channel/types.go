// Package channel maintains the push connection to the backend and turns its
// notifications into refetch signals.
package channel

import (
	"context"

	"github.com/grovetools/fleetview/pkg/models"
)

// Reason explains why a Signal was emitted.
type Reason string

const (
	// ReasonRobotUpdate is a backend notification that robot state changed.
	ReasonRobotUpdate Reason = "robot_update"
	// ReasonOpened is emitted once per successful connection so state missed
	// while disconnected is refetched.
	ReasonOpened Reason = "opened"
)

// Signal asks for a full refetch on behalf of one connection generation.
type Signal struct {
	Generation uint64
	Reason     Reason
}

// Frame types understood on the push connection.
const (
	FrameRobotUpdate = "robot_update"
	FrameHeartbeat   = "heartbeat"
)

// Frame is the JSON envelope of a push message.
type Frame struct {
	Type string `json:"type"`
}

// Conn is one established push connection.
type Conn interface {
	// Read blocks until the next message arrives or the connection fails.
	Read() ([]byte, error)
	Close() error
}

// Dialer opens push connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
	Endpoint() string
}

// Source is the read side of a Channel as seen by its consumer.
type Source interface {
	Signals() <-chan Signal
	States() <-chan models.ConnectionState
	Generation() uint64
}
