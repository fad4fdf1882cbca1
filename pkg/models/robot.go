package models

import (
	"strings"
	"time"
)

// RobotStatus is the operational band of a robot, derived from battery and
// connectivity.
type RobotStatus string

const (
	RobotActive     RobotStatus = "active"
	RobotLowBattery RobotStatus = "low_battery"
	RobotOffline    RobotStatus = "offline"
)

// DefaultZones is the canonical left-to-right zone order of the warehouse floor.
var DefaultZones = []string{"A", "B", "C", "D", "E"}

// Robot is the last reported position and battery of one scanning robot.
// Status is not stored here; it is derived when a view is built.
type Robot struct {
	ID        string    `json:"id" yaml:"id"`
	Zone      string    `json:"zone" yaml:"zone"`
	Row       int       `json:"row" yaml:"row"`
	Shelf     int       `json:"shelf" yaml:"shelf"`
	Battery   int       `json:"battery" yaml:"battery"`
	Connected bool      `json:"connected" yaml:"connected"`
	LastSeen  time.Time `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
}

// Label returns the short map label for the robot: the part of the ID after
// the first dash ("RB-001" -> "001"), or the whole ID if it has none.
func (r Robot) Label() string {
	if _, suffix, ok := strings.Cut(r.ID, "-"); ok && suffix != "" {
		return suffix
	}
	return r.ID
}
