// Package store holds the render-ready state of the fleet dashboard.
package store

import (
	"time"

	"github.com/grovetools/fleetview/pkg/models"
)

// DefaultScanCapacity is the number of scan events retained when no capacity
// is configured.
const DefaultScanCapacity = 20

// RobotView is a robot together with its derived status.
type RobotView struct {
	models.Robot
	Status models.RobotStatus `json:"status"`
}

// ScanView is a scan event together with its derived severity.
type ScanView struct {
	models.ScanEvent
	Severity models.Severity `json:"severity"`
}

// Failure describes the most recent failed fetch. It does not invalidate the
// committed state.
type Failure struct {
	Err string    `json:"error"`
	At  time.Time `json:"at"`
}

// View is an immutable copy of the store. Mutating it has no effect on the
// store.
type View struct {
	Version     uint64                 `json:"version"`
	HasSnapshot bool                   `json:"has_snapshot"`
	FetchedAt   time.Time              `json:"fetched_at"`
	Robots      []RobotView            `json:"robots"`
	Scans       []ScanView             `json:"scans"` // oldest first
	Statistics  models.Statistics      `json:"statistics"`
	Thresholds  models.ThresholdTable  `json:"thresholds"`
	Predictions []models.Prediction    `json:"predictions"`
	Connection  models.ConnectionState `json:"connection"`
	Paused      bool                   `json:"paused"`
	LastFailure *Failure               `json:"last_failure,omitempty"`
}

// Robot looks up a robot by ID.
func (v View) Robot(id string) (RobotView, bool) {
	for _, r := range v.Robots {
		if r.ID == id {
			return r, true
		}
	}
	return RobotView{}, false
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateSnapshot    UpdateType = "snapshot"
	UpdateScans       UpdateType = "scans"
	UpdateConnection  UpdateType = "connection"
	UpdatePredictions UpdateType = "predictions"
	UpdateThresholds  UpdateType = "thresholds"
	UpdateFailure     UpdateType = "failure"
	UpdatePaused      UpdateType = "paused"
)

// Update notifies subscribers that the store moved to Version.
type Update struct {
	Type    UpdateType
	Version uint64
}

// Reader is the read side of the store handed to renderers.
type Reader interface {
	View() View
	Subscribe() chan Update
	Unsubscribe(ch chan Update)
}

// Options configures a Store.
type Options struct {
	Zones        []string
	ScanCapacity int
	Thresholds   models.ThresholdTable
}
