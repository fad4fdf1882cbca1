// Package viewport holds the zoom state used when projecting the warehouse
// floor into render space.
package viewport

import (
	"math"
	"sync"
)

const (
	MinZoom     = 0.5
	MaxZoom     = 2.0
	DefaultZoom = 1.0
	DefaultStep = 0.2
)

// State is an immutable copy of the viewport.
type State struct {
	Zoom float64 `json:"zoom"`
}

// Default returns the reset viewport.
func Default() State {
	return State{Zoom: DefaultZoom}
}

// Controller owns the zoom factor. It is safe for concurrent use; the TUI
// mutates it while the renderer reads it.
type Controller struct {
	mu   sync.RWMutex
	zoom float64
	step float64
}

// New creates a controller at the default zoom. A non-positive step falls back
// to DefaultStep.
func New(step float64) *Controller {
	if step <= 0 || math.IsNaN(step) {
		step = DefaultStep
	}
	return &Controller{zoom: DefaultZoom, step: step}
}

// ZoomIn enlarges the view by one step, clamped to MaxZoom.
func (c *Controller) ZoomIn() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clamp(c.zoom + c.step)
	return State{Zoom: c.zoom}
}

// ZoomOut shrinks the view by one step, clamped to MinZoom.
func (c *Controller) ZoomOut() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clamp(c.zoom - c.step)
	return State{Zoom: c.zoom}
}

// Reset restores exactly DefaultZoom.
func (c *Controller) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = DefaultZoom
	return State{Zoom: c.zoom}
}

// Restore sets the zoom from a saved state. Out-of-range values are clamped;
// NaN resets.
func (c *Controller) Restore(s State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(s.Zoom) {
		c.zoom = DefaultZoom
	} else {
		c.zoom = clamp(s.Zoom)
	}
	return State{Zoom: c.zoom}
}

// State returns the current viewport.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{Zoom: c.zoom}
}

// clamp rounds away accumulated float error (1.0 + 5*0.2 must land on 2.0,
// not 2.0000000000000004) and bounds the result.
func clamp(z float64) float64 {
	z = math.Round(z*1e6) / 1e6
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
