// Package spatial projects logical warehouse positions (zone, row, shelf) into
// render-space coordinates for a given viewport.
//
// Zones are laid out as fixed-width vertical bands in canonical order. Within a
// band, x advances with the shelf index and y with the row index normalised
// against a fixed row span, below a header strip that carries the zone labels.
// All distances scale linearly with the zoom factor.
package spatial

import (
	"fmt"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/viewport"
)

// Layout holds the unscaled geometry of the floor plan.
type Layout struct {
	Zones        []string
	BandWidth    float64 // horizontal pitch of one zone band
	BandGap      float64 // unused strip on the right of each band
	ShelfStep    float64 // x advance per shelf index
	RowSpan      float64 // rows per RowHeight
	RowHeight    float64 // y advance per RowSpan rows
	HeaderOffset float64 // y offset below the zone-label header
	RowBands     int     // number of row blocks drawn per zone
	Width        float64
	Height       float64
}

// DefaultLayout returns the floor plan used by the operator dashboard.
func DefaultLayout() Layout {
	return Layout{
		Zones:        append([]string(nil), models.DefaultZones...),
		BandWidth:    120,
		BandGap:      10,
		ShelfStep:    10,
		RowSpan:      5,
		RowHeight:    100,
		HeaderOffset: 40,
		RowBands:     4,
		Width:        600,
		Height:       400,
	}
}

// Point is a render-space coordinate.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned render-space rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Band describes one drawn zone block.
type Band struct {
	Zone  string
	Row   int
	Rect  Rect
	Label Point // anchor of the zone label, set on the first row block only
}

// Engine projects positions with a fixed layout. It keeps no per-viewport
// state, so every call reflects the viewport passed in.
type Engine struct {
	layout Layout
	index  map[string]int
}

// New creates an engine for the given layout.
func New(layout Layout) (*Engine, error) {
	if len(layout.Zones) == 0 {
		return nil, errors.ConfigInvalid("layout has no zones")
	}
	if layout.BandWidth <= 0 || layout.RowSpan <= 0 || layout.RowHeight <= 0 || layout.ShelfStep <= 0 {
		return nil, errors.ConfigInvalid("layout dimensions must be positive")
	}
	index := make(map[string]int, len(layout.Zones))
	for i, z := range layout.Zones {
		if _, dup := index[z]; dup {
			return nil, errors.ConfigInvalid(fmt.Sprintf("zone %q listed twice", z))
		}
		index[z] = i
	}
	return &Engine{layout: layout, index: index}, nil
}

// MustNew is New for layouts known to be valid at compile time.
func MustNew(layout Layout) *Engine {
	e, err := New(layout)
	if err != nil {
		panic(err)
	}
	return e
}

// Layout returns a copy of the engine's layout.
func (e *Engine) Layout() Layout {
	l := e.layout
	l.Zones = append([]string(nil), e.layout.Zones...)
	return l
}

// Known reports whether zone is part of the layout.
func (e *Engine) Known(zone string) bool {
	_, ok := e.index[zone]
	return ok
}

// Project maps a logical position into render space. An unknown zone or a
// negative row/shelf is a caller error.
func (e *Engine) Project(zone string, row, shelf int, vp viewport.State) (Point, error) {
	idx, ok := e.index[zone]
	if !ok {
		return Point{}, errors.UnknownZone(zone)
	}
	if row < 0 || shelf < 0 {
		return Point{}, errors.InvalidInput(fmt.Sprintf("negative position row=%d shelf=%d", row, shelf)).
			WithDetail("zone", zone)
	}
	z := vp.Zoom
	l := e.layout
	return Point{
		X: float64(idx)*l.BandWidth*z + float64(shelf)*l.ShelfStep*z,
		Y: (float64(row)/l.RowSpan)*l.RowHeight*z + l.HeaderOffset*z,
	}, nil
}

// ProjectRobot is Project for a robot's current position.
func (e *Engine) ProjectRobot(r models.Robot, vp viewport.State) (Point, error) {
	return e.Project(r.Zone, r.Row, r.Shelf, vp)
}

// Extent is the size of the whole canvas at the given zoom.
func (e *Engine) Extent(vp viewport.State) (width, height float64) {
	return e.layout.Width * vp.Zoom, e.layout.Height * vp.Zoom
}

// Bands returns the zone blocks to draw behind the robots.
func (e *Engine) Bands(vp viewport.State) []Band {
	l := e.layout
	z := vp.Zoom
	blockH := l.RowHeight - l.BandGap
	out := make([]Band, 0, len(l.Zones)*l.RowBands)
	for i, zone := range l.Zones {
		for row := 0; row < l.RowBands; row++ {
			b := Band{
				Zone: zone,
				Row:  row,
				Rect: Rect{
					X: float64(i) * l.BandWidth * z,
					Y: float64(row) * l.RowHeight * z,
					W: (l.BandWidth - l.BandGap) * z,
					H: blockH * z,
				},
			}
			if row == 0 {
				b.Label = Point{
					X: float64(i)*l.BandWidth*z + (l.BandWidth-l.BandGap)/2*z,
					Y: l.HeaderOffset / 2 * z,
				}
			}
			out = append(out, b)
		}
	}
	return out
}
