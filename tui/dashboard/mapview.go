package dashboard

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/grovetools/fleetview/internal/dashboard/store"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/spatial"
	"github.com/grovetools/fleetview/pkg/viewport"
	"github.com/grovetools/fleetview/tui/theme"
)

// Render units covered by one terminal cell.
const (
	cellWidth  = 10.0
	cellHeight = 25.0
)

const bandFill = '░'

type cellKind int

const (
	cellEmpty cellKind = iota
	cellBand
	cellLabel
	cellRobot
)

type cell struct {
	ch     rune
	kind   cellKind
	status models.RobotStatus
}

// grid is a character canvas in terminal cells.
type grid struct {
	w, h  int
	cells [][]cell
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([][]cell, h)}
	for y := range g.cells {
		g.cells[y] = make([]cell, w)
		for x := range g.cells[y] {
			g.cells[y][x] = cell{ch: ' '}
		}
	}
	return g
}

func (g *grid) set(x, y int, c cell) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.cells[y][x] = c
}

func (g *grid) text(x, y int, s string, kind cellKind, status models.RobotStatus) {
	for i, r := range []rune(s) {
		g.set(x+i, y, cell{ch: r, kind: kind, status: status})
	}
}

func (g *grid) fill(r spatial.Rect) {
	x0 := int(math.Floor(r.X / cellWidth))
	x1 := int(math.Ceil((r.X + r.W) / cellWidth))
	y0 := int(math.Floor(r.Y / cellHeight))
	y1 := int(math.Ceil((r.Y + r.H) / cellHeight))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.set(x, y, cell{ch: bandFill, kind: cellBand})
		}
	}
}

// renderMap draws the zone bands and robot labels for the viewport. The canvas
// grows with zoom and is clipped to maxW x maxH cells when those are positive.
func renderMap(e *spatial.Engine, vp viewport.State, robots []store.RobotView, th *theme.Theme, maxW, maxH int) string {
	ew, eh := e.Extent(vp)
	w := int(math.Ceil(ew / cellWidth))
	h := int(math.Ceil(eh / cellHeight))
	if maxW > 0 && w > maxW {
		w = maxW
	}
	if maxH > 0 && h > maxH {
		h = maxH
	}
	if w <= 0 || h <= 0 {
		return ""
	}

	g := newGrid(w, h)
	bands := e.Bands(vp)
	for _, b := range bands {
		g.fill(b.Rect)
	}
	for _, b := range bands {
		if b.Row != 0 {
			continue
		}
		x := int(b.Label.X/cellWidth) - len(b.Zone)/2
		g.text(x, int(b.Label.Y/cellHeight), b.Zone, cellLabel, "")
	}

	for _, r := range robots {
		p, err := e.ProjectRobot(r.Robot, vp)
		if err != nil {
			continue
		}
		g.text(int(p.X/cellWidth), int(p.Y/cellHeight), r.Label(), cellRobot, r.Status)
	}

	return g.render(th)
}

func (g *grid) render(th *theme.Theme) string {
	styleFor := func(c cell) lipgloss.Style {
		switch c.kind {
		case cellBand:
			return th.Band
		case cellLabel:
			return th.BandLabel
		case cellRobot:
			return th.RobotStyle(c.status).Bold(true)
		}
		return lipgloss.NewStyle()
	}

	lines := make([]string, g.h)
	for y, row := range g.cells {
		var b strings.Builder
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].kind == row[start].kind && row[x].status == row[start].status {
				continue
			}
			run := make([]rune, 0, x-start)
			for _, c := range row[start:x] {
				run = append(run, c.ch)
			}
			b.WriteString(styleFor(row[start]).Render(string(run)))
			start = x
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}
