package spatial

import (
	"math"
	"testing"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dist(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func TestProjectDefaultLayout(t *testing.T) {
	e := MustNew(DefaultLayout())

	p, err := e.Project("C", 10, 3, viewport.Default())
	require.NoError(t, err)
	assert.Equal(t, 2*120.0+3*10.0, p.X)
	assert.Equal(t, 10.0/5*100+40, p.Y)

	p, err = e.Project("A", 0, 0, viewport.State{Zoom: 2})
	require.NoError(t, err)
	assert.Equal(t, Point{X: 0, Y: 80}, p)
}

func TestProjectUnknownZone(t *testing.T) {
	e := MustNew(DefaultLayout())

	_, err := e.Project("Q", 1, 1, viewport.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownZone))

	_, err = e.Project("", 1, 1, viewport.Default())
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownZone))
}

func TestProjectRejectsNegativePositions(t *testing.T) {
	e := MustNew(DefaultLayout())
	_, err := e.Project("A", -1, 0, viewport.Default())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestProjectMonotonicInZoom(t *testing.T) {
	e := MustNew(DefaultLayout())
	origin := Point{}

	positions := []struct {
		zone       string
		row, shelf int
	}{
		{"A", 0, 0}, {"A", 12, 3}, {"B", 5, 2}, {"E", 20, 5},
	}

	for _, pos := range positions {
		for _, z := range []float64{0.5, 0.7, 1.0} {
			lo, err := e.Project(pos.zone, pos.row, pos.shelf, viewport.State{Zoom: z})
			require.NoError(t, err)
			hi, err := e.Project(pos.zone, pos.row, pos.shelf, viewport.State{Zoom: 2 * z})
			require.NoError(t, err)
			assert.Greater(t, dist(hi, origin), dist(lo, origin), "%v at zoom %v", pos, z)
		}
	}
}

func TestDistanceBetweenPositionsGrowsWithZoom(t *testing.T) {
	e := MustNew(DefaultLayout())
	var prev float64
	for i, z := range []float64{0.5, 0.8, 1.0, 1.4, 2.0} {
		vp := viewport.State{Zoom: z}
		a, _ := e.Project("A", 12, 3, vp)
		b, _ := e.Project("D", 15, 4, vp)
		d := dist(a, b)
		if i > 0 {
			assert.Greater(t, d, prev)
		}
		prev = d
	}
}

func TestProjectIdempotent(t *testing.T) {
	e := MustNew(DefaultLayout())
	vp := viewport.State{Zoom: 1.4}
	first, _ := e.Project("B", 5, 2, vp)
	for i := 0; i < 5; i++ {
		again, _ := e.Project("B", 5, 2, vp)
		assert.Equal(t, first, again)
	}
}

func TestProjectFollowsViewportController(t *testing.T) {
	e := MustNew(DefaultLayout())
	vc := viewport.New(viewport.DefaultStep)

	before, _ := e.Project("B", 5, 2, vc.State())
	vc.ZoomIn()
	after, _ := e.Project("B", 5, 2, vc.State())
	assert.NotEqual(t, before, after)

	vc.Reset()
	reset, _ := e.Project("B", 5, 2, vc.State())
	assert.Equal(t, before, reset)
}

func TestNewRejectsBadLayouts(t *testing.T) {
	l := DefaultLayout()
	l.Zones = []string{"A", "A"}
	_, err := New(l)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))

	l = DefaultLayout()
	l.Zones = nil
	_, err = New(l)
	assert.Error(t, err)
}

func TestBands(t *testing.T) {
	e := MustNew(DefaultLayout())
	bands := e.Bands(viewport.State{Zoom: 2})
	require.Len(t, bands, 5*4)

	first := bands[0]
	assert.Equal(t, "A", first.Zone)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 220, H: 180}, first.Rect)
	assert.Equal(t, Point{X: 110, Y: 40}, first.Label)

	w, h := e.Extent(viewport.State{Zoom: 2})
	assert.Equal(t, 1200.0, w)
	assert.Equal(t, 800.0, h)
}
