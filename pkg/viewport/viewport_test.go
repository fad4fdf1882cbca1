package viewport

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoomSteps(t *testing.T) {
	c := New(0.2)
	assert.Equal(t, 1.0, c.State().Zoom)

	assert.Equal(t, 1.2, c.ZoomIn().Zoom)
	for i := 0; i < 10; i++ {
		c.ZoomIn()
	}
	assert.Equal(t, MaxZoom, c.State().Zoom)

	for i := 0; i < 20; i++ {
		c.ZoomOut()
	}
	assert.Equal(t, MinZoom, c.State().Zoom)
}

func TestResetIsExact(t *testing.T) {
	c := New(0.2)
	c.ZoomIn()
	c.ZoomIn()
	c.ZoomOut()
	c.ZoomOut()
	c.ZoomOut()

	assert.Equal(t, 1.0, c.Reset().Zoom)
	assert.Equal(t, Default(), c.State())
}

func TestRandomWalkStaysClamped(t *testing.T) {
	c := New(DefaultStep)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		var s State
		if rng.Intn(2) == 0 {
			s = c.ZoomIn()
		} else {
			s = c.ZoomOut()
		}
		if s.Zoom < MinZoom || s.Zoom > MaxZoom {
			t.Fatalf("zoom %v out of bounds after %d steps", s.Zoom, i+1)
		}
	}
}

func TestInvalidStepFallsBack(t *testing.T) {
	c := New(0)
	assert.Equal(t, 1.2, c.ZoomIn().Zoom)
}

func TestRestore(t *testing.T) {
	c := New(DefaultStep)
	assert.Equal(t, 1.6, c.Restore(State{Zoom: 1.6}).Zoom)
	assert.Equal(t, 1.8, c.ZoomIn().Zoom)

	assert.Equal(t, MaxZoom, c.Restore(State{Zoom: 9}).Zoom)
	assert.Equal(t, MinZoom, c.Restore(State{Zoom: 0}).Zoom)
	assert.Equal(t, DefaultZoom, c.Restore(State{Zoom: math.NaN()}).Zoom)
}
