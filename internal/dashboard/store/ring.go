package store

import "github.com/grovetools/fleetview/pkg/models"

// scanRing is a fixed-capacity circular buffer of scan events. It is not
// safe for concurrent use; the Store serialises access.
type scanRing struct {
	slots []models.ScanEvent
	total uint64 // events ever added; may exceed capacity
}

func newScanRing(capacity int) *scanRing {
	if capacity < 1 {
		capacity = 1
	}
	return &scanRing{slots: make([]models.ScanEvent, capacity)}
}

func (r *scanRing) capacity() int { return len(r.slots) }

func (r *scanRing) add(ev models.ScanEvent) {
	r.slots[r.total%uint64(len(r.slots))] = ev
	r.total++
}

func (r *scanRing) reset() {
	r.total = 0
	clear(r.slots)
}

func (r *scanRing) len() int {
	if r.total > uint64(len(r.slots)) {
		return len(r.slots)
	}
	return int(r.total)
}

// items returns the retained events oldest first.
func (r *scanRing) items() []models.ScanEvent {
	n := r.len()
	out := make([]models.ScanEvent, 0, n)
	start := r.total - uint64(n)
	for i := start; i < r.total; i++ {
		out = append(out, r.slots[i%uint64(len(r.slots))])
	}
	return out
}
