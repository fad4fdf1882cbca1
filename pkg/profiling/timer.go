// Package profiling provides opt-in timing spans and pprof capture for CLI
// commands. Spans nest in call order and are meant for the command goroutine
// only; background workers use their own stats.
package profiling

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	profiler *Profiler
}

func (s *span) Stop() {
	s.profiler.end(s)
}

// Profiler records a tree of spans.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	now     func() time.Time
	root    *span
	stack   []*span
}

// New returns a disabled profiler.
func New() *Profiler {
	return &Profiler{now: time.Now}
}

var defaultProfiler = New()

// Enable turns on the global profiler.
func Enable() { defaultProfiler.Enable() }

// Start begins a span on the global profiler.
func Start(name string) Stopper { return defaultProfiler.Start(name) }

// Summarize writes the global span tree to w.
func Summarize(w io.Writer) { defaultProfiler.Summarize(w) }

func (p *Profiler) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		return
	}
	p.enabled = true
	p.root = &span{name: "total", start: p.now(), profiler: p}
	p.stack = []*span{p.root}
}

// Start opens a span under the innermost open span. Stop it with defer.
func (p *Profiler) Start(name string) Stopper {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return noopStopper{}
	}
	parent := p.stack[len(p.stack)-1]
	s := &span{name: name, start: p.now(), profiler: p}
	parent.children = append(parent.children, s)
	p.stack = append(p.stack, s)
	return s
}

func (p *Profiler) end(s *span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.duration = p.now().Sub(s.start)
	// pop s and anything opened inside it that was never stopped
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i] == s {
			p.stack = p.stack[:i]
			return
		}
	}
}

// Summarize prints each span with its share of the total run.
func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	total := p.now().Sub(p.root.start)

	fmt.Fprintf(w, "\nTiming (%v)\n", total.Round(100*time.Microsecond))
	for _, child := range p.root.children {
		printSpan(w, child, 1, total)
	}
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s%s  %v  %.1f%%\n", strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), pct)
	for _, child := range s.children {
		printSpan(w, child, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}
