package logging

import (
	"io"
	"os"
	"sync"
)

// swapWriter delegates to a writer that can be replaced while loggers are
// writing to it.
type swapWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (sw *swapWriter) Write(p []byte) (int, error) {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.w.Write(p)
}

func (sw *swapWriter) swap(w io.Writer) io.Writer {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	prev := sw.w
	sw.w = w
	return prev
}

var terminalOutput = &swapWriter{w: os.Stderr}

// SetGlobalOutput redirects the terminal output of every logger. The file
// sink is unaffected.
func SetGlobalOutput(w io.Writer) {
	terminalOutput.swap(w)
}

// GetGlobalOutput returns the shared terminal writer loggers are built with.
func GetGlobalOutput() io.Writer {
	return terminalOutput
}

// SilenceTerminal discards terminal log output until the returned function
// is called. The live TUI owns the screen while it runs.
func SilenceTerminal() (restore func()) {
	prev := terminalOutput.swap(io.Discard)
	return func() { terminalOutput.swap(prev) }
}
