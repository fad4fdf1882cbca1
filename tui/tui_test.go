package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/grovetools/fleetview/logging"
)

func TestInitializeTUIColorProfile(t *testing.T) {
	prev := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })

	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	InitializeTUI()()
	assert.Equal(t, termenv.TrueColor, lipgloss.ColorProfile())

	t.Setenv("NO_COLOR", "1")
	InitializeTUI()()
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
}

func TestInitializeTUISilencesTerminalLogs(t *testing.T) {
	var buf bytes.Buffer
	logging.SetGlobalOutput(&buf)
	t.Cleanup(func() { logging.SetGlobalOutput(os.Stderr) })

	restore := InitializeTUI()
	_, _ = logging.GetGlobalOutput().Write([]byte("hidden\n"))
	restore()
	_, _ = logging.GetGlobalOutput().Write([]byte("shown\n"))

	assert.Equal(t, "shown\n", buf.String())
}
