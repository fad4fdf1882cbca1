// Package tui prepares the terminal for fleetview's full-screen views.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/grovetools/fleetview/logging"
)

// InitializeTUI prepares the terminal for a full-screen program. NO_COLOR
// disables styling; CLICOLOR_FORCE=1 or COLORTERM=truecolor force true color
// even when stdout is not a terminal. Terminal logging is silenced until the
// returned function is called so log lines do not tear the screen.
func InitializeTUI() (restore func()) {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
	return logging.SilenceTerminal()
}
