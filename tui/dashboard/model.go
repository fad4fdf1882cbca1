// Package dashboard is the bubbletea live view of the robot fleet. It only
// reads the store; operator actions go through the controller.
package dashboard

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/fleetview/internal/dashboard/store"
	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/spatial"
	"github.com/grovetools/fleetview/pkg/viewport"
	"github.com/grovetools/fleetview/tui/keymap"
	"github.com/grovetools/fleetview/tui/theme"
)

// Commander is the operator side of the synchronization controller.
type Commander interface {
	Pause() error
	Resume() error
	Refresh() error
	RefreshPredictions() error
}

// Options configures the dashboard model. Store, Commands and Engine are
// required.
type Options struct {
	Store    store.Reader
	Commands Commander
	Engine   *spatial.Engine
	Viewport *viewport.Controller
	KeyMap   *keymap.Dashboard
	Theme    *theme.Theme
	Clock    clock.Clock
	Logger   *logrus.Entry
}

// Model is the state of the live dashboard TUI.
type Model struct {
	reader   store.Reader
	commands Commander
	engine   *spatial.Engine
	zoom     *viewport.Controller
	keys     keymap.Dashboard
	theme    *theme.Theme
	clock    clock.Clock
	log      *logrus.Entry
	help     help.Model

	sub  chan store.Update
	view store.View

	width    int
	height   int
	notice   string
	noticeOK bool
	quitting bool
}

// New creates the model and subscribes it to the store.
func New(opts Options) *Model {
	m := &Model{
		reader:   opts.Store,
		commands: opts.Commands,
		engine:   opts.Engine,
		zoom:     opts.Viewport,
		theme:    opts.Theme,
		clock:    opts.Clock,
		log:      opts.Logger,
		help:     help.New(),
	}
	if m.zoom == nil {
		m.zoom = viewport.New(viewport.DefaultStep)
	}
	if opts.KeyMap != nil {
		m.keys = *opts.KeyMap
	} else {
		m.keys = keymap.Default()
	}
	if m.theme == nil {
		m.theme = theme.DefaultTheme
	}
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.log == nil {
		m.log = logrus.NewEntry(logrus.StandardLogger())
	}

	m.sub = m.reader.Subscribe()
	m.view = m.reader.View()
	return m
}

// Init starts listening for store updates and the clock tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), tick())
}

// Close releases the store subscription. It is safe to call more than once.
func (m *Model) Close() {
	if m.sub != nil {
		m.reader.Unsubscribe(m.sub)
		m.sub = nil
	}
}

// Run starts a full-screen program for the model and blocks until the user
// quits.
func Run(m *Model) error {
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
