package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/fleetview/internal/dashboard/store"
)

// storeUpdateMsg carries a store version notice.
type storeUpdateMsg store.Update

type subscriptionClosedMsg struct{}

// actionResultMsg reports the outcome of an operator command.
type actionResultMsg struct {
	action string
	err    error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForUpdate blocks on the subscription and hands the next notice to
// Update. The model re-arms it after every notice.
func (m *Model) waitForUpdate() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-sub
		if !ok {
			return subscriptionClosedMsg{}
		}
		return storeUpdateMsg(u)
	}
}

// runAction issues a controller command off the UI goroutine.
func (m *Model) runAction(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{action: action, err: fn()}
	}
}

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case storeUpdateMsg:
		m.view = m.reader.View()
		return m, m.waitForUpdate()

	case subscriptionClosedMsg:
		return m, nil

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tick()

	case actionResultMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("action", msg.action).Warn("Operator command failed")
			m.notice = msg.action + " failed: " + msg.err.Error()
			m.noticeOK = false
		} else {
			m.notice = msg.action
			m.noticeOK = true
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.ZoomIn):
		m.logZoom(m.zoom.ZoomIn().Zoom)
		return m, nil

	case key.Matches(msg, m.keys.ZoomOut):
		m.logZoom(m.zoom.ZoomOut().Zoom)
		return m, nil

	case key.Matches(msg, m.keys.ZoomReset):
		m.logZoom(m.zoom.Reset().Zoom)
		return m, nil

	case key.Matches(msg, m.keys.TogglePause):
		if m.view.Paused {
			return m, m.runAction("resumed", m.commands.Resume)
		}
		return m, m.runAction("paused", m.commands.Pause)

	case key.Matches(msg, m.keys.Refresh):
		if m.view.Paused {
			m.notice = "paused: resume to refresh"
			m.noticeOK = false
			return m, nil
		}
		return m, m.runAction("refresh requested", m.commands.Refresh)

	case key.Matches(msg, m.keys.Predictions):
		return m, m.runAction("predictions requested", m.commands.RefreshPredictions)
	}
	return m, nil
}

func (m *Model) logZoom(z float64) {
	m.log.WithFields(logrus.Fields{"zoom": z}).Debug("Viewport changed")
}
