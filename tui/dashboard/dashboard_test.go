package dashboard

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/internal/dashboard/store"
	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/spatial"
	"github.com/grovetools/fleetview/pkg/viewport"
	"github.com/grovetools/fleetview/tui/theme"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	theme.SetASCIIIcons(true)
	os.Exit(m.Run())
}

type fakeCommander struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeCommander) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeCommander) Pause() error              { return f.record("pause") }
func (f *fakeCommander) Resume() error             { return f.record("resume") }
func (f *fakeCommander) Refresh() error            { return f.record("refresh") }
func (f *fakeCommander) RefreshPredictions() error { return f.record("predict") }

func (f *fakeCommander) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestModel(t *testing.T) (*Model, *store.Store, *fakeCommander) {
	t.Helper()
	st := store.New(store.Options{
		Zones:        models.DefaultZones,
		ScanCapacity: 20,
		Thresholds:   models.ThresholdTable{Default: models.Thresholds{Low: 20, Critical: 10}},
	})
	cmds := &fakeCommander{}
	m := New(Options{
		Store:    st,
		Commands: cmds,
		Engine:   spatial.MustNew(spatial.DefaultLayout()),
		Viewport: viewport.New(0.2),
		Clock:    clock.Fake(t0.Add(30 * time.Second)),
	})
	t.Cleanup(m.Close)
	return m, st, cmds
}

func snapshot() models.Snapshot {
	return models.Snapshot{
		Robots: []models.Robot{
			{ID: "RB-001", Zone: "A", Row: 0, Shelf: 0, Battery: 85, Connected: true},
			{ID: "RB-002", Zone: "B", Row: 5, Shelf: 2, Battery: 15, Connected: true},
			{ID: "RB-003", Zone: "C", Row: 8, Shelf: 1, Battery: 60, Connected: false},
		},
		RecentScans: []models.ScanEvent{
			{Time: t0.Add(-2 * time.Minute), RobotID: "RB-001", Zone: "A", Row: 3, ProductID: "SKU-1", ProductName: "Widget", Quantity: 45},
			{Time: t0.Add(-time.Minute), RobotID: "RB-002", Zone: "B", Row: 5, ProductID: "SKU-2", ProductName: "Gadget", Quantity: 8},
		},
		Statistics: models.Statistics{ActiveRobots: 1, TotalRobots: 3, ScannedToday: 1250, CriticalItems: 1, AvgBattery: 53.3},
		FetchedAt:  t0,
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// deliver runs cmd and feeds its message back into the model.
func deliver(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	_, next := m.Update(cmd())
	return next
}

func TestSubscriptionDrivesRedraw(t *testing.T) {
	m, st, _ := newTestModel(t)
	assert.Contains(t, m.View(), "waiting for first snapshot")

	wait := m.waitForUpdate()
	require.NoError(t, st.ReplaceSnapshot(snapshot()))
	next := deliver(t, m, wait)

	assert.NotNil(t, next, "subscription is re-armed")
	assert.True(t, m.view.HasSnapshot)

	out := m.View()
	assert.Contains(t, out, "1 / 3")
	assert.Contains(t, out, "1,250")
	assert.Contains(t, out, "53.3%")
	assert.Contains(t, out, "updated 30 seconds ago")
}

func TestHeaderShowsConnectionAndPause(t *testing.T) {
	m, st, _ := newTestModel(t)

	st.SetConnection(models.ConnectionState{Phase: models.PhaseOpen, Generation: 3})
	st.SetPaused(true)
	deliver(t, m, m.waitForUpdate())

	header := m.renderHeader()
	assert.Contains(t, header, "open")
	assert.Contains(t, header, "gen 3")
	assert.Contains(t, header, "PAUSED")
	assert.Contains(t, header, "zoom 1.0x")
}

func TestScansNewestFirstWithSeverity(t *testing.T) {
	m, st, _ := newTestModel(t)
	require.NoError(t, st.ReplaceSnapshot(snapshot()))
	m.view = st.View()

	out := m.renderScans()
	gadget := strings.Index(out, "Gadget")
	widget := strings.Index(out, "Widget")
	require.True(t, gadget > 0 && widget > 0)
	assert.Less(t, gadget, widget)
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "B-5")
}

func TestFailureNoticeKeepsSnapshot(t *testing.T) {
	m, st, _ := newTestModel(t)
	require.NoError(t, st.ReplaceSnapshot(snapshot()))
	st.RecordFetchFailure(assert.AnError, t0.Add(20*time.Second))
	m.view = st.View()

	out := m.View()
	assert.Contains(t, out, "last fetch failed 10 seconds ago")
	assert.Contains(t, out, "1,250", "committed statistics stay visible")
}

func TestPredictionsPanel(t *testing.T) {
	m, st, _ := newTestModel(t)
	assert.Empty(t, m.renderPredictions())

	st.SetPredictions([]models.Prediction{
		{ProductID: "SKU-1", ProductName: "Widget", CurrentStock: 1200, DaysUntilStockout: 1, RecommendedOrder: 300},
		{ProductID: "SKU-9", CurrentStock: 50, DaysUntilStockout: models.NoStockout},
	})
	m.view = st.View()

	out := m.renderPredictions()
	assert.Contains(t, out, "Widget")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "stockout in 1 day")
	assert.Contains(t, out, "SKU-9")
	assert.Contains(t, out, "no stockout expected")
}

func TestZoomKeys(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(keyPress('+'))
	m.Update(keyPress('+'))
	assert.Equal(t, 1.4, m.zoom.State().Zoom)

	for i := 0; i < 10; i++ {
		m.Update(keyPress('-'))
	}
	assert.Equal(t, viewport.MinZoom, m.zoom.State().Zoom)

	m.Update(keyPress('0'))
	assert.Equal(t, 1.0, m.zoom.State().Zoom)
}

func TestPauseToggleFollowsStore(t *testing.T) {
	m, st, cmds := newTestModel(t)

	_, cmd := m.Update(keyPress('p'))
	deliver(t, m, cmd)
	assert.Equal(t, "paused", m.notice)

	st.SetPaused(true)
	m.view = st.View()
	_, cmd = m.Update(keyPress('p'))
	deliver(t, m, cmd)

	_, cmd = m.Update(keyPress('a'))
	deliver(t, m, cmd)

	assert.Equal(t, []string{"pause", "resume", "predict"}, cmds.Calls())
}

func TestRefreshWhilePausedIsNotSent(t *testing.T) {
	m, st, cmds := newTestModel(t)
	st.SetPaused(true)
	m.view = st.View()

	_, cmd := m.Update(keyPress('r'))
	assert.Nil(t, cmd)
	assert.Empty(t, cmds.Calls())
	assert.Contains(t, m.notice, "resume")

	st.SetPaused(false)
	m.view = st.View()
	_, cmd = m.Update(keyPress('r'))
	deliver(t, m, cmd)
	assert.Equal(t, []string{"refresh"}, cmds.Calls())
}

func TestCommandErrorIsShown(t *testing.T) {
	m, _, cmds := newTestModel(t)
	cmds.err = assert.AnError

	_, cmd := m.Update(keyPress('r'))
	deliver(t, m, cmd)
	assert.False(t, m.noticeOK)
	assert.Contains(t, m.View(), "refresh requested failed")
}

func TestQuitUnsubscribes(t *testing.T) {
	m, _, _ := newTestModel(t)
	wait := m.waitForUpdate()

	_, cmd := m.Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.IsType(t, subscriptionClosedMsg{}, wait())
	assert.Empty(t, m.View())
}

func TestRenderMapPlacesRobotsAndLabels(t *testing.T) {
	e := spatial.MustNew(spatial.DefaultLayout())
	robots := []store.RobotView{
		{Robot: models.Robot{ID: "RB-001", Zone: "A"}, Status: models.RobotActive},
		{Robot: models.Robot{ID: "RB-007", Zone: "B", Row: 5}, Status: models.RobotOffline},
	}

	out := renderMap(e, viewport.Default(), robots, theme.DefaultTheme, 0, 0)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 16)
	assert.Len(t, []rune(lines[0]), 60)

	// zone A label sits centred in the header strip of its band
	assert.Equal(t, 'A', []rune(lines[0])[5])
	// RB-001 at A/0/0 projects to (0, 40)
	assert.True(t, strings.HasPrefix(lines[1], "001"))
	// RB-007 at B/5/0 projects to (120, 140)
	assert.Equal(t, "007", string([]rune(lines[5])[12:15]))
}

func TestRenderMapScalesAndClips(t *testing.T) {
	e := spatial.MustNew(spatial.DefaultLayout())

	zoomed := strings.Split(renderMap(e, viewport.State{Zoom: 2}, nil, theme.DefaultTheme, 0, 0), "\n")
	assert.Len(t, zoomed, 32)
	assert.Len(t, []rune(zoomed[0]), 120)

	clipped := strings.Split(renderMap(e, viewport.State{Zoom: 2}, nil, theme.DefaultTheme, 40, 10), "\n")
	assert.Len(t, clipped, 10)
	assert.Len(t, []rune(clipped[0]), 40)
}
