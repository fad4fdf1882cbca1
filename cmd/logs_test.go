package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/testutil"
)

func TestPrintTail(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "fleetview.log", "one\ntwo\nthree\n")

	var got []string
	offset, err := printTail(path, 2, func(l string) { got = append(got, l) })
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three"}, got)
	assert.Equal(t, int64(len("one\ntwo\nthree\n")), offset)

	got = nil
	_, err = printTail(path, -1, func(l string) { got = append(got, l) })
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestComponentFilter(t *testing.T) {
	f := newComponentFilter([]string{"channel"})

	assert.True(t, f.visible(`2026-03-01 09:00:00 [INFO] [channel] Connected`))
	assert.False(t, f.visible(`2026-03-01 09:00:00 [INFO] [controller] Snapshot committed`))
	assert.True(t, f.visible(`{"component":"channel","level":"info","msg":"Connected"}`))
	assert.False(t, f.visible(`{"component":"api","level":"info","msg":"Logged in"}`))

	assert.True(t, newComponentFilter(nil).visible("anything"))
}

func TestFormatLogLine(t *testing.T) {
	out := formatLogLine(`{"time":"2026-03-01T09:00:00Z","level":"warning","msg":"Fetch failed","component":"controller","generation":3}`)
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "[controller]")
	assert.Contains(t, out, "Fetch failed")
	assert.Contains(t, out, "generation=3")

	assert.Equal(t, "plain text", formatLogLine("plain text"))
}

func TestFilterSKUs(t *testing.T) {
	items := []models.HistoryEntry{
		{ProductID: "TEL-4567"},
		{ProductID: "TEL-3456"},
		{ProductID: "NET-1000"},
	}

	got, err := filterSKUs(items, []string{"TEL-*", "!TEL-3*"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TEL-4567", got[0].ProductID)

	_, err = filterSKUs(items, []string{"["})
	assert.Error(t, err)
}

func TestHistorySeverity(t *testing.T) {
	assert.Equal(t, models.SeverityCritical, historySeverity("CRITICAL"))
	assert.Equal(t, models.SeverityLow, historySeverity("low_stock"))
	assert.Equal(t, models.SeverityOK, historySeverity("OK"))
	assert.Equal(t, "+3", signed(3))
	assert.Equal(t, "-1,200", signed(-1200))
}
