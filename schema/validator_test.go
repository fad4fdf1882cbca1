package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/errors"
)

const validSnapshot = `{
  "robots": [
    {"id": "RB-001", "status": "active", "battery_level": 85, "current_zone": "A",
     "current_row": 12, "current_shelf": 3, "last_update": "2026-03-01T09:00:00"},
    {"id": "RB-002", "status": "offline", "battery_level": 0, "current_zone": "B",
     "current_row": 0, "current_shelf": 0, "last_update": null}
  ],
  "recent_scans": [
    {"time": "09:00:01", "robot_id": "RB-001", "zone": "A-12", "product": "Widget",
     "sku": "SKU-1", "quantity": 45, "status": "OK"}
  ],
  "statistics": {"activeRobots": 1, "totalRobots": 2, "scannedToday": 120,
                 "criticalItems": 0, "avgBattery": 42.5},
  "extra": "ignored"
}`

func TestValidatorAcceptsSnapshot(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.NoError(t, v.Validate([]byte(validSnapshot)))
}

func TestValidatorRejectsMalformed(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"robots": [`},
		{"missing statistics", `{"robots": [], "recent_scans": []}`},
		{"missing robots", `{"recent_scans": [], "statistics": {"activeRobots": 0, "totalRobots": 0, "scannedToday": 0, "criticalItems": 0, "avgBattery": 0}}`},
		{"robot without zone", `{"robots": [{"id": "RB-1", "status": "active", "battery_level": 50, "current_row": 1, "current_shelf": 1, "last_update": null}],
		  "recent_scans": [], "statistics": {"activeRobots": 0, "totalRobots": 0, "scannedToday": 0, "criticalItems": 0, "avgBattery": 0}}`},
		{"battery out of range", `{"robots": [{"id": "RB-1", "status": "active", "battery_level": 150, "current_zone": "A", "current_row": 1, "current_shelf": 1, "last_update": null}],
		  "recent_scans": [], "statistics": {"activeRobots": 0, "totalRobots": 0, "scannedToday": 0, "criticalItems": 0, "avgBattery": 0}}`},
		{"bad scan zone", `{"robots": [], "recent_scans": [{"time": "09:00:00", "robot_id": "RB-1", "zone": "A", "product": "x", "sku": "S", "quantity": 1}],
		  "statistics": {"activeRobots": 0, "totalRobots": 0, "scannedToday": 0, "criticalItems": 0, "avgBattery": 0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeMalformedSnapshot), err.Error())
		})
	}
}

func TestGenerateSnapshotSchema(t *testing.T) {
	data, err := GenerateSnapshotSchema()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Fleet dashboard snapshot", doc["title"])

	required, ok := doc["required"].([]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"robots", "recent_scans", "statistics"}, required)
}
