package schema

// SnapshotPayload is the wire form of GET /api/dashboard/current.
type SnapshotPayload struct {
	Robots      []RobotPayload     `json:"robots" jsonschema:"description=Every robot known to the backend"`
	RecentScans []ScanPayload      `json:"recent_scans" jsonschema:"description=Most recent scans, newest first"`
	Statistics  StatisticsPayload  `json:"statistics"`
	Thresholds  *ThresholdsPayload `json:"thresholds,omitempty" jsonschema:"description=Per-product stock thresholds overriding local configuration"`
}

// RobotPayload is one robot as reported by the backend.
type RobotPayload struct {
	ID           string  `json:"id" jsonschema:"minLength=1"`
	Status       string  `json:"status" jsonschema:"description=Backend status hint; connectivity only"`
	BatteryLevel int     `json:"battery_level" jsonschema:"minimum=0,maximum=100"`
	CurrentZone  string  `json:"current_zone" jsonschema:"minLength=1"`
	CurrentRow   int     `json:"current_row" jsonschema:"minimum=0"`
	CurrentShelf int     `json:"current_shelf" jsonschema:"minimum=0"`
	LastUpdate   *string `json:"last_update" jsonschema:"oneof_type=string;null"`
}

// ScanPayload is one scan row. Zone is "<zone>-<row>", e.g. "A-12".
type ScanPayload struct {
	Time     string `json:"time" jsonschema:"description=HH:MM:SS or RFC 3339 timestamp"`
	RobotID  string `json:"robot_id" jsonschema:"minLength=1"`
	Zone     string `json:"zone" jsonschema:"pattern=^[^-]+-[0-9]+$"`
	Product  string `json:"product"`
	SKU      string `json:"sku" jsonschema:"minLength=1"`
	Quantity int    `json:"quantity" jsonschema:"minimum=0"`
	Status   string `json:"status,omitempty" jsonschema:"description=Backend severity hint; recomputed locally"`
}

// StatisticsPayload is the aggregate header.
type StatisticsPayload struct {
	ActiveRobots  int     `json:"activeRobots" jsonschema:"minimum=0"`
	TotalRobots   int     `json:"totalRobots" jsonschema:"minimum=0"`
	ScannedToday  int     `json:"scannedToday" jsonschema:"minimum=0"`
	CriticalItems int     `json:"criticalItems" jsonschema:"minimum=0"`
	AvgBattery    float64 `json:"avgBattery" jsonschema:"minimum=0,maximum=100"`
}

// ThresholdsPayload carries optional backend-side thresholds.
type ThresholdsPayload struct {
	Default  *ThresholdPair           `json:"default,omitempty"`
	Products map[string]ThresholdPair `json:"products,omitempty"`
}

// ThresholdPair is a low/critical quantity pair.
type ThresholdPair struct {
	Low      int `json:"low" jsonschema:"minimum=0"`
	Critical int `json:"critical" jsonschema:"minimum=0"`
}
