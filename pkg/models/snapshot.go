package models

import "time"

// Statistics is the aggregate header of the dashboard. It is always replaced as
// a whole.
type Statistics struct {
	ActiveRobots  int     `json:"active_robots"`
	TotalRobots   int     `json:"total_robots"`
	ScannedToday  int     `json:"scanned_today"`
	CriticalItems int     `json:"critical_items"`
	AvgBattery    float64 `json:"avg_battery"`
}

// Snapshot is a complete, internally consistent replacement for robots,
// statistics and scan history, as returned by one full-state fetch.
type Snapshot struct {
	Robots      []Robot         `json:"robots"`
	RecentScans []ScanEvent     `json:"recent_scans"`
	Statistics  Statistics      `json:"statistics"`
	Thresholds  *ThresholdTable `json:"thresholds,omitempty"`
	FetchedAt   time.Time       `json:"fetched_at"`
}
