// Package classify maps raw robot and stock metrics onto discrete severity
// bands. Every function is pure: the same inputs always give the same band.
package classify

import "github.com/grovetools/fleetview/pkg/models"

// LowBatteryBelow is the first battery level that counts as healthy. Levels
// below it (and at or above OfflineBelow) are low_battery.
const LowBatteryBelow = 20

// OfflineBelow is the battery level under which a robot is treated as offline
// regardless of connectivity.
const OfflineBelow = 1

// Battery classifies a battery percentage on its own.
func Battery(level int) models.RobotStatus {
	switch {
	case level < OfflineBelow:
		return models.RobotOffline
	case level < LowBatteryBelow:
		return models.RobotLowBattery
	default:
		return models.RobotActive
	}
}

// Robot joins connectivity and battery: a robot that lost its heartbeat is
// offline whatever its last battery reading was.
func Robot(level int, connected bool) models.RobotStatus {
	if !connected {
		return models.RobotOffline
	}
	return Battery(level)
}

// Stock classifies a scanned quantity against a low/critical pair.
func Stock(quantity int, t models.Thresholds) models.Severity {
	switch {
	case quantity <= t.Critical:
		return models.SeverityCritical
	case quantity <= t.Low:
		return models.SeverityLow
	default:
		return models.SeverityOK
	}
}

// Scan classifies a scan event using the thresholds for its product.
func Scan(ev models.ScanEvent, table models.ThresholdTable) models.Severity {
	return Stock(ev.Quantity, table.For(ev.ProductID))
}
