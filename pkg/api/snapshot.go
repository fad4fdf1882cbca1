package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/schema"
)

// FetchSnapshot retrieves the complete dashboard state. The payload is
// checked against the snapshot schema; recent scans arrive newest first and
// are returned oldest first.
func (c *Client) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	const path = "/api/dashboard/current"

	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if err := c.validator.Validate(data); err != nil {
		return nil, err
	}

	var payload schema.SnapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedSnapshot, "failed to decode snapshot")
	}
	return c.convertSnapshot(payload, c.clock.Now())
}

func (c *Client) convertSnapshot(p schema.SnapshotPayload, fetchedAt time.Time) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Robots:      make([]models.Robot, 0, len(p.Robots)),
		RecentScans: make([]models.ScanEvent, 0, len(p.RecentScans)),
		Statistics: models.Statistics{
			ActiveRobots:  p.Statistics.ActiveRobots,
			TotalRobots:   p.Statistics.TotalRobots,
			ScannedToday:  p.Statistics.ScannedToday,
			CriticalItems: p.Statistics.CriticalItems,
			AvgBattery:    p.Statistics.AvgBattery,
		},
		FetchedAt: fetchedAt,
	}

	for _, r := range p.Robots {
		robot := models.Robot{
			ID:      r.ID,
			Zone:    r.CurrentZone,
			Row:     r.CurrentRow,
			Shelf:   r.CurrentShelf,
			Battery: r.BatteryLevel,
		}
		if r.LastUpdate != nil && *r.LastUpdate != "" {
			seen, err := ParseTimestamp(*r.LastUpdate)
			if err != nil {
				return nil, errors.MalformedSnapshot(fmt.Sprintf("robot %s: bad last_update %q", r.ID, *r.LastUpdate))
			}
			robot.LastSeen = seen
		}
		robot.Connected = c.connected(r.Status, robot.LastSeen, fetchedAt)
		snap.Robots = append(snap.Robots, robot)
	}

	// newest first on the wire
	for i := len(p.RecentScans) - 1; i >= 0; i-- {
		s := p.RecentScans[i]
		zone, row, err := SplitZone(s.Zone)
		if err != nil {
			return nil, errors.MalformedSnapshot(fmt.Sprintf("scan %d: %v", i, err))
		}
		at, err := scanTime(s.Time, fetchedAt)
		if err != nil {
			return nil, errors.MalformedSnapshot(fmt.Sprintf("scan %d: bad time %q", i, s.Time))
		}
		snap.RecentScans = append(snap.RecentScans, models.ScanEvent{
			Time:        at,
			RobotID:     s.RobotID,
			Zone:        zone,
			Row:         row,
			ProductID:   s.SKU,
			ProductName: s.Product,
			Quantity:    s.Quantity,
		})
	}

	if p.Thresholds != nil {
		table := models.ThresholdTable{Products: make(map[string]models.Thresholds, len(p.Thresholds.Products))}
		if p.Thresholds.Default != nil {
			table.Default = models.Thresholds{Low: p.Thresholds.Default.Low, Critical: p.Thresholds.Default.Critical}
		}
		for sku, t := range p.Thresholds.Products {
			table.Products[sku] = models.Thresholds{Low: t.Low, Critical: t.Critical}
		}
		snap.Thresholds = &table
	}
	return snap, nil
}

// connected combines the backend's status hint with heartbeat staleness.
func (c *Client) connected(status string, lastSeen, now time.Time) bool {
	if status == string(models.RobotOffline) {
		return false
	}
	if c.heartbeatTimeout > 0 && !lastSeen.IsZero() && now.Sub(lastSeen) > c.heartbeatTimeout {
		return false
	}
	return true
}

// SplitZone parses a "<zone>-<row>" location such as "A-12".
func SplitZone(s string) (string, int, error) {
	zone, rowText, ok := strings.Cut(s, "-")
	if !ok || zone == "" {
		return "", 0, fmt.Errorf("bad zone %q", s)
	}
	row, err := strconv.Atoi(rowText)
	if err != nil || row < 0 {
		return "", 0, fmt.Errorf("bad row in zone %q", s)
	}
	return zone, row, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the zone-less ISO forms the backend
// emits. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// scanTime resolves a scan time. A bare clock time is placed on the fetch
// date, or the day before if that would put it in the future.
func scanTime(s string, fetchedAt time.Time) (time.Time, error) {
	if clockTime, err := time.Parse("15:04:05", s); err == nil {
		ref := fetchedAt.UTC()
		t := time.Date(ref.Year(), ref.Month(), ref.Day(),
			clockTime.Hour(), clockTime.Minute(), clockTime.Second(), 0, time.UTC)
		if t.After(ref) {
			t = t.AddDate(0, 0, -1)
		}
		return t, nil
	}
	return ParseTimestamp(s)
}
