package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/classify"
	"github.com/grovetools/fleetview/pkg/models"
)

// Store is the in-memory dashboard state. It is thread-safe and supports
// pub/sub for redraws. Writes are expected to come from a single owner.
type Store struct {
	mu          sync.RWMutex
	zones       map[string]struct{}
	version     uint64
	hasSnapshot bool
	fetchedAt   time.Time
	robots      []models.Robot
	stats       models.Statistics
	base        models.ThresholdTable // from configuration
	override    *models.ThresholdTable
	scans       *scanRing
	predictions []models.Prediction
	conn        models.ConnectionState
	paused      bool
	failure     *Failure
	subscribers map[chan Update]struct{}
}

var _ Reader = (*Store)(nil)

// New creates a new Store instance.
func New(opts Options) *Store {
	zones := opts.Zones
	if len(zones) == 0 {
		zones = models.DefaultZones
	}
	capacity := opts.ScanCapacity
	if capacity <= 0 {
		capacity = DefaultScanCapacity
	}
	s := &Store{
		zones:       make(map[string]struct{}, len(zones)),
		base:        opts.Thresholds.Clone(),
		scans:       newScanRing(capacity),
		conn:        models.ConnectionState{Phase: models.PhaseClosed},
		subscribers: make(map[chan Update]struct{}),
	}
	for _, z := range zones {
		s.zones[z] = struct{}{}
	}
	return s
}

// ReplaceSnapshot validates snap and, only if it is entirely valid, replaces
// robots, statistics, thresholds and scan history in one step. A rejected
// snapshot leaves the previous state untouched.
func (s *Store) ReplaceSnapshot(snap models.Snapshot) error {
	if err := s.validateSnapshot(snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.robots = append([]models.Robot(nil), snap.Robots...)
	s.stats = snap.Statistics
	s.fetchedAt = snap.FetchedAt
	s.hasSnapshot = true
	if snap.Thresholds != nil {
		t := snap.Thresholds.Clone()
		s.override = &t
	} else {
		s.override = nil
	}
	s.scans.reset()
	scans := snap.RecentScans
	if extra := len(scans) - s.scans.capacity(); extra > 0 {
		scans = scans[extra:]
	}
	for _, ev := range scans {
		s.scans.add(ev)
	}
	s.failure = nil
	s.bumpLocked(UpdateSnapshot)
	return nil
}

// AppendScanEvents appends events in arrival order. Events timestamped before
// the committed snapshot belong to an older epoch and are dropped. The whole
// batch is rejected if any event is malformed. It returns the number kept.
func (s *Store) AppendScanEvents(events []models.ScanEvent) (int, error) {
	for i, ev := range events {
		if err := s.validateScan(ev); err != nil {
			return 0, errors.MalformedSnapshot(fmt.Sprintf("scan event %d: %v", i, err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := 0
	for _, ev := range events {
		if s.hasSnapshot && ev.Time.Before(s.fetchedAt) {
			continue
		}
		s.scans.add(ev)
		kept++
	}
	if kept > 0 {
		s.bumpLocked(UpdateScans)
	}
	return kept, nil
}

// SetConnection records the push channel state.
func (s *Store) SetConnection(c models.ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == c {
		return
	}
	s.conn = c
	s.bumpLocked(UpdateConnection)
}

// SetPredictions replaces the prediction list.
func (s *Store) SetPredictions(p []models.Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = append([]models.Prediction(nil), p...)
	s.bumpLocked(UpdatePredictions)
}

// ClearPredictions drops all predictions.
func (s *Store) ClearPredictions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.predictions == nil {
		return
	}
	s.predictions = nil
	s.bumpLocked(UpdatePredictions)
}

// SetThresholds replaces the configured thresholds. Thresholds carried by the
// current snapshot still take precedence.
func (s *Store) SetThresholds(t models.ThresholdTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = t.Clone()
	s.bumpLocked(UpdateThresholds)
}

// RecordFetchFailure marks the last fetch as failed without touching the
// committed snapshot.
func (s *Store) RecordFetchFailure(err error, at time.Time) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = &Failure{Err: err.Error(), At: at}
	s.bumpLocked(UpdateFailure)
}

// SetPaused records whether live updates are paused.
func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused == paused {
		return
	}
	s.paused = paused
	s.bumpLocked(UpdatePaused)
}

// Version returns the current state version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// View returns a deep copy of the current state with robot status and scan
// severity derived from the current inputs.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.thresholdsLocked()
	v := View{
		Version:     s.version,
		HasSnapshot: s.hasSnapshot,
		FetchedAt:   s.fetchedAt,
		Statistics:  s.stats,
		Thresholds:  table,
		Connection:  s.conn,
		Paused:      s.paused,
		Robots:      make([]RobotView, 0, len(s.robots)),
	}
	for _, r := range s.robots {
		v.Robots = append(v.Robots, RobotView{Robot: r, Status: classify.Robot(r.Battery, r.Connected)})
	}
	items := s.scans.items()
	v.Scans = make([]ScanView, 0, len(items))
	for _, ev := range items {
		v.Scans = append(v.Scans, ScanView{ScanEvent: ev, Severity: classify.Scan(ev, table)})
	}
	if s.predictions != nil {
		v.Predictions = append([]models.Prediction(nil), s.predictions...)
	}
	if s.failure != nil {
		f := *s.failure
		v.LastFailure = &f
	}
	return v
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 64)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

func (s *Store) thresholdsLocked() models.ThresholdTable {
	if s.override == nil {
		return s.base.Clone()
	}
	return s.base.Merge(*s.override)
}

func (s *Store) bumpLocked(t UpdateType) {
	s.version++
	u := Update{Type: t, Version: s.version}
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// slow readers pick up the latest View on their next notice
		}
	}
}

func (s *Store) validateSnapshot(snap models.Snapshot) error {
	if snap.FetchedAt.IsZero() {
		return errors.MalformedSnapshot("missing fetch timestamp")
	}
	seen := make(map[string]struct{}, len(snap.Robots))
	for i, r := range snap.Robots {
		if r.ID == "" {
			return errors.MalformedSnapshot(fmt.Sprintf("robot %d has no id", i))
		}
		if _, dup := seen[r.ID]; dup {
			return errors.MalformedSnapshot(fmt.Sprintf("duplicate robot id %q", r.ID))
		}
		seen[r.ID] = struct{}{}
		if !s.knownZone(r.Zone) {
			return errors.MalformedSnapshot(fmt.Sprintf("robot %s: unknown zone %q", r.ID, r.Zone))
		}
		if r.Row < 0 || r.Shelf < 0 {
			return errors.MalformedSnapshot(fmt.Sprintf("robot %s: negative position", r.ID))
		}
		if r.Battery < 0 || r.Battery > 100 {
			return errors.MalformedSnapshot(fmt.Sprintf("robot %s: battery %d out of range", r.ID, r.Battery))
		}
	}
	for i, ev := range snap.RecentScans {
		if err := s.validateScan(ev); err != nil {
			return errors.MalformedSnapshot(fmt.Sprintf("scan %d: %v", i, err))
		}
	}
	st := snap.Statistics
	if st.ActiveRobots < 0 || st.TotalRobots < 0 || st.ScannedToday < 0 || st.CriticalItems < 0 || st.AvgBattery < 0 {
		return errors.MalformedSnapshot("negative statistic")
	}
	return nil
}

func (s *Store) validateScan(ev models.ScanEvent) error {
	switch {
	case ev.Time.IsZero():
		return fmt.Errorf("missing time")
	case ev.RobotID == "":
		return fmt.Errorf("missing robot id")
	case ev.ProductID == "":
		return fmt.Errorf("missing product id")
	case !s.knownZone(ev.Zone):
		return fmt.Errorf("unknown zone %q", ev.Zone)
	case ev.Row < 0:
		return fmt.Errorf("negative row")
	case ev.Quantity < 0:
		return fmt.Errorf("negative quantity")
	}
	return nil
}

func (s *Store) knownZone(z string) bool {
	_, ok := s.zones[z]
	return ok
}
