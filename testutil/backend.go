package testutil

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Credentials accepted by the fake backend.
const (
	TestEmail    = "admin@example.com"
	TestPassword = "password123"
	TestToken    = "test-token"
)

// DefaultSnapshot is a small valid dashboard payload.
const DefaultSnapshot = `{
  "robots": [
    {"id": "RB-001", "status": "active", "battery_level": 85, "current_zone": "A",
     "current_row": 12, "current_shelf": 3, "last_update": null},
    {"id": "RB-003", "status": "low_battery", "battery_level": 15, "current_zone": "C",
     "current_row": 8, "current_shelf": 1, "last_update": null},
    {"id": "RB-005", "status": "offline", "battery_level": 0, "current_zone": "A",
     "current_row": 20, "current_shelf": 5, "last_update": null}
  ],
  "recent_scans": [
    {"time": "00:00:02", "robot_id": "RB-001", "zone": "A-12", "product": "Router RT-AC68U",
     "sku": "TEL-4567", "quantity": 8, "status": "CRITICAL"},
    {"time": "00:00:01", "robot_id": "RB-003", "zone": "C-8", "product": "IP phone T46S",
     "sku": "TEL-6789", "quantity": 45, "status": "OK"}
  ],
  "statistics": {"activeRobots": 1, "totalRobots": 3, "scannedToday": 2,
                 "criticalItems": 1, "avgBattery": 50.0}
}`

// Backend is an in-process fake of the warehouse backend: REST endpoints plus
// the websocket push channel.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	snapshot    string
	predictions string
	history     string
	sockets     map[*websocket.Conn]struct{}
	imported    [][]string

	snapshotFetches atomic.Int64
	upgrader        websocket.Upgrader
}

// NewBackend starts a fake backend that is shut down with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		snapshot: DefaultSnapshot,
		predictions: `{"predictions": [
			{"product_id": "TEL-4567", "product_name": "Router RT-AC68U", "current_stock": 8,
			 "days_until_stockout": 3, "recommended_order_quantity": 42},
			{"product_id": "TEL-3456", "current_stock": null, "days_until_stockout": null,
			 "recommended_order_quantity": 0}
		], "confidence": 0.8}`,
		history: `{"total": 2, "items": [
			{"id": 1, "date": "2026-03-01T09:30:00", "robot_id": "RB-001", "zone": "A-12",
			 "sku": "TEL-4567", "product": "Router RT-AC68U", "expected": 50, "actual": 8,
			 "difference": -42, "status": "CRITICAL"},
			{"id": 2, "date": "2026-03-01T10:00:00.123456", "robot_id": "RB-002", "zone": "B-5",
			 "sku": "TEL-8901", "product": "Modem DSL-2640U", "expected": 30, "actual": 31,
			 "difference": 1, "status": "OK"}
		], "pagination": {"page": 0, "limit": 20, "total_pages": 1}}`,
		sockets: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", b.handleLogin)
	mux.HandleFunc("/api/dashboard/current", b.handleSnapshot)
	mux.HandleFunc("/api/inventory/import", b.handleImport)
	mux.HandleFunc("/api/inventory/history", b.handleHistory)
	mux.HandleFunc("/api/ai/predict", b.handlePredict)
	mux.HandleFunc("/api/ws/dashboard", b.handleSocket)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.Server.URL }

// Close drops all sockets and stops the server.
func (b *Backend) Close() {
	b.DropSockets()
	b.Server.Close()
}

// SetSnapshot replaces the payload served by /api/dashboard/current.
func (b *Backend) SetSnapshot(payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = payload
}

// SnapshotFetches returns how many times the snapshot endpoint was hit.
func (b *Backend) SnapshotFetches() int { return int(b.snapshotFetches.Load()) }

// Imported returns the data rows received by the import endpoint.
func (b *Backend) Imported() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.imported...)
}

// Sockets returns the number of connected push clients.
func (b *Backend) Sockets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sockets)
}

// Push sends a raw frame to every connected push client.
func (b *Backend) Push(frame string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ws := range b.sockets {
		ws.SetWriteDeadline(time.Now().Add(time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			ws.Close()
			delete(b.sockets, ws)
		}
	}
}

// PushRobotUpdate broadcasts a robot_update notification.
func (b *Backend) PushRobotUpdate() {
	b.Push(`{"type": "robot_update", "data": {"robot_id": "RB-001", "battery_level": 84}}`)
}

// DropSockets closes every push connection from the server side.
func (b *Backend) DropSockets() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ws := range b.sockets {
		ws.Close()
		delete(b.sockets, ws)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func detail(msg string) string {
	data, _ := json.Marshal(map[string]string{"detail": msg})
	return string(data)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, detail("method not allowed"))
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, `{"detail": [{"msg": "body is not valid JSON"}]}`)
		return
	}
	if req.Email != TestEmail || req.Password != TestPassword {
		writeJSON(w, http.StatusUnauthorized, detail("invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"token": %q, "user": {"id": 1, "email": %q, "name": "Administrator", "role": "admin"}}`,
		TestToken, TestEmail))
}

func (b *Backend) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	b.snapshotFetches.Add(1)
	b.mu.Lock()
	payload := b.snapshot
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func (b *Backend) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+TestToken {
		writeJSON(w, http.StatusUnauthorized, detail("not authenticated"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, detail("missing file"))
		return
	}
	defer file.Close()
	if !strings.HasSuffix(header.Filename, ".csv") {
		writeJSON(w, http.StatusBadRequest, detail("file must be CSV"))
		return
	}

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}
	success, failed := 0, 0
	var errs []string
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 5 {
			failed++
			errs = append(errs, fmt.Sprintf("row %d: missing required field", i))
			continue
		}
		success++
		b.mu.Lock()
		b.imported = append(b.imported, row)
		b.mu.Unlock()
	}
	body, _ := json.Marshal(map[string]interface{}{"success": success, "failed": failed, "errors": append([]string{}, errs...)})
	writeJSON(w, http.StatusOK, string(body))
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("zone") == "Z" {
		writeJSON(w, http.StatusOK, `{"total": 0, "items": [], "pagination": {"page": 0, "limit": 20, "total_pages": 0}}`)
		return
	}
	writeJSON(w, http.StatusOK, b.history)
}

func (b *Backend) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PeriodDays int      `json:"period_days"`
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PeriodDays <= 0 || req.Categories == nil {
		writeJSON(w, http.StatusUnprocessableEntity, `{"detail": [{"msg": "period_days must be positive"}, {"msg": "categories is required"}]}`)
		return
	}
	writeJSON(w, http.StatusOK, b.predictions)
}

func (b *Backend) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.sockets[ws] = struct{}{}
	b.mu.Unlock()

	// Drain client frames so close handshakes are processed.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			b.mu.Lock()
			delete(b.sockets, ws)
			b.mu.Unlock()
			ws.Close()
			return
		}
	}
}
