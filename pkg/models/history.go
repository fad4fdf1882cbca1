package models

import "time"

// HistoryEntry is one row of the historical scan discrepancy report.
type HistoryEntry struct {
	ID          int       `json:"id"`
	Date        time.Time `json:"date"`
	RobotID     string    `json:"robot_id"`
	Zone        string    `json:"zone"`
	ProductID   string    `json:"sku"`
	ProductName string    `json:"product"`
	Expected    int       `json:"expected"`
	Actual      int       `json:"actual"`
	Difference  int       `json:"difference"`
	Status      string    `json:"status"`
}

// User is the operator identity returned at login.
type User struct {
	ID    int    `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
	Role  string `json:"role" yaml:"role"`
}
