package models

import "time"

// Severity is the stock band of a scanned quantity.
type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityLow      Severity = "LOW"
	SeverityCritical Severity = "CRITICAL"
)

// ScanEvent is one robot observation of a product quantity on a shelf.
type ScanEvent struct {
	Time        time.Time `json:"time"`
	RobotID     string    `json:"robot_id"`
	Zone        string    `json:"zone"`
	Row         int       `json:"row"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
}

// Thresholds is a low/critical stock pair. A quantity at or below Critical is
// critical; at or below Low is low.
type Thresholds struct {
	Low      int `json:"low" yaml:"low" toml:"low" mapstructure:"low"`
	Critical int `json:"critical" yaml:"critical" toml:"critical" mapstructure:"critical"`
}

// ThresholdTable resolves per-product thresholds with a fallback pair.
type ThresholdTable struct {
	Default  Thresholds            `json:"default" yaml:"default" toml:"default"`
	Products map[string]Thresholds `json:"products,omitempty" yaml:"products,omitempty" toml:"products,omitempty"`
}

// For returns the thresholds configured for productID, or the default pair.
func (t ThresholdTable) For(productID string) Thresholds {
	if th, ok := t.Products[productID]; ok {
		return th
	}
	return t.Default
}

// Merge returns a table where entries of override win over t. A zero default in
// override keeps t's default.
func (t ThresholdTable) Merge(override ThresholdTable) ThresholdTable {
	out := ThresholdTable{
		Default:  t.Default,
		Products: make(map[string]Thresholds, len(t.Products)+len(override.Products)),
	}
	if override.Default != (Thresholds{}) {
		out.Default = override.Default
	}
	for k, v := range t.Products {
		out.Products[k] = v
	}
	for k, v := range override.Products {
		out.Products[k] = v
	}
	return out
}

// Clone returns a deep copy of the table.
func (t ThresholdTable) Clone() ThresholdTable {
	return ThresholdTable{Default: t.Default}.Merge(ThresholdTable{Products: t.Products})
}
