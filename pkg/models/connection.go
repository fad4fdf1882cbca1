package models

// ConnectionPhase is the lifecycle position of the push channel.
type ConnectionPhase string

const (
	PhaseConnecting ConnectionPhase = "connecting"
	PhaseOpen       ConnectionPhase = "open"
	PhaseClosed     ConnectionPhase = "closed"
	PhaseError      ConnectionPhase = "error"
)

// ConnectionState pairs the channel phase with the generation of the
// connection attempt it belongs to.
type ConnectionState struct {
	Phase      ConnectionPhase `json:"phase"`
	Generation uint64          `json:"generation"`
	Err        string          `json:"error,omitempty"`
}

// Connected reports whether the channel is currently open.
func (c ConnectionState) Connected() bool {
	return c.Phase == PhaseOpen
}
