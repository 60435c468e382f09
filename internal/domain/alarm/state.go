package alarm

import "time"

// SystemState is the active mode of the master node. Exactly one is active at a time.
type SystemState int

// Master node states. Disarmed is the initial one.
const (
	Disarmed SystemState = iota
	Armed
	ChangePassword
	AlarmTriggered
)

// String returns the state name used in logs, metrics and events.
func (s SystemState) String() string {
	switch s {
	case Disarmed:
		return "disarmed"
	case Armed:
		return "armed"
	case ChangePassword:
		return "change_password"
	case AlarmTriggered:
		return "alarm_triggered"
	default:
		return "unknown"
	}
}

// SensorReading is the result of one Sensor Link round.
type SensorReading int

// Sensor readings. A reading carries no memory of previous rounds.
const (
	Idle SensorReading = iota
	MovementDetected
)

// String returns the reading name.
func (r SensorReading) String() string {
	if r == MovementDetected {
		return "movement_detected"
	}

	return "idle"
}

// Snapshot is the externally visible status of the master at a point in time.
type Snapshot struct {
	// Timestamp is when the state was last changed.
	Timestamp time.Time
	// State is the active system state.
	State SystemState
	// Previous is the state left by the last transition.
	Previous SystemState
	// SounderOn reports whether the alarm tone is playing.
	SounderOn bool
}

// Clone returns a copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}
