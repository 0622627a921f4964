package types

// ---- Motor control payloads (topic motor/<name>/control/<verb>) ----

type MoveSteps struct {
	Steps      int64  `json:"steps"`
	Microsteps int    `json:"microsteps"`
	FreqHz     uint32 `json:"freq_hz"`
}

type MoveRevs struct {
	Revs       float64 `json:"revs"`
	Microsteps int     `json:"microsteps"`
	FreqHz     uint32  `json:"freq_hz"`
}

type FreeRun struct {
	FreqHz     int32 `json:"freq_hz"` // sign selects direction; 0 stops
	Microsteps int   `json:"microsteps"`
}

// RampMove asks for a trapezoidal move at SpeedHz cruise.
type RampMove struct {
	Steps      int64  `json:"steps"`
	Microsteps int    `json:"microsteps"`
	SpeedHz    uint32 `json:"speed_hz"`
}

type ResetReq struct {
	Active     bool   `json:"active"`
	IntervalMs uint32 `json:"interval_ms,omitempty"`
}

type Resolution struct {
	Divisor int `json:"divisor"`
}

type JogAction string

const (
	JogSpeedUp   JogAction = "speed_up"
	JogSpeedDown JogAction = "speed_down"
	JogHoldCW    JogAction = "hold_cw"
	JogHoldCCW   JogAction = "hold_ccw"
	JogStop      JogAction = "stop"
)

type Jog struct {
	Action JogAction `json:"action"`
}

// RampReport is the reply value of a finished ramp move.
type RampReport struct {
	Completed int64  `json:"completed"`
	Recovered bool   `json:"recovered"`
	Cause     string `json:"cause,omitempty"`
}

// ---- Motor state (retained on motor/<name>/state) ----

type MotorState struct {
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	Position   int64  `json:"position"`
	Target     int64  `json:"target"`
	Progress   int64  `json:"progress"`
	Resolution int    `json:"resolution"`
	Active     bool   `json:"active"`
	Enabled    bool   `json:"enabled"`
	Busy       bool   `json:"busy"` // a ramp or jog worker owns the motor
	JogSpeed   int32  `json:"jog_speed"`
	Fault      string `json:"fault,omitempty"`
	TS         int64  `json:"ts_ms"`
}

// SwitchEvent is published on switch/<name>/event for each accepted edge.
type SwitchEvent struct {
	Name   string     `json:"name"`
	Role   SwitchRole `json:"role"`
	Active bool       `json:"active"`
	TS     int64      `json:"ts_ms"`
}

// Reply answers every control request.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Value any    `json:"value,omitempty"`
}

// HeartbeatConfig is published on config/heartbeat.
type HeartbeatConfig struct {
	IntervalMs int `json:"interval_ms"`
}
