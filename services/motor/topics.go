package motor

import "stepdrive-go/bus"

const (
	TokMotor   = "motor"
	TokSwitch  = "switch"
	TokControl = "control"
	TokState   = "state"
	TokEvent   = "event"
)

// Control verbs (last level of motor/<name>/control/<verb>).
const (
	VerbMove       = "move"
	VerbTurn       = "turn"
	VerbRun        = "run"
	VerbRamp       = "ramp"
	VerbStop       = "stop"
	VerbEnable     = "enable"
	VerbDisable    = "disable"
	VerbReset      = "reset"
	VerbResolution = "resolution"
	VerbProgress   = "progress"
	VerbStatus     = "status"
	VerbJog        = "jog"
)

func ControlTopic(name, verb string) bus.Topic { return bus.T(TokMotor, name, TokControl, verb) }
func StateTopic(name string) bus.Topic         { return bus.T(TokMotor, name, TokState) }
func SwitchTopic(name string) bus.Topic        { return bus.T(TokSwitch, name, TokEvent) }

func controlFilter(name string) bus.Topic { return bus.T(TokMotor, name, TokControl, bus.SingleWild) }
