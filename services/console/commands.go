package console

import (
	"sort"
	"strconv"
	"strings"

	"stepdrive-go/errcode"
	"stepdrive-go/services/motor"
	"stepdrive-go/types"
)

type command struct {
	verb  string // empty for local commands
	usage string
	parse func(args []string) (any, error)
}

var commands = map[string]command{
	"move": {motor.VerbMove, "move <steps> [microsteps] [freq_hz]", func(a []string) (any, error) {
		var p types.MoveSteps
		err := args(a, 1, 3).
			i64(0, &p.Steps).
			num(1, &p.Microsteps, DefaultMicrosteps).
			u32(2, &p.FreqHz, DefaultFreqHz).err
		return p, err
	}},
	"turn": {motor.VerbTurn, "turn <revs> [microsteps] [freq_hz]", func(a []string) (any, error) {
		var p types.MoveRevs
		err := args(a, 1, 3).
			f64(0, &p.Revs).
			num(1, &p.Microsteps, DefaultMicrosteps).
			u32(2, &p.FreqHz, DefaultFreqHz).err
		return p, err
	}},
	"run": {motor.VerbRun, "run <freq_hz, signed> [microsteps]", func(a []string) (any, error) {
		var p types.FreeRun
		var f int64
		err := args(a, 1, 2).
			i64(0, &f).
			num(1, &p.Microsteps, DefaultMicrosteps).err
		if err == nil && (f > 1<<31-1 || f < -(1<<31-1)) {
			err = errcode.InvalidParams
		}
		p.FreqHz = int32(f)
		return p, err
	}},
	"ramp": {motor.VerbRamp, "ramp <steps> [microsteps] [speed_hz]", func(a []string) (any, error) {
		var p types.RampMove
		err := args(a, 1, 3).
			i64(0, &p.Steps).
			num(1, &p.Microsteps, DefaultMicrosteps).
			u32(2, &p.SpeedHz, DefaultFreqHz).err
		return p, err
	}},
	"stop":    {motor.VerbStop, "stop", none},
	"enable":  {motor.VerbEnable, "enable", none},
	"disable": {motor.VerbDisable, "disable", none},
	"reset": {motor.VerbReset, "reset [interval_ms]", func(a []string) (any, error) {
		p := types.ResetReq{Active: true}
		err := args(a, 0, 1).u32(0, &p.IntervalMs, 0).err
		return p, err
	}},
	"res": {motor.VerbResolution, "res <divisor>", func(a []string) (any, error) {
		var p types.Resolution
		err := args(a, 1, 1).num(0, &p.Divisor, 0).err
		return p, err
	}},
	"progress": {motor.VerbProgress, "progress", none},
	"status":   {motor.VerbStatus, "status", none},
	"jog": {motor.VerbJog, "jog speed_up|speed_down|hold_cw|hold_ccw|stop", func(a []string) (any, error) {
		if len(a) != 1 {
			return nil, errcode.InvalidParams
		}
		return types.Jog{Action: types.JogAction(a[0])}, nil
	}},
	"help": {"", "help", nil},
}

func none(a []string) (any, error) {
	if len(a) != 0 {
		return nil, errcode.InvalidParams
	}
	return nil, nil
}

// Usage maps each command name to its usage line.
func Usage() map[string]string {
	u := make(map[string]string, len(commands))
	for name, c := range commands {
		u[name] = c.usage
	}
	return u
}

func helpText() string {
	u := make([]string, 0, len(commands))
	for _, c := range commands {
		u = append(u, c.usage)
	}
	sort.Strings(u)
	return strings.Join(u, "; ")
}

// argList parses positional arguments, keeping the first error.
type argList struct {
	a   []string
	err error
}

func args(a []string, min, max int) *argList {
	l := &argList{a: a}
	if len(a) < min || len(a) > max {
		l.err = errcode.InvalidParams
	}
	return l
}

func (l *argList) get(i int) (string, bool) {
	if l.err != nil || i >= len(l.a) {
		return "", false
	}
	return l.a[i], true
}

func (l *argList) fail(err error) {
	if err != nil && l.err == nil {
		l.err = errcode.Wrap(errcode.InvalidParams, "console.args", err)
	}
}

func (l *argList) i64(i int, dst *int64) *argList {
	if s, ok := l.get(i); ok {
		v, err := strconv.ParseInt(s, 10, 64)
		l.fail(err)
		*dst = v
	}
	return l
}

func (l *argList) num(i int, dst *int, def int) *argList {
	*dst = def
	if s, ok := l.get(i); ok {
		v, err := strconv.Atoi(s)
		l.fail(err)
		*dst = v
	}
	return l
}

func (l *argList) u32(i int, dst *uint32, def uint32) *argList {
	*dst = def
	if s, ok := l.get(i); ok {
		v, err := strconv.ParseUint(s, 10, 32)
		l.fail(err)
		*dst = uint32(v)
	}
	return l
}

func (l *argList) f64(i int, dst *float64) *argList {
	if s, ok := l.get(i); ok {
		v, err := strconv.ParseFloat(s, 64)
		l.fail(err)
		*dst = v
	}
	return l
}
