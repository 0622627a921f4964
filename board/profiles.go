package board

import (
	"sort"

	"stepdrive-go/errcode"
	"stepdrive-go/types"
)

// Built-in wiring plans. Pin numbers are data; there is one firmware for all
// of them.
var profiles = map[string]types.BoardProfile{
	// Raspberry Pi Pico: DRV8825 on GP6..GP12, button on GP2, end stops on GP14/GP15.
	"pico": {
		Name: "pico",
		Motor: types.MotorWiring{
			Name: "stepper", Step: 7, Dir: 6, Microstep: []int{12, 11, 10}, Sleep: 8, Reset: 9,
		},
		Switches: []types.SwitchWiring{
			{Name: "button", Pin: 2, Role: types.RoleButton},
			{Name: "low", Pin: 14, Role: types.RoleLimitLow},
			{Name: "high", Pin: 15, Role: types.RoleLimitHigh},
		},
	},
	// Pico with M0..M2 moved onto a PCF8574 at 0x20 on i2c0.
	"pico_i2c": {
		Name: "pico_i2c",
		Motor: types.MotorWiring{
			Name: "stepper", Step: 7, Dir: 6, Microstep: []int{0, 1, 2}, Sleep: 8, Reset: 9,
			MicrostepOnExpander: true,
		},
		Switches: []types.SwitchWiring{
			{Name: "button", Pin: 2, Role: types.RoleButton},
			{Name: "low", Pin: 14, Role: types.RoleLimitLow},
			{Name: "high", Pin: 15, Role: types.RoleLimitHigh},
		},
		Expander: &types.ExpanderWiring{Bus: "i2c0", Addr: 0x20},
	},
	"esp32": {
		Name: "esp32",
		Motor: types.MotorWiring{
			Name: "stepper", Step: 5, Dir: 2, Microstep: []int{4, 22, 19}, Sleep: 18, Reset: 23,
		},
		Switches: []types.SwitchWiring{
			{Name: "button", Pin: 34, Role: types.RoleButton},
			{Name: "low", Pin: 13, Role: types.RoleLimitLow},
			{Name: "high", Pin: 15, Role: types.RoleLimitHigh},
		},
	},
	// Simulated board for the host shell and tests.
	"sim": {
		Name: "sim",
		Motor: types.MotorWiring{
			Name: "stepper", Step: 1, Dir: 2, Microstep: []int{3, 4, 5}, Sleep: 6, Reset: 7,
		},
		Switches: []types.SwitchWiring{
			{Name: "button", Pin: 10, Role: types.RoleButton},
			{Name: "low", Pin: 11, Role: types.RoleLimitLow},
			{Name: "high", Pin: 12, Role: types.RoleLimitHigh},
		},
	},
}

// Profile returns a copy of the named built-in profile.
func Profile(name string) (types.BoardProfile, error) {
	p, ok := profiles[name]
	if !ok {
		return types.BoardProfile{}, &errcode.E{C: errcode.UnknownBoard, Op: "board.Profile", Msg: name}
	}
	p.Motor.Microstep = append([]int(nil), p.Motor.Microstep...)
	p.Switches = append([]types.SwitchWiring(nil), p.Switches...)
	if p.Expander != nil {
		x := *p.Expander
		p.Expander = &x
	}
	return p, nil
}

// Names lists the built-in profiles.
func Names() []string {
	out := make([]string, 0, len(profiles))
	for n := range profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
