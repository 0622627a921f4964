package types

// Board profiles describe how one DRV8825 channel and its switches are wired.
// Line numbers use the platform's own scheme (GPn on RP2, GPIOn on ESP32,
// line offsets on a Linux gpiochip). -1 means "not wired".

type BoardProfile struct {
	Name     string          `yaml:"name" json:"name"`
	Motor    MotorWiring     `yaml:"motor" json:"motor"`
	Switches []SwitchWiring  `yaml:"switches,omitempty" json:"switches,omitempty"`
	Expander *ExpanderWiring `yaml:"expander,omitempty" json:"expander,omitempty"`
}

type MotorWiring struct {
	Name      string `yaml:"name" json:"name"`
	Step      int    `yaml:"step" json:"step"`
	Dir       int    `yaml:"dir" json:"dir"`
	Microstep []int  `yaml:"microstep,flow" json:"microstep,omitempty"` // M0, M1, M2
	Sleep     int    `yaml:"sleep" json:"sleep"`
	Reset     int    `yaml:"reset" json:"reset"`
	// StepsPerRev of the motor in full steps; 0 means 200.
	StepsPerRev int `yaml:"steps_per_rev" json:"steps_per_rev"`
	// MicrostepOnExpander selects the I²C expander bits for M0..M2.
	MicrostepOnExpander bool `yaml:"microstep_on_expander" json:"microstep_on_expander"`
}

// UnmarshalYAML defaults every line absent from the document to -1.
func (w *MotorWiring) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain MotorWiring
	p := plain{Step: -1, Dir: -1, Sleep: -1, Reset: -1}
	if err := unmarshal(&p); err != nil {
		return err
	}
	*w = MotorWiring(p)
	return nil
}

type SwitchRole string

const (
	RoleButton    SwitchRole = "button"
	RoleLimitLow  SwitchRole = "limit_low"  // stops negative motion
	RoleLimitHigh SwitchRole = "limit_high" // stops positive motion
)

type SwitchWiring struct {
	Name       string     `yaml:"name" json:"name"`
	Pin        int        `yaml:"pin" json:"pin"`
	ActiveHigh bool       `yaml:"active_high" json:"active_high"`
	DebounceMs int        `yaml:"debounce_ms" json:"debounce_ms"` // 0 means 500
	Role       SwitchRole `yaml:"role" json:"role"`
}

type ExpanderWiring struct {
	Bus  string `yaml:"bus" json:"bus"` // "i2c0", "i2c1"
	Addr uint16 `yaml:"addr" json:"addr"`
}
