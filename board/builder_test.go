package board

import (
	"errors"
	"testing"
	"time"

	"stepdrive-go/errcode"
	"stepdrive-go/hal"
	"stepdrive-go/types"

	"tinygo.org/x/drivers"
)

func simBuilder(pins *hal.SimFactory) Builder {
	return Builder{Pins: pins, Sleep: func(time.Duration) {}, Notice: func(string) {}}
}

func TestBuildSimProfile(t *testing.T) {
	p, err := Profile("sim")
	if err != nil {
		t.Fatal(err)
	}
	pins := hal.NewSimFactory(32)
	rig, err := simBuilder(pins).Build(p)
	if err != nil {
		t.Fatal(err)
	}
	defer rig.Close()

	if rig.Name != "sim" || len(rig.Switches) != 3 {
		t.Fatalf("rig=%+v", rig)
	}
	if got := rig.Motor.SetResolution(16); got != 16 {
		t.Fatalf("resolution=%d", got)
	}
	// M2 only for 1/16.
	if pins.Pin(3).Get() || pins.Pin(4).Get() || !pins.Pin(5).Get() {
		t.Fatal("microstep lines not wired in M0, M1, M2 order")
	}
	if s, ok := rig.Switch("low"); !ok || s.Role != types.RoleLimitLow || s.Number() != 11 {
		t.Fatalf("low switch: %+v %v", s, ok)
	}
	if _, ok := rig.Switch("nope"); ok {
		t.Fatal("unexpected switch")
	}
}

func TestBuildRejectsDuplicatePin(t *testing.T) {
	p, _ := Profile("sim")
	p.Switches[1].Pin = p.Motor.Dir
	_, err := simBuilder(hal.NewSimFactory(32)).Build(p)
	if !errors.Is(err, errcode.PinInUse) {
		t.Fatalf("err=%v, want pin_in_use", err)
	}
}

func TestBuildRejectsUnknownPin(t *testing.T) {
	p, _ := Profile("sim")
	p.Motor.Reset = 40
	_, err := simBuilder(hal.NewSimFactory(32)).Build(p)
	if !errors.Is(err, errcode.UnknownPin) {
		t.Fatalf("err=%v, want unknown_pin", err)
	}
}

func TestBuildMissingStep(t *testing.T) {
	p, _ := Profile("sim")
	p.Motor.Step = -1
	_, err := simBuilder(hal.NewSimFactory(32)).Build(p)
	if !errors.Is(err, errcode.MissingStepLine) {
		t.Fatalf("err=%v", err)
	}
}

func TestBuildOptionalLinesAbsent(t *testing.T) {
	p := types.BoardProfile{
		Name:  "bare",
		Motor: types.MotorWiring{Step: 1, Dir: -1, Sleep: -1, Reset: -1},
	}
	rig, err := simBuilder(hal.NewSimFactory(8)).Build(p)
	if err != nil {
		t.Fatal(err)
	}
	if rig.Motor.HasDirection() {
		t.Fatal("no direction line expected")
	}
	if got := rig.Motor.SetResolution(8); got != 8 {
		t.Fatalf("no-op resolution should echo, got %d", got)
	}
}

type i2cs map[string]drivers.I2C

func (m i2cs) ByID(id string) (drivers.I2C, bool) { b, ok := m[id]; return b, ok }

type recI2C struct{ last byte }

func (r *recI2C) Tx(addr uint16, w, _ []byte) error {
	if len(w) > 0 {
		r.last = w[0]
	}
	return nil
}

func TestBuildExpanderProfile(t *testing.T) {
	p, err := Profile("pico_i2c")
	if err != nil {
		t.Fatal(err)
	}
	bus := &recI2C{}
	b := simBuilder(hal.NewSimFactory(28))
	b.I2C = i2cs{"i2c0": bus}
	rig, err := b.Build(p)
	if err != nil {
		t.Fatal(err)
	}
	if rig.Expander == nil {
		t.Fatal("expander not built")
	}
	rig.Motor.SetResolution(8)
	if bus.last&0x07 != 0b011 {
		t.Fatalf("expander bits %03b, want M0=1 M1=1 M2=0", bus.last&0x07)
	}

	b.I2C = i2cs{}
	if _, err := b.Build(p); !errors.Is(err, errcode.UnknownBus) {
		t.Fatalf("err=%v, want unknown_bus", err)
	}
}

func TestProfiles(t *testing.T) {
	names := Names()
	want := []string{"esp32", "pico", "pico_i2c", "sim"}
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%v", names)
		}
	}
	if _, err := Profile("uno"); !errors.Is(err, errcode.UnknownBoard) {
		t.Fatalf("err=%v", err)
	}
	a, _ := Profile("pico")
	a.Motor.Microstep[0] = 99
	b, _ := Profile("pico")
	if b.Motor.Microstep[0] != 12 {
		t.Fatal("Profile must return a copy")
	}
}
