package motor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"stepdrive-go/board"
	"stepdrive-go/bus"
	"stepdrive-go/drivers/drv8825"
	"stepdrive-go/hal"
	"stepdrive-go/types"
)

type fixture struct {
	pins   *hal.SimFactory
	rig    *board.Rig
	client *bus.Connection
	clock  atomic.Int64 // ns offset added to the switch clock
}

func start(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{pins: hal.NewSimFactory(32)}
	base := time.Now()
	p, err := board.Profile("sim")
	if err != nil {
		t.Fatal(err)
	}
	f.rig, err = board.Builder{
		Pins:   f.pins,
		Sleep:  func(time.Duration) {},
		Notice: func(string) {},
		Now:    func() time.Time { return base.Add(time.Duration(f.clock.Load())) },
	}.Build(p)
	if err != nil {
		t.Fatal(err)
	}

	b := bus.NewBus(16)
	f.client = b.NewConnection("test")
	svc := New(b.NewConnection("motor"), f.rig, Config{
		SwitchPoll: 2 * time.Millisecond,
		Jog:        JogConfig{RampTick: time.Millisecond, MaxHz: 2000, MinHz: 400, StepHz: 400},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { svc.Run(ctx); close(done) }()
	t.Cleanup(func() { cancel(); <-done })

	// Wait for the service to publish its first state, i.e. to be subscribed.
	st := f.client.Subscribe(StateTopic("stepper"))
	select {
	case <-st.Channel():
	case <-time.After(time.Second):
		t.Fatal("service did not start")
	}
	f.client.Unsubscribe(st)
	return f
}

func (f *fixture) do(t *testing.T, verb string, payload any) types.Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	m, err := f.client.RequestWait(ctx, f.client.NewMessage(ControlTopic("stepper", verb), payload, false))
	if err != nil {
		t.Fatalf("%s: %v", verb, err)
	}
	r, ok := m.Payload.(types.Reply)
	if !ok {
		t.Fatalf("%s: reply %#v", verb, m.Payload)
	}
	return r
}

// press pulses a switch well outside its debounce window.
func (f *fixture) press(name string) {
	f.clock.Add(int64(time.Second))
	sw, _ := f.rig.Switch(name)
	f.pins.Pin(sw.Number()).Pulse()
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestMoveCommand(t *testing.T) {
	f := start(t)
	if r := f.do(t, VerbMove, types.MoveSteps{Steps: 100, Microsteps: 16, FreqHz: 5000}); !r.OK {
		t.Fatalf("reply %+v", r)
	}
	eventually(t, "move to finish", func() bool { return f.rig.Motor.Position() == 100 && !f.rig.Motor.Active() })
	if r := f.do(t, VerbProgress, nil); r.Value != int64(100) {
		t.Fatalf("progress reply %+v", r)
	}
	if f.rig.Motor.Resolution() != 16 {
		t.Fatalf("resolution=%d", f.rig.Motor.Resolution())
	}
}

func TestJSONStylePayload(t *testing.T) {
	f := start(t)
	r := f.do(t, VerbMove, map[string]any{"steps": -5, "microsteps": 1, "freq_hz": 2000})
	if !r.OK {
		t.Fatalf("reply %+v", r)
	}
	eventually(t, "move", func() bool { return f.rig.Motor.Position() == -5 })
}

func TestErrorReplies(t *testing.T) {
	f := start(t)
	if r := f.do(t, "spin", nil); r.OK || r.Error != "unknown_command" {
		t.Fatalf("reply %+v", r)
	}
	if r := f.do(t, VerbMove, "not json"); r.OK || r.Error != "invalid_payload" {
		t.Fatalf("reply %+v", r)
	}
	if r := f.do(t, VerbMove, types.MoveSteps{Steps: 10, Microsteps: 1}); r.OK || r.Error != "invalid_params" {
		t.Fatalf("zero frequency: %+v", r)
	}
	if r := f.do(t, VerbJog, types.Jog{Action: "wiggle"}); r.OK || r.Error != "invalid_params" {
		t.Fatalf("reply %+v", r)
	}
}

func TestResolutionAndStatus(t *testing.T) {
	f := start(t)
	if r := f.do(t, VerbResolution, types.Resolution{Divisor: 5}); r.Value != 1 {
		t.Fatalf("reply %+v", r)
	}
	if r := f.do(t, VerbResolution, types.Resolution{Divisor: 32}); r.Value != 32 {
		t.Fatalf("reply %+v", r)
	}
	r := f.do(t, VerbStatus, nil)
	st, ok := r.Value.(types.MotorState)
	if !ok || st.Resolution != 32 || st.Name != "stepper" || !st.Enabled {
		t.Fatalf("status %+v", r.Value)
	}
	f.do(t, VerbDisable, nil)
	if st := f.do(t, VerbStatus, nil).Value.(types.MotorState); st.Enabled {
		t.Fatal("disable not reflected")
	}
	if f.pins.Pin(6).Get() {
		t.Fatal("sleep line should be low after disable")
	}
	f.do(t, VerbEnable, nil)
	if !f.pins.Pin(6).Get() {
		t.Fatal("sleep line should be high after enable")
	}
}

func TestLimitStopsMotion(t *testing.T) {
	f := start(t)
	ev := f.client.Subscribe(SwitchTopic("low"))
	if r := f.do(t, VerbRun, types.FreeRun{FreqHz: -2000, Microsteps: 1}); !r.OK {
		t.Fatalf("reply %+v", r)
	}
	eventually(t, "free-run", func() bool { return f.rig.Motor.Position() < -5 })

	f.press("low")
	select {
	case m := <-ev.Channel():
		if e := m.Payload.(types.SwitchEvent); e.Name != "low" || e.Role != types.RoleLimitLow {
			t.Fatalf("event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no switch event")
	}
	eventually(t, "limit stop", func() bool { return !f.rig.Motor.Active() })
	if f.rig.Motor.Mode() != drv8825.Idle {
		t.Fatalf("mode=%v", f.rig.Motor.Mode())
	}
}

func TestLimitIgnoresOtherDirection(t *testing.T) {
	f := start(t)
	f.do(t, VerbRun, types.FreeRun{FreqHz: 2000, Microsteps: 1})
	f.press("low")
	time.Sleep(20 * time.Millisecond)
	if !f.rig.Motor.Active() {
		t.Fatal("low limit must not stop positive motion")
	}
	f.do(t, VerbStop, nil)
	if f.rig.Motor.Active() {
		t.Fatal("stop")
	}
}

func TestGuardRefusesMoveIntoPressedLimit(t *testing.T) {
	f := start(t)
	sw, _ := f.rig.Switch("high")
	f.pins.Pin(sw.Number()).Drive(false) // held
	if r := f.do(t, VerbMove, types.MoveSteps{Steps: 10, Microsteps: 1, FreqHz: 1000}); r.OK || r.Error != "limit_active" {
		t.Fatalf("reply %+v", r)
	}
	if r := f.do(t, VerbMove, types.MoveSteps{Steps: -10, Microsteps: 1, FreqHz: 1000}); !r.OK {
		t.Fatalf("reply %+v", r)
	}
}

func TestRampCommand(t *testing.T) {
	f := start(t)
	r := f.do(t, VerbRamp, types.RampMove{Steps: 810, Microsteps: 16, SpeedHz: 8000})
	if !r.OK {
		t.Fatalf("reply %+v", r)
	}
	rep := r.Value.(types.RampReport)
	if rep.Completed != 810 || rep.Recovered {
		t.Fatalf("report %+v", rep)
	}
	if got := f.pins.Pin(1).Rising(); got != 810 {
		t.Fatalf("pulses=%d", got)
	}
}

func TestStopCancelsRamp(t *testing.T) {
	f := start(t)
	req := f.client.NewMessage(ControlTopic("stepper", VerbRamp), types.RampMove{Steps: 100000, Microsteps: 1, SpeedHz: 1000}, false)
	replies := f.client.Request(req)
	defer f.client.Unsubscribe(replies)

	eventually(t, "ramp running", func() bool { return f.rig.Motor.Active() })
	if r := f.do(t, VerbStop, nil); !r.OK {
		t.Fatalf("stop %+v", r)
	}
	select {
	case m := <-replies.Channel():
		if r := m.Payload.(types.Reply); r.OK || r.Error != "cancelled" {
			t.Fatalf("ramp reply %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("ramp never answered")
	}
	if f.rig.Motor.Active() {
		t.Fatal("motor still running")
	}
}

func TestJog(t *testing.T) {
	f := start(t)

	// Idle speed_up nudges forward.
	f.do(t, VerbJog, types.Jog{Action: types.JogSpeedUp})
	eventually(t, "nudge", func() bool { return f.rig.Motor.Position() == 40 })

	r := f.do(t, VerbJog, types.Jog{Action: types.JogHoldCW})
	if js := r.Value.(JogState); js.Dir != 1 || js.Speed != 2000 {
		t.Fatalf("jog %+v", js)
	}
	eventually(t, "ramp up", func() bool { return f.rig.Motor.Mode() == drv8825.RunningForward })

	// Reversing stops first, then ramps the other way.
	f.do(t, VerbJog, types.Jog{Action: types.JogHoldCCW})
	eventually(t, "reverse", func() bool { return f.rig.Motor.Mode() == drv8825.RunningReverse })

	r = f.do(t, VerbJog, types.Jog{Action: types.JogSpeedDown})
	if js := r.Value.(JogState); js.Speed != 1600 || js.Dir != -1 {
		t.Fatalf("jog %+v", js)
	}

	f.do(t, VerbJog, types.Jog{Action: types.JogStop})
	eventually(t, "ramp down", func() bool { return !f.rig.Motor.Active() })
}
