//go:build !tinygo

package main

import (
	"context"
	"strings"

	"stepdrive-go/board"
	"stepdrive-go/bus"
	"stepdrive-go/errcode"
	"stepdrive-go/hal"
	"stepdrive-go/host/link"
	"stepdrive-go/services/config"
	"stepdrive-go/services/console"
	"stepdrive-go/services/heartbeat"
	"stepdrive-go/services/motor"
	"stepdrive-go/types"
)

const simPins = 64

var errInvalid = errcode.InvalidParams

// session is where shell commands go: a local motor service or a remote
// board over a serial link.
type session struct {
	mode  string
	run   func(ctx context.Context, line string) string
	sim   *hal.SimFactory // sim mode only
	rig   *board.Rig      // local modes only
	bus   *bus.Bus        // local modes only
	close func()
}

func open(ctx context.Context, e config.Env) (*session, error) {
	if e.Port != "" {
		return openRemote(e)
	}
	p, err := config.Load(e)
	if err != nil {
		return nil, err
	}
	var (
		b     = board.Builder{}
		s     = &session{mode: "gpiochip"}
		chips *hal.ChipFactory
	)
	if p.Name == "sim" {
		s.mode = "sim"
		s.sim = hal.NewSimFactory(simPins)
		b.Pins = s.sim
	} else {
		chips = hal.NewChipFactory(e.Chip)
		b.Pins = chips
	}
	rig, err := b.Build(p)
	if err != nil {
		if chips != nil {
			_ = chips.Close()
		}
		return nil, err
	}
	s.rig = rig

	ctx, cancel := context.WithCancel(ctx)
	bs := bus.NewBus(8)
	s.bus = bs
	svc := motor.New(bs.NewConnection("motor"), rig, motor.Config{Name: e.Name})
	_ = svc.Start(ctx)
	cfgConn := bs.NewConnection("config")
	config.Publish(cfgConn, p)
	if e.HeartbeatMs > 0 {
		config.PublishHeartbeat(cfgConn, types.HeartbeatConfig{IntervalMs: e.HeartbeatMs})
	}
	con := console.New(bs.NewConnection("shell"), console.Config{Motor: svc.Name()})

	s.run = con.Exec
	s.close = func() {
		cancel()
		rig.Close()
		if chips != nil {
			_ = chips.Close()
		}
	}
	return s, nil
}

func openRemote(e config.Env) (*session, error) {
	c, err := link.Open(e.Port, e.Baud)
	if err != nil {
		return nil, err
	}
	return &session{
		mode: "remote " + e.Port,
		run: func(ctx context.Context, line string) string {
			v, err := c.DoContext(ctx, line)
			if err != nil {
				return "err " + string(errcode.Of(err))
			}
			if v == "" {
				return "ok"
			}
			return "ok " + v
		},
		close: func() { _ = c.Close() },
	}, nil
}

// press drives a simulated switch to its active level, or back when down is false.
func (s *session) press(name string, down bool) error {
	if s.sim == nil {
		return errcode.Unsupported
	}
	sw, ok := s.rig.Switch(name)
	if !ok {
		return &errcode.E{C: errcode.UnknownPin, Op: "press", Msg: name}
	}
	pin := s.sim.Pin(sw.Number())
	if pin == nil {
		return errcode.UnknownPin
	}
	level := !down
	if sw.ActiveHigh() {
		level = down
	}
	pin.Drive(level)
	return nil
}

// startHeartbeat prints heartbeat lines through out, at the interval retained
// on config/heartbeat. Remote sessions have no local bus.
func (s *session) startHeartbeat(ctx context.Context, out func(string)) bool {
	if s.bus == nil {
		return false
	}
	_ = (&heartbeat.Service{Out: out}).Start(ctx, s.bus.NewConnection("heartbeat"))
	return true
}

func (s *session) switchNames() []string {
	if s.rig == nil {
		return nil
	}
	n := make([]string, len(s.rig.Switches))
	for i, sw := range s.rig.Switches {
		n[i] = sw.Name
	}
	return n
}

func joinArgs(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
