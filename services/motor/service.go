// Package motor exposes one DRV8825 rig on the bus. The service goroutine is
// the only caller of the device's commands, except while a worker (ramp
// sequence or jog ramp) owns it; any new command cancels and joins the
// worker first, so commands never overlap.
package motor

import (
	"context"
	"errors"
	"time"

	"stepdrive-go/board"
	"stepdrive-go/bus"
	"stepdrive-go/drivers/drv8825"
	"stepdrive-go/errcode"
	"stepdrive-go/services/motion"
	"stepdrive-go/types"
	"stepdrive-go/x/strx"
	"stepdrive-go/x/timex"
)

type Config struct {
	// Name in topics; defaults to the rig's motor name, then "stepper".
	Name string
	// StatePeriod between retained state publications. Default 1 s.
	StatePeriod time.Duration
	// SwitchPoll is how often the debounced switches are polled. Default 10 ms.
	SwitchPoll time.Duration
	Motion     motion.Config
	Jog        JogConfig
}

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
	dir    int64 // direction of travel while the job runs
}

type Service struct {
	conn *bus.Connection
	rig  *board.Rig
	dev  *drv8825.Device
	seq  *motion.Sequencer
	name string
	cfg  Config

	enabled bool
	jog     JogState
	work    *job
}

func New(conn *bus.Connection, rig *board.Rig, cfg Config) *Service {
	cfg.Name = strx.Coalesce(cfg.Name, strx.Coalesce(rig.Profile.Motor.Name, "stepper"))
	if cfg.StatePeriod <= 0 {
		cfg.StatePeriod = time.Second
	}
	if cfg.SwitchPoll <= 0 {
		cfg.SwitchPoll = 10 * time.Millisecond
	}
	cfg.Jog = cfg.Jog.withDefaults()
	return &Service{
		conn:    conn,
		rig:     rig,
		dev:     rig.Motor,
		seq:     motion.New(rig.Motor, cfg.Motion),
		name:    cfg.Name,
		cfg:     cfg,
		enabled: true,
		jog:     JogState{Speed: int32(cfg.Jog.MaxHz)},
	}
}

func (s *Service) Name() string { return s.name }

// Start runs the service on its own goroutine.
func (s *Service) Start(ctx context.Context) error {
	go s.Run(ctx)
	return nil
}

func (s *Service) Run(ctx context.Context) {
	ctrl := s.conn.Subscribe(controlFilter(s.name))
	defer s.conn.Unsubscribe(ctrl)

	poll := time.NewTicker(s.cfg.SwitchPoll)
	defer poll.Stop()
	state := time.NewTicker(s.cfg.StatePeriod)
	defer state.Stop()

	println("Info: motor service", s.name, "running")
	s.publishState()
	for {
		select {
		case <-ctx.Done():
			s.halt()
			s.publishState()
			println("Info: motor service", s.name, "stopping")
			return
		case m, ok := <-ctrl.Channel():
			if !ok {
				return
			}
			s.handle(ctx, m)
			s.publishState()
		case <-poll.C:
			s.pollSwitches()
		case <-state.C:
			s.publishState()
		}
	}
}

// handle dispatches one control message.
func (s *Service) handle(ctx context.Context, m *bus.Message) {
	if len(m.Topic) < 4 {
		return
	}
	verb, _ := m.Topic[3].(string)

	switch verb {
	case VerbProgress:
		s.replyOK(m, s.dev.Progress())
		return
	case VerbStatus:
		s.replyOK(m, s.snapshot())
		return
	}

	// Everything below commands the motor.
	s.cancelWork()

	var (
		err   error
		value any
	)
	switch verb {
	case VerbMove:
		var p types.MoveSteps
		if p, err = decode[types.MoveSteps](m.Payload); err == nil {
			if err = s.guard(p.Steps); err == nil {
				err = s.dev.MoveTo(p.Steps, p.Microsteps, p.FreqHz)
			}
		}
	case VerbTurn:
		var p types.MoveRevs
		if p, err = decode[types.MoveRevs](m.Payload); err == nil {
			if err = s.guard(revDir(p.Revs)); err == nil {
				err = s.dev.MoveRevolutions(p.Revs, p.Microsteps, p.FreqHz)
			}
		}
	case VerbRun:
		var p types.FreeRun
		if p, err = decode[types.FreeRun](m.Payload); err == nil {
			if err = s.guard(int64(p.FreqHz)); err == nil {
				err = s.dev.FreeRun(p.FreqHz, p.Microsteps)
			}
		}
	case VerbRamp:
		var p types.RampMove
		if p, err = decode[types.RampMove](m.Payload); err == nil {
			if err = s.guard(p.Steps); err == nil {
				s.startRamp(ctx, m, p)
				return // the worker replies when the move ends
			}
		}
	case VerbStop:
		s.halt()
	case VerbEnable:
		s.dev.Enable()
		s.enabled = true
	case VerbDisable:
		s.halt()
		s.dev.Disable()
		s.enabled = false
	case VerbReset:
		var p types.ResetReq
		if p, err = decode[types.ResetReq](m.Payload); err == nil {
			s.dev.Reset(p.Active, time.Duration(p.IntervalMs)*time.Millisecond)
		}
	case VerbResolution:
		var p types.Resolution
		if p, err = decode[types.Resolution](m.Payload); err == nil {
			value = s.dev.SetResolution(p.Divisor)
		}
	case VerbJog:
		var p types.Jog
		if p, err = decode[types.Jog](m.Payload); err == nil {
			err = s.jogAction(ctx, p.Action)
			value = s.jog
		}
	default:
		err = errcode.UnknownCommand
	}
	if err != nil {
		println("Warn: motor", s.name, verb, "failed:", err.Error())
		s.replyErr(m, err)
		return
	}
	s.replyOK(m, value)
}

// halt stops everything and forgets jog direction.
func (s *Service) halt() {
	s.cancelWork()
	s.dev.Stop()
	s.jog.Dir = 0
}

// guard refuses motion towards a limit that is currently pressed.
func (s *Service) guard(dir int64) error {
	for _, sw := range s.rig.Switches {
		if limitBlocks(sw.Role, dir) && sw.Active() {
			return &errcode.E{C: errcode.LimitActive, Op: "motor.guard", Msg: sw.Name}
		}
	}
	return nil
}

func revDir(revs float64) int64 {
	switch {
	case revs > 0:
		return 1
	case revs < 0:
		return -1
	}
	return 0
}

func limitBlocks(role types.SwitchRole, dir int64) bool {
	return (role == types.RoleLimitLow && dir < 0) || (role == types.RoleLimitHigh && dir > 0)
}

// movingDir is the sign of current travel, including a worker's.
func (s *Service) movingDir() int64 {
	if s.busy() {
		return s.work.dir
	}
	switch s.dev.Mode() {
	case drv8825.RunningForward:
		return 1
	case drv8825.RunningReverse:
		return -1
	case drv8825.Seeking:
		if t := s.dev.Target(); t > 0 {
			return 1
		} else if t < 0 {
			return -1
		}
	}
	return 0
}

func (s *Service) pollSwitches() {
	for _, sw := range s.rig.Switches {
		if !sw.Poll() {
			continue
		}
		active := sw.Active()
		s.conn.Publish(s.conn.NewMessage(SwitchTopic(sw.Name), types.SwitchEvent{
			Name: sw.Name, Role: sw.Role, Active: active, TS: timex.NowMs(),
		}, false))
		if limitBlocks(sw.Role, s.movingDir()) {
			println("Warn: motor", s.name, "limit", sw.Name, "hit, stopping")
			s.halt()
			s.publishState()
		}
	}
}

// ---- worker ----

func (s *Service) spawn(ctx context.Context, dir int64, fn func(ctx context.Context)) {
	wctx, cancel := context.WithCancel(ctx)
	j := &job{cancel: cancel, done: make(chan struct{}), dir: dir}
	s.work = j
	go func() {
		defer close(j.done)
		fn(wctx)
	}()
}

// cancelWork cancels the running worker and waits for it to return.
func (s *Service) cancelWork() {
	if s.work == nil {
		return
	}
	s.work.cancel()
	<-s.work.done
	s.work = nil
}

func (s *Service) busy() bool {
	if s.work == nil {
		return false
	}
	select {
	case <-s.work.done:
		s.work = nil
		return false
	default:
		return true
	}
}

func (s *Service) startRamp(ctx context.Context, m *bus.Message, p types.RampMove) {
	dir := int64(1)
	if p.Steps < 0 {
		dir = -1
	}
	s.spawn(ctx, dir, func(ctx context.Context) {
		rep, err := s.seq.Move(ctx, p.Steps, p.Microsteps, p.SpeedHz)
		if errors.Is(err, context.Canceled) {
			err = errcode.Cancelled
		}
		if err != nil {
			s.replyErr(m, err)
			return
		}
		out := types.RampReport{Completed: rep.Completed, Recovered: rep.Recovered}
		if rep.Cause != nil {
			out.Cause = rep.Cause.Error()
		}
		s.replyOK(m, out)
	})
}

// ---- publishing ----

func (s *Service) snapshot() types.MotorState {
	st := types.MotorState{
		Name:       s.name,
		Mode:       s.dev.Mode().String(),
		Position:   s.dev.Position(),
		Target:     s.dev.Target(),
		Progress:   s.dev.Progress(),
		Resolution: s.dev.Resolution(),
		Active:     s.dev.Active(),
		Enabled:    s.enabled,
		Busy:       s.busy(),
		JogSpeed:   s.jog.Speed,
		TS:         timex.NowMs(),
	}
	if err := s.dev.Err(); err != nil {
		st.Fault = string(errcode.Of(err))
	}
	return st
}

func (s *Service) publishState() {
	s.conn.Publish(s.conn.NewMessage(StateTopic(s.name), s.snapshot(), true))
}

func (s *Service) replyOK(m *bus.Message, v any) {
	if m.CanReply() {
		s.conn.Reply(m, types.Reply{OK: true, Value: v}, false)
	}
}

func (s *Service) replyErr(m *bus.Message, err error) {
	if m.CanReply() {
		s.conn.Reply(m, types.Reply{OK: false, Error: string(errcode.Of(err))}, false)
	}
}
