// Package heartbeat prints a periodic liveness line carrying the latest
// motor state, so a serial log shows the board is alive and what it is doing.
package heartbeat

import (
	"context"
	"strconv"
	"time"

	"stepdrive-go/bus"
	"stepdrive-go/services/motor"
	"stepdrive-go/types"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

type Service struct {
	// Interval between lines. Default 1 s; config/heartbeat overrides it.
	Interval time.Duration
	// Out receives each line. Default println.
	Out func(string)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	stSub := conn.Subscribe(motor.StateTopic(bus.SingleWild))
	defer conn.Unsubscribe(stSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	last := map[string]types.MotorState{}
	for {
		select {
		case <-ctx.Done():
			s.Out("Info: heartbeat service stopping")
			return
		case m := <-stSub.Channel():
			if st, ok := m.Payload.(types.MotorState); ok {
				last[st.Name] = st
			}
		case t := <-tick.C:
			s.Out(line(t, last))
		case msg := <-cfgSub.Channel():
			if iv, ok := interval(msg.Payload); ok {
				tick.Reset(iv)
				s.Out("Info: heartbeat interval set to " + iv.String())
			}
		}
	}
}

func line(t time.Time, states map[string]types.MotorState) string {
	l := "Info: " + t.Format("15:04:05") + " heartbeat"
	for name, st := range states {
		l += " " + name + "=" + st.Mode + "@" + strconv.FormatInt(st.Position, 10)
		if st.Fault != "" {
			l += "!" + st.Fault
		}
	}
	return l
}

// interval accepts a HeartbeatConfig or its decoded JSON form.
func interval(p any) (time.Duration, bool) {
	var ms float64
	switch v := p.(type) {
	case types.HeartbeatConfig:
		ms = float64(v.IntervalMs)
	case map[string]any:
		f, ok := v["interval_ms"].(float64)
		if !ok {
			return 0, false
		}
		ms = f
	default:
		return 0, false
	}
	if ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	if s.Out == nil {
		s.Out = func(l string) { println(l) }
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
