// Package console is a line-oriented text front end to the motor service.
// Each line is one command; the answer is "ok[ value]" or "err <code>".
//
//	move 800 16 400   -> ok
//	progress          -> ok 312
//	res 3             -> ok 1
//	spin              -> err unknown_command
package console

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"stepdrive-go/bus"
	"stepdrive-go/errcode"
	"stepdrive-go/services/motor"
	"stepdrive-go/types"

	"github.com/google/shlex"
)

const (
	DefaultMicrosteps = 1
	DefaultFreqHz     = 200
	maxLine           = 128
)

type Config struct {
	// Motor is the motor service name. Default "stepper".
	Motor string
	// Timeout per command. Ramp moves wait for completion, so keep it generous.
	// Default 2 minutes.
	Timeout time.Duration
}

type Console struct {
	conn    *bus.Connection
	motor   string
	timeout time.Duration
}

func New(conn *bus.Connection, cfg Config) *Console {
	c := &Console{conn: conn, motor: cfg.Motor, timeout: cfg.Timeout}
	if c.motor == "" {
		c.motor = "stepper"
	}
	if c.timeout <= 0 {
		c.timeout = 2 * time.Minute
	}
	return c
}

// Exec runs one command line and returns the answer without a newline.
// Blank lines return "".
func (c *Console) Exec(ctx context.Context, line string) string {
	args, err := shlex.Split(line)
	if err != nil {
		return "err " + string(errcode.InvalidParams)
	}
	if len(args) == 0 {
		return ""
	}
	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		return "err " + string(errcode.UnknownCommand)
	}
	if cmd.verb == "" {
		return "ok " + helpText()
	}
	payload, err := cmd.parse(args[1:])
	if err != nil {
		return "err " + string(errcode.Of(err))
	}
	return c.request(ctx, cmd.verb, payload)
}

func (c *Console) request(ctx context.Context, verb string, payload any) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(motor.ControlTopic(c.motor, verb), payload, false))
	if err != nil {
		return "err " + string(errcode.Timeout)
	}
	r, ok := m.Payload.(types.Reply)
	if !ok {
		return "err " + string(errcode.InvalidPayload)
	}
	if !r.OK {
		return "err " + r.Error
	}
	if s := format(r.Value); s != "" {
		return "ok " + s
	}
	return "ok"
}

// Serve answers commands read from rw until EOF or ctx ends. Lines end in
// CR, LF or both; overlong lines are rejected.
func (c *Console) Serve(ctx context.Context, rw io.ReadWriter) error {
	buf := make([]byte, 64)
	line := make([]byte, 0, maxLine)
	overflow := false
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := rw.Read(buf)
		for _, b := range buf[:n] {
			if b != '\r' && b != '\n' {
				if len(line) < maxLine {
					line = append(line, b)
				} else {
					overflow = true
				}
				continue
			}
			if overflow {
				overflow = false
				line = line[:0]
				if _, werr := io.WriteString(rw, "err "+string(errcode.InvalidParams)+"\n"); werr != nil {
					return werr
				}
				continue
			}
			if len(line) == 0 {
				continue
			}
			out := c.Exec(ctx, string(line))
			line = line[:0]
			if _, werr := io.WriteString(rw, out+"\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case types.RampReport:
		s := "completed=" + strconv.FormatInt(x.Completed, 10) + " recovered=" + strconv.FormatBool(x.Recovered)
		if x.Cause != "" {
			s += " cause=" + strconv.Quote(x.Cause)
		}
		return s
	case motor.JogState:
		return "speed=" + strconv.Itoa(int(x.Speed)) + " dir=" + strconv.Itoa(int(x.Dir))
	case types.MotorState:
		s := "mode=" + x.Mode +
			" pos=" + strconv.FormatInt(x.Position, 10) +
			" target=" + strconv.FormatInt(x.Target, 10) +
			" progress=" + strconv.FormatInt(x.Progress, 10) +
			" res=" + strconv.Itoa(x.Resolution) +
			" active=" + strconv.FormatBool(x.Active) +
			" enabled=" + strconv.FormatBool(x.Enabled) +
			" busy=" + strconv.FormatBool(x.Busy)
		if x.Fault != "" {
			s += " fault=" + x.Fault
		}
		return s
	}
	return "?"
}
