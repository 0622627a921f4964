// Package config resolves the runtime configuration of host tools: settings
// from STEPPER_* environment variables and a board profile from a YAML file,
// an embedded YAML profile, or a built-in board profile.
package config

import (
	"os"

	"stepdrive-go/board"
	"stepdrive-go/bus"
	"stepdrive-go/errcode"
	"stepdrive-go/types"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"
)

const configPrefix = "config"

// Env is read from the process environment.
type Env struct {
	Board   string `env:"STEPPER_BOARD" envDefault:"sim"`
	Profile string `env:"STEPPER_PROFILE"` // YAML file, overrides Board
	Port    string `env:"STEPPER_PORT"`    // serial device for remote mode
	Baud    int    `env:"STEPPER_BAUD" envDefault:"115200"`
	Chip    string `env:"STEPPER_CHIP" envDefault:"gpiochip0"`
	Name    string `env:"STEPPER_NAME" envDefault:"stepper"`
	// HeartbeatMs > 0 turns on heartbeat lines in host tools.
	HeartbeatMs int `env:"STEPPER_HEARTBEAT_MS" envDefault:"0"`
}

func FromEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, errcode.Wrap(errcode.InvalidParams, "config.FromEnv", err)
	}
	return e, nil
}

// EmbeddedProfileLookup allows overriding how embedded profiles are resolved.
var EmbeddedProfileLookup = func(name string) ([]byte, bool) {
	b, ok := embeddedProfiles[name]
	return b, ok
}

// ParseProfile decodes and checks a YAML board profile.
func ParseProfile(raw []byte) (types.BoardProfile, error) {
	var p types.BoardProfile
	if err := yaml.UnmarshalStrict(raw, &p); err != nil {
		return p, errcode.Wrap(errcode.InvalidPayload, "config.ParseProfile", err)
	}
	if p.Motor.Step < 0 {
		return p, errcode.Wrap(errcode.MissingStepLine, "config.ParseProfile", nil)
	}
	if n := len(p.Motor.Microstep); n != 0 && n != 3 {
		return p, &errcode.E{C: errcode.InvalidParams, Op: "config.ParseProfile", Msg: "microstep needs 0 or 3 lines"}
	}
	for i := range p.Switches {
		if p.Switches[i].Role == "" {
			p.Switches[i].Role = types.RoleButton
		}
	}
	return p, nil
}

func LoadProfile(path string) (types.BoardProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.BoardProfile{}, errcode.Wrap(errcode.UnknownBoard, "config.LoadProfile", err)
	}
	p, err := ParseProfile(raw)
	if err == nil && p.Name == "" {
		p.Name = path
	}
	return p, err
}

// Load picks the profile file if one is set, then an embedded profile by
// board name, then a built-in one.
func Load(e Env) (types.BoardProfile, error) {
	if e.Profile != "" {
		return LoadProfile(e.Profile)
	}
	if raw, ok := EmbeddedProfileLookup(e.Board); ok {
		return ParseProfile(raw)
	}
	return board.Profile(e.Board)
}

// Publish makes the resolved profile available as retained config/board.
func Publish(conn *bus.Connection, p types.BoardProfile) {
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "board"), p, true))
}

// PublishHeartbeat retains the heartbeat settings on config/heartbeat.
func PublishHeartbeat(conn *bus.Connection, hb types.HeartbeatConfig) {
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "heartbeat"), hb, true))
}
