package config

import "stepdrive-go/types"

// DefaultHeartbeat is the firmware's liveness interval.
var DefaultHeartbeat = types.HeartbeatConfig{IntervalMs: 5000}

// Embedded YAML profiles, keyed by board name. Absent lines default to -1.

// Raspberry Pi header wiring, line offsets on gpiochip0.
const profileRPiBench = `
name: rpi_bench
motor:
  name: stepper
  step: 17
  dir: 27
  microstep: [22, 23, 24]
  sleep: 25
  reset: 5
switches:
  - {name: button, pin: 6, role: button}
  - {name: low, pin: 13, role: limit_low}
  - {name: high, pin: 19, role: limit_high}
`

var embeddedProfiles = map[string][]byte{
	"rpi_bench": []byte(profileRPiBench),
}
