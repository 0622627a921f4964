package drv8825

import "strconv"

// msPattern holds the M0, M1, M2 levels for one divisor.
type msPattern [3]bool

var resolutions = map[int]msPattern{
	1:  {false, false, false},
	2:  {true, false, false},
	4:  {false, true, false},
	8:  {true, true, false},
	16: {false, false, true},
	32: {true, false, true},
}

// Supported reports whether div is a divisor the driver can select.
func Supported(div int) bool {
	_, ok := resolutions[div]
	return ok
}

// SetResolution writes the microstep-select pattern for div and returns the
// accepted divisor. Without microstep lines it is a no-op that echoes div.
// An unsupported divisor selects full-step and returns 1.
func (d *Device) SetResolution(div int) int {
	if !d.hasMS {
		return div
	}
	p, ok := resolutions[div]
	if !ok {
		d.notice("drv8825: unsupported microstep divisor " + strconv.Itoa(div) + ", using full step")
		div = 1
	}
	for i, line := range d.ms {
		line.Set(p[i])
	}
	d.resolution.Store(int32(div))
	return div
}
