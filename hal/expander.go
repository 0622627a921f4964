package hal

import (
	"sync"

	"stepdrive-go/errcode"

	"tinygo.org/x/drivers"
)

// Expander drives a PCF8574-style 8-bit quasi-bidirectional I²C port.
// Each bit is exposed as a GPIOPin; writes go out as a single-byte
// transaction carrying the whole port shadow.
type Expander struct {
	mu     sync.Mutex
	bus    drivers.I2C
	addr   uint16
	shadow uint8
	err    error
}

// DefaultExpanderAddr is the PCF8574 address with A2..A0 tied low.
const DefaultExpanderAddr = 0x20

func NewExpander(bus drivers.I2C, addr uint16) *Expander {
	if addr == 0 {
		addr = DefaultExpanderAddr
	}
	// Power-on state of the part is all bits high.
	return &Expander{bus: bus, addr: addr, shadow: 0xFF}
}

// Pin returns bit n (0..7) as a line.
func (e *Expander) Pin(n int) (GPIOPin, bool) {
	if n < 0 || n > 7 {
		return nil, false
	}
	return &expanderPin{e: e, bit: uint8(n)}, true
}

// ByNumber lets an Expander stand in as a PinFactory.
func (e *Expander) ByNumber(n int) (GPIOPin, bool) { return e.Pin(n) }

// Err returns the last bus error seen by Set, which cannot report one itself.
func (e *Expander) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Expander) write(bit uint8, level bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if level {
		e.shadow |= 1 << bit
	} else {
		e.shadow &^= 1 << bit
	}
	err := e.bus.Tx(e.addr, []byte{e.shadow}, nil)
	if err != nil {
		e.err = errcode.Wrap(errcode.Error, "expander.write", err)
	}
	return err
}

func (e *Expander) read(bit uint8) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	var buf [1]byte
	if err := e.bus.Tx(e.addr, nil, buf[:]); err != nil {
		e.err = errcode.Wrap(errcode.Error, "expander.read", err)
		return e.shadow&(1<<bit) != 0
	}
	return buf[0]&(1<<bit) != 0
}

type expanderPin struct {
	e     *Expander
	bit   uint8
	input bool
}

func (p *expanderPin) Number() int { return int(p.bit) }

// ConfigureInput releases the bit high so the external circuit can pull it.
// The part has no pull-down; PullDown is rejected.
func (p *expanderPin) ConfigureInput(pull Pull) error {
	if pull == PullDown {
		return errcode.Unsupported
	}
	p.input = true
	return p.e.write(p.bit, true)
}

func (p *expanderPin) ConfigureOutput(initial bool) error {
	p.input = false
	return p.e.write(p.bit, initial)
}

func (p *expanderPin) Set(level bool) { _ = p.e.write(p.bit, level) }

func (p *expanderPin) Get() bool {
	if p.input {
		return p.e.read(p.bit)
	}
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	return p.e.shadow&(1<<p.bit) != 0
}
