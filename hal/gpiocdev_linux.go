//go:build linux && !tinygo

package hal

import (
	"sync"

	"stepdrive-go/errcode"

	"github.com/warthog618/go-gpiocdev"
)

// ChipFactory hands out lines of one Linux GPIO character device
// ("gpiochip0"). Lines are requested lazily on first configuration.
type ChipFactory struct {
	chip string

	mu    sync.Mutex
	lines map[int]*CdevPin
}

func NewChipFactory(chip string) *ChipFactory {
	if chip == "" {
		chip = "gpiochip0"
	}
	return &ChipFactory{chip: chip, lines: map[int]*CdevPin{}}
}

func (f *ChipFactory) ByNumber(n int) (GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.lines[n]
	if !ok {
		p = &CdevPin{chip: f.chip, offset: n}
		f.lines[n] = p
	}
	return p, true
}

// Close releases every requested line.
func (f *ChipFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for _, p := range f.lines {
		if err := p.release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CdevPin is one line offset on a chip.
type CdevPin struct {
	chip   string
	offset int

	mu     sync.Mutex
	line   *gpiocdev.Line
	output bool
	pull   Pull
	level  bool
}

func (p *CdevPin) Number() int { return p.offset }

func biasOption(pull Pull) gpiocdev.LineReqOption {
	switch pull {
	case PullUp:
		return gpiocdev.WithPullUp
	case PullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}

func (p *CdevPin) request(opts ...gpiocdev.LineReqOption) error {
	if p.line != nil {
		_ = p.line.Close()
		p.line = nil
	}
	l, err := gpiocdev.RequestLine(p.chip, p.offset, opts...)
	if err != nil {
		return errcode.Wrap(errcode.Error, "gpiocdev.request", err)
	}
	p.line = l
	return nil
}

func (p *CdevPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output, p.level = true, initial
	return p.request(gpiocdev.AsOutput(btoi(initial)))
}

func (p *CdevPin) ConfigureInput(pull Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output, p.pull = false, pull
	return p.request(gpiocdev.AsInput, biasOption(pull))
}

func (p *CdevPin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil || !p.output {
		return
	}
	if err := p.line.SetValue(btoi(level)); err == nil {
		p.level = level
	}
}

func (p *CdevPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return false
	}
	if p.output {
		return p.level
	}
	v, err := p.line.Value()
	return err == nil && v != 0
}

// SetIRQ re-requests the line with edge detection. The kernel delivers
// events on a gpiocdev goroutine, which plays the role of interrupt context.
func (p *CdevPin) SetIRQ(edge Edge, handler func()) error {
	var eo gpiocdev.LineReqOption
	switch edge {
	case EdgeRising:
		eo = gpiocdev.WithRisingEdge
	case EdgeFalling:
		eo = gpiocdev.WithFallingEdge
	case EdgeBoth:
		eo = gpiocdev.WithBothEdges
	default:
		return p.ClearIRQ()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output {
		return errcode.Wrap(errcode.Unsupported, "gpiocdev.SetIRQ", nil)
	}
	return p.request(gpiocdev.AsInput, biasOption(p.pull), eo,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { handler() }))
}

func (p *CdevPin) ClearIRQ() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output || p.line == nil {
		return nil
	}
	return p.request(gpiocdev.AsInput, biasOption(p.pull))
}

func (p *CdevPin) release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return nil
	}
	err := p.line.Close()
	p.line = nil
	return err
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
