package hal

import "sync"

// SimPin is an in-memory line. Outputs record every written level; inputs
// can be driven from the outside with Drive, which dispatches the IRQ
// handler on a matching edge the way a pin controller would.
type SimPin struct {
	mu      sync.Mutex
	n       int
	output  bool
	pull    Pull
	level   bool
	writes  []bool
	edge    Edge
	handler func()
}

func NewSimPin(n int) *SimPin { return &SimPin{n: n} }

func (p *SimPin) Number() int { return p.n }

func (p *SimPin) ConfigureInput(pull Pull) error {
	p.mu.Lock()
	p.output = false
	p.pull = pull
	// Pulls define the idle level of an unconnected input.
	p.level = pull == PullUp
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.output = true
	p.level = initial
	p.writes = append(p.writes, initial)
	p.mu.Unlock()
	return nil
}

func (p *SimPin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.writes = append(p.writes, level)
	p.mu.Unlock()
}

func (p *SimPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *SimPin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.edge, p.handler = edge, handler
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ClearIRQ() error {
	p.mu.Lock()
	p.edge, p.handler = EdgeNone, nil
	p.mu.Unlock()
	return nil
}

// Drive sets the externally applied level and fires the IRQ on a matching edge.
// The handler runs on the caller's goroutine, outside the pin lock.
func (p *SimPin) Drive(level bool) {
	p.mu.Lock()
	prev := p.level
	p.level = level
	h := p.handler
	fire := h != nil && p.edge.Matches(prev, level)
	p.mu.Unlock()
	if fire {
		h()
	}
}

// Pulse drives the line away from its idle level and back, as a button press.
func (p *SimPin) Pulse() {
	idle := p.Get()
	p.Drive(!idle)
	p.Drive(idle)
}

// Writes returns a copy of every level written while configured as output.
func (p *SimPin) Writes() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.writes...)
}

// Rising counts low->high transitions among the recorded writes.
func (p *SimPin) Rising() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := 1; i < len(p.writes); i++ {
		if !p.writes[i-1] && p.writes[i] {
			n++
		}
	}
	return n
}

func (p *SimPin) IsOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

// SimFactory hands out SimPins in [0, max], creating each on first use.
type SimFactory struct {
	mu   sync.Mutex
	max  int
	pins map[int]*SimPin
}

func NewSimFactory(max int) *SimFactory {
	return &SimFactory{max: max, pins: map[int]*SimPin{}}
}

func (f *SimFactory) ByNumber(n int) (GPIOPin, bool) {
	p := f.Pin(n)
	if p == nil {
		return nil, false
	}
	return p, true
}

// Pin returns the concrete SimPin for n, or nil when out of range.
func (f *SimFactory) Pin(n int) *SimPin {
	if n < 0 || n > f.max {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = NewSimPin(n)
		f.pins[n] = p
	}
	return p
}
