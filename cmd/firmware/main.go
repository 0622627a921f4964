//go:build rp2040 || rp2350

// Command firmware runs one DRV8825 rig on a Pico and answers console
// commands on UART0.
package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	"stepdrive-go/board"
	"stepdrive-go/bus"
	"stepdrive-go/hal"
	"stepdrive-go/services/config"
	"stepdrive-go/services/console"
	"stepdrive-go/services/heartbeat"
	"stepdrive-go/services/motor"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// Set with -ldflags "-X main.profile=pico_i2c".
var profile = "pico"

const baud = 115200

// uartRW adapts uartx to io.ReadWriter.
type uartRW struct {
	ctx context.Context
	u   *uartx.UART
}

func (p uartRW) Read(b []byte) (int, error)  { return p.u.RecvSomeContext(p.ctx, b) }
func (p uartRW) Write(b []byte) (int, error) { return p.u.Write(b) }

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot, profile", profile)
	ctx := context.Background()

	p, err := board.Profile(profile)
	if err != nil {
		halt("profile", err)
	}
	rig, err := board.Builder{Pins: hal.RP2Pins{}, I2C: hal.NewRP2I2C()}.Build(p)
	if err != nil {
		halt("build", err)
	}

	b := bus.NewBus(4)
	svc := motor.New(b.NewConnection("motor"), rig, motor.Config{})
	_ = svc.Start(ctx)
	cfgConn := b.NewConnection("config")
	config.Publish(cfgConn, p)
	config.PublishHeartbeat(cfgConn, config.DefaultHeartbeat)
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	mon := b.NewConnection("monitor").Subscribe(bus.T(motor.TokSwitch, bus.MultiWild))
	go func() {
		for m := range mon.Channel() {
			println("[monitor]", m.Topic.String())
		}
	}()

	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	con := console.New(b.NewConnection("console"), console.Config{Motor: svc.Name()})
	println("[main] console on uart0")
	for {
		if err := con.Serve(ctx, uartRW{ctx: ctx, u: uartx.UART0}); err != nil {
			println("[main] console error:", err.Error())
		}
		printMem()
		time.Sleep(100 * time.Millisecond)
	}
}

func halt(what string, err error) {
	for {
		println("[main]", what, "failed:", err.Error())
		time.Sleep(2 * time.Second)
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
