//go:build !tinygo

// Command stepper-shell is an interactive shell for a stepper rig: a board
// on a serial port (STEPPER_PORT), Linux GPIO lines, or a simulated board.
package main

import (
	"context"
	"os"
	"sort"
	"strings"

	"stepdrive-go/services/config"
	"stepdrive-go/services/console"

	"github.com/abiosoft/ishell/v2"
)

func main() {
	e, err := config.FromEnv()
	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
	ctx := context.Background()
	s, err := open(ctx, e)
	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
	defer s.close()

	shell := ishell.New()
	shell.Println("Stepper shell (" + s.mode + ")")
	shell.ShowPrompt(true)
	if e.HeartbeatMs > 0 {
		s.startHeartbeat(ctx, func(l string) { shell.Println(l) })
	}

	usage := console.Usage()
	names := make([]string, 0, len(usage))
	for n := range usage {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if n == "help" {
			continue // ishell has its own
		}
		name := n
		shell.AddCmd(&ishell.Cmd{
			Name: name,
			Help: usage[name],
			Func: func(c *ishell.Context) {
				c.Println(s.run(ctx, joinArgs(name, c.Args)))
			},
		})
	}

	if s.sim != nil {
		sw := strings.Join(s.switchNames(), "|")
		for _, down := range []bool{true, false} {
			name, down := "press", down
			if !down {
				name = "release"
			}
			shell.AddCmd(&ishell.Cmd{
				Name: name,
				Help: name + " <" + sw + ">",
				Func: func(c *ishell.Context) {
					if len(c.Args) != 1 {
						c.Err(errInvalid)
						return
					}
					if err := s.press(c.Args[0], down); err != nil {
						c.Err(err)
						return
					}
					c.Println("ok")
				},
			})
		}
	}

	shell.Run()
}
