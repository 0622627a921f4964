//go:build !tinygo

package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stepdrive-go/errcode"
	"stepdrive-go/services/config"
)

func simSession(t *testing.T) *session {
	t.Helper()
	s, err := open(context.Background(), config.Env{Board: "sim", Name: "stepper", Chip: "gpiochip0"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.close)
	return s
}

func TestSimSessionRunsCommands(t *testing.T) {
	s := simSession(t)
	if s.mode != "sim" {
		t.Fatalf("mode=%q", s.mode)
	}
	ctx := context.Background()
	if got := s.run(ctx, "move 20 1 2000"); got != "ok" {
		t.Fatalf("move: %q", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := s.run(ctx, "progress")
		if got == "ok 20" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("progress stuck at %q", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.run(ctx, "spin"); got != "err "+string(errcode.UnknownCommand) {
		t.Fatalf("spin: %q", got)
	}
}

func TestPressDrivesSimSwitch(t *testing.T) {
	s := simSession(t)
	names := s.switchNames()
	if len(names) == 0 {
		t.Fatal("sim board has no switches")
	}
	sw, _ := s.rig.Switch(names[0])
	if sw.Active() {
		t.Fatal("switch active before press")
	}
	if err := s.press(names[0], true); err != nil {
		t.Fatal(err)
	}
	if !sw.Active() {
		t.Fatal("switch not active after press")
	}
	if err := s.press(names[0], false); err != nil || sw.Active() {
		t.Fatalf("release: err=%v active=%v", err, sw.Active())
	}
	if err := s.press("nope", true); errcode.Of(err) != errcode.UnknownPin {
		t.Fatalf("err=%v", err)
	}
}

func TestJoinArgs(t *testing.T) {
	if got := joinArgs("move", []string{"10", "16"}); got != "move 10 16" {
		t.Fatal(got)
	}
	if got := joinArgs("stop", nil); strings.TrimSpace(got) != "stop" {
		t.Fatal(got)
	}
	if !errors.Is(errInvalid, errcode.InvalidParams) {
		t.Fatal("errInvalid")
	}
}

func TestHeartbeatFollowsEnvInterval(t *testing.T) {
	s, err := open(context.Background(), config.Env{Board: "sim", Name: "stepper", HeartbeatMs: 20})
	if err != nil {
		t.Fatal(err)
	}
	defer s.close()

	lines := make(chan string, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !s.startHeartbeat(ctx, func(l string) {
		select {
		case lines <- l:
		default:
		}
	}) {
		t.Fatal("local session has a bus")
	}

	var got []string
	deadline := time.After(500 * time.Millisecond)
	for len(got) < 3 {
		select {
		case l := <-lines:
			if strings.Contains(l, "heartbeat stepper=") {
				got = append(got, l)
			}
		case <-deadline:
			t.Fatalf("only %d heartbeat lines in 500 ms at 20 ms: %v", len(got), got)
		}
	}
}
