// Package link talks to the firmware console over a serial port.
package link

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"stepdrive-go/errcode"

	"github.com/tarm/serial"
)

type Config struct {
	// Timeout for Do. Default 2 minutes, ramp moves answer on completion.
	Timeout time.Duration
}

type Client struct {
	w       io.Writer
	closer  io.Closer
	timeout time.Duration

	mu    sync.Mutex // one command in flight
	lines chan string
	done  chan struct{}
	err   error // set before done closes
}

// Open opens a serial port with a short read timeout so the reader can notice Close.
func Open(port string, baud int) (*Client, error) {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		return nil, errcode.Wrap(errcode.Error, "link.Open", err)
	}
	return New(p, Config{}), nil
}

// New starts reading answers from rw. If rw is an io.Closer, Close closes it.
func New(rw io.ReadWriter, cfg Config) *Client {
	c := &Client{
		w:       rw,
		timeout: cfg.Timeout,
		lines:   make(chan string, 16),
		done:    make(chan struct{}),
	}
	if c.timeout <= 0 {
		c.timeout = 2 * time.Minute
	}
	if cl, ok := rw.(io.Closer); ok {
		c.closer = cl
	}
	go c.readLoop(rw)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	defer close(c.done)
	buf := make([]byte, 128)
	var line []byte
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			switch b {
			case '\r', '\n':
				if len(line) > 0 {
					c.lines <- string(line)
					line = line[:0]
				}
			default:
				line = append(line, b)
			}
		}
		if err != nil {
			c.err = err
			return
		}
	}
}

// Do sends one command and waits for its answer.
func (c *Client) Do(cmd string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.DoContext(ctx, cmd)
}

// DoContext maps "ok [value]" to value and "err <code>" to that errcode.Code.
func (c *Client) DoContext(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop answers nobody waited for.
	for drained := false; !drained; {
		select {
		case <-c.lines:
		default:
			drained = true
		}
	}
	if _, err := io.WriteString(c.w, cmd+"\n"); err != nil {
		return "", errcode.Wrap(errcode.Error, "link.Do", err)
	}
	select {
	case l := <-c.lines:
		return parse(l)
	case <-c.done:
		return "", errcode.Wrap(errcode.Error, "link.Do", c.err)
	case <-ctx.Done():
		return "", errcode.Wrap(errcode.Timeout, "link.Do", ctx.Err())
	}
}

func parse(line string) (string, error) {
	switch {
	case line == "ok":
		return "", nil
	case strings.HasPrefix(line, "ok "):
		return line[3:], nil
	case strings.HasPrefix(line, "err "):
		return "", errcode.Code(strings.TrimSpace(line[4:]))
	}
	return "", &errcode.E{C: errcode.InvalidPayload, Op: "link.Do", Msg: line}
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
