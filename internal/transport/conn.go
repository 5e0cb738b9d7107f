// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// maxLineBytes bounds a single envelope; a host that sends more is broken.
const maxLineBytes = 1 << 20

// registration pairs a handler with an ID for ordered removal.
type registration struct {
	id   int
	h    Handler
	once bool
}

// Conn is a Messenger over newline-delimited JSON envelopes on a duplex
// stream. Inbound messages are dispatched from a single read loop
// goroutine, so handlers for a given Conn never run concurrently with
// each other.
type Conn struct {
	rw     io.ReadWriteCloser
	logger *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	handlers  map[string][]registration
	nextID    int
	connected bool
	closed    bool
	done      chan struct{}
}

// NewConn wraps a duplex stream. The stream is not read until Connect.
func NewConn(rw io.ReadWriteCloser, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		rw:       rw,
		logger:   logger,
		handlers: make(map[string][]registration),
		done:     make(chan struct{}),
	}
}

// Connect starts the read loop.
func (c *Conn) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return oops.Code("TRANSPORT_CLOSED").Errorf("connect on closed transport")
	}
	if c.connected {
		return oops.Code("TRANSPORT_CONNECTED").Errorf("transport already connected")
	}
	c.connected = true
	go c.readLoop()
	return nil
}

// Send writes one envelope. Safe for concurrent use.
func (c *Conn) Send(event string, data any) error {
	return c.send(Message{Event: event}, data)
}

func (c *Conn) send(msg Message, data any) error {
	if msg.Event == "" {
		return oops.Code("TRANSPORT_EMPTY_EVENT").Errorf("event name cannot be empty")
	}
	msg.ID = ulid.Make()
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return oops.Code("TRANSPORT_ENCODE_FAILED").
				With("event", msg.Event).
				Wrap(err)
		}
		msg.Data = raw
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return oops.Code("TRANSPORT_ENCODE_FAILED").With("event", msg.Event).Wrap(err)
	}
	line = append(line, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.rw.Write(line); err != nil {
		return oops.Code("TRANSPORT_WRITE_FAILED").With("event", msg.Event).Wrap(err)
	}
	return nil
}

// On registers a handler for an event.
func (c *Conn) On(event string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.handlers[event] = append(c.handlers[event], registration{id: id, h: h})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.remove(event, id)
	}
}

// Fetch sends a one-shot request for a named value. The host replies with
// a normal envelope for the same event; the handler fires once on the
// first such reply.
func (c *Conn) Fetch(_ context.Context, event string, h Handler) error {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[event] = append(c.handlers[event], registration{id: id, h: h, once: true})
	c.mu.Unlock()

	if err := c.send(Message{Event: event, Fetch: true}, nil); err != nil {
		c.mu.Lock()
		c.remove(event, id)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Close tears down the stream and stops the read loop.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wasConnected := c.connected
	c.mu.Unlock()

	err := c.rw.Close()
	if wasConnected {
		<-c.done
	}
	if err != nil {
		return oops.Code("TRANSPORT_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// remove deletes one registration. Caller holds c.mu.
func (c *Conn) remove(event string, id int) {
	regs := c.handlers[event]
	for i, r := range regs {
		if r.id == id {
			c.handlers[event] = append(regs[:i], regs[i+1:]...)
			return
		}
	}
}

func (c *Conn) readLoop() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.rw)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			c.logger.Warn("dropping malformed envelope", "error", err)
			continue
		}
		c.dispatch(msg)
	}

	if err := scanner.Err(); err != nil && !isClosedErr(err) {
		c.logger.Warn("transport read loop ended", "error", err)
	}
}

func (c *Conn) dispatch(msg Message) {
	c.mu.Lock()
	regs := c.handlers[msg.Event]
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	kept := regs[:0]
	for _, r := range regs {
		if !r.once {
			kept = append(kept, r)
		}
	}
	c.handlers[msg.Event] = kept
	c.mu.Unlock()

	if len(snapshot) == 0 {
		c.logger.Debug("no handler for inbound event", "event", msg.Event)
		return
	}
	for _, r := range snapshot {
		r.h(msg)
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed)
}

var _ Messenger = (*Conn)(nil)
