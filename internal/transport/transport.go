// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

// Package transport defines the message channel between the application
// shell and its host process, plus a newline-delimited JSON implementation.
//
// The shell only depends on the Messenger interface; the host side of the
// boundary may be a WebSocket relay, a pipe to a container process, or an
// in-memory pair in tests. The wire format of Conn is an implementation
// detail, not a contract.
package transport

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
)

// Message is a single event crossing the host boundary.
type Message struct {
	ID    ulid.ULID       `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Fetch bool            `json:"fetch,omitempty"`
}

// Handler consumes an inbound message.
type Handler func(msg Message)

// Messenger connects the application to its host process.
type Messenger interface {
	// Connect establishes the channel. Handlers may be registered before
	// or after Connect; no inbound message is delivered before it.
	Connect(ctx context.Context) error

	// Send emits an event with a JSON-encodable payload. A nil payload
	// sends the event with no data.
	Send(event string, data any) error

	// On registers a handler for an inbound event and returns a func
	// that unregisters it. Multiple handlers per event are invoked in
	// registration order.
	On(event string, h Handler) func()

	// Fetch requests a named value from the host. The handler is invoked
	// at most once, with the host's reply for that event. The reply may
	// arrive at any time after Connect; Fetch does not wait for it.
	Fetch(ctx context.Context, event string, h Handler) error

	// Close tears down the channel. Registered handlers receive no
	// further messages.
	Close() error
}
