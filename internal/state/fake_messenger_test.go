// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package state_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/framekit/framekit/internal/transport"
)

// sentEvent records one outbound Send.
type sentEvent struct {
	event string
	data  any
}

// fakeMessenger is a synchronous in-memory Messenger: emit delivers to
// handlers on the caller's goroutine, mirroring the single-dispatch model
// of the real conn.
type fakeMessenger struct {
	sent     []sentEvent
	handlers map[string][]transport.Handler
	fetched  map[string][]transport.Handler
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		handlers: make(map[string][]transport.Handler),
		fetched:  make(map[string][]transport.Handler),
	}
}

func (f *fakeMessenger) Connect(context.Context) error { return nil }
func (f *fakeMessenger) Close() error                  { return nil }

func (f *fakeMessenger) Send(event string, data any) error {
	f.sent = append(f.sent, sentEvent{event: event, data: data})
	return nil
}

func (f *fakeMessenger) On(event string, h transport.Handler) func() {
	f.handlers[event] = append(f.handlers[event], h)
	return func() {}
}

func (f *fakeMessenger) Fetch(_ context.Context, event string, h transport.Handler) error {
	f.fetched[event] = append(f.fetched[event], h)
	return nil
}

// emit delivers an inbound host event to every registered handler.
func (f *fakeMessenger) emit(t *testing.T, event string, payload any) {
	t.Helper()
	msg := f.message(t, event, payload)
	for _, h := range f.handlers[event] {
		h(msg)
	}
}

// reply answers outstanding fetches for an event, one-shot.
func (f *fakeMessenger) reply(t *testing.T, event string, payload any) {
	t.Helper()
	msg := f.message(t, event, payload)
	pending := f.fetched[event]
	f.fetched[event] = nil
	for _, h := range pending {
		h(msg)
	}
}

func (f *fakeMessenger) message(t *testing.T, event string, payload any) transport.Message {
	t.Helper()
	msg := transport.Message{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Data = data
	}
	return msg
}

// rawEmit delivers a pre-encoded payload, for malformed-input tests.
func (f *fakeMessenger) rawEmit(event string, raw []byte) {
	msg := transport.Message{Event: event, Data: raw}
	for _, h := range f.handlers[event] {
		h(msg)
	}
}

// sentEvents returns the names of all outbound events in order.
func (f *fakeMessenger) sentEvents() []string {
	names := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		names = append(names, s.event)
	}
	return names
}
