// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package transport_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/framekit/framekit/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// connectedPair returns two connected conns and closes them at test end.
func connectedPair(t *testing.T) (*transport.Conn, *transport.Conn) {
	t.Helper()

	app, host := transport.Pair(nil)
	require.NoError(t, app.Connect(context.Background()))
	require.NoError(t, host.Connect(context.Background()))
	t.Cleanup(func() {
		_ = app.Close()
		_ = host.Close()
	})
	return app, host
}

func waitFor(t *testing.T, ch <-chan transport.Message) transport.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return transport.Message{}
	}
}

func TestConn_SendDelivers(t *testing.T) {
	app, host := connectedPair(t)

	got := make(chan transport.Message, 1)
	host.On("soundVolume", func(msg transport.Message) { got <- msg })

	require.NoError(t, app.Send("soundVolume", 0.8))

	msg := waitFor(t, got)
	assert.Equal(t, "soundVolume", msg.Event)

	var v float64
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	assert.Equal(t, 0.8, v)
	assert.NotEqual(t, ulid.ULID{}, msg.ID, "envelope must carry an ID")
}

func TestConn_HandlersRunInRegistrationOrder(t *testing.T) {
	app, host := connectedPair(t)

	var order []int
	done := make(chan transport.Message, 1)
	host.On("ping", func(transport.Message) { order = append(order, 1) })
	host.On("ping", func(transport.Message) { order = append(order, 2) })
	host.On("done", func(msg transport.Message) { done <- msg })

	require.NoError(t, app.Send("ping", nil))
	require.NoError(t, app.Send("done", nil))

	waitFor(t, done)
	assert.Equal(t, []int{1, 2}, order)
}

func TestConn_Unsubscribe(t *testing.T) {
	app, host := connectedPair(t)

	calls := 0
	done := make(chan transport.Message, 1)
	off := host.On("ping", func(transport.Message) { calls++ })
	host.On("done", func(msg transport.Message) { done <- msg })

	off()
	require.NoError(t, app.Send("ping", nil))
	require.NoError(t, app.Send("done", nil))

	waitFor(t, done)
	assert.Zero(t, calls)
}

func TestConn_FetchIsOneShot(t *testing.T) {
	app, host := connectedPair(t)

	// Host answers playOptions fetches, twice.
	host.On("playOptions", func(msg transport.Message) {
		require.True(t, msg.Fetch)
		require.NoError(t, host.Send("playOptions", map[string]any{"difficulty": "hard"}))
		require.NoError(t, host.Send("playOptions", map[string]any{"difficulty": "easy"}))
	})

	replies := make(chan transport.Message, 2)
	require.NoError(t, app.Fetch(context.Background(), "playOptions", func(msg transport.Message) {
		replies <- msg
	}))

	msg := waitFor(t, replies)
	var opts map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &opts))
	assert.Equal(t, "hard", opts["difficulty"])

	select {
	case <-replies:
		t.Fatal("fetch handler fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConn_MalformedEnvelopeIsDropped(t *testing.T) {
	appSide, hostSide := net.Pipe()
	conn := transport.NewConn(appSide, nil)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() {
		_ = conn.Close()
		_ = hostSide.Close()
	})

	got := make(chan transport.Message, 1)
	conn.On("ok", func(msg transport.Message) { got <- msg })

	// A garbage line must not kill the read loop.
	_, err := hostSide.Write([]byte("not json\n"))
	require.NoError(t, err)
	_, err = hostSide.Write([]byte(`{"event":"ok"}` + "\n"))
	require.NoError(t, err)

	waitFor(t, got)
}

func TestConn_SendEmptyEventFails(t *testing.T) {
	app, _ := connectedPair(t)

	err := app.Send("", nil)
	assert.Error(t, err)
}

func TestConn_ConnectTwiceFails(t *testing.T) {
	app, _ := connectedPair(t)

	assert.Error(t, app.Connect(context.Background()))
}

func TestConn_CloseStopsDelivery(t *testing.T) {
	app, host := transport.Pair(nil)
	require.NoError(t, app.Connect(context.Background()))
	require.NoError(t, host.Connect(context.Background()))

	require.NoError(t, app.Close())
	require.NoError(t, host.Close())

	assert.Error(t, app.Send("ping", nil))
	assert.NoError(t, app.Close(), "double close is a no-op")
}
