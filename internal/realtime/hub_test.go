package realtime

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHub(log)
}

func drain(t *testing.T, c *Client) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		select {
		case p, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestBroadcastSkipsOriginator(t *testing.T) {
	h := testHub()
	a := NewClient(h, nil, "u1")
	b := NewClient(h, nil, "u2")
	h.Join(a, "2026-09-15")
	h.Join(b, "2026-09-15")

	payload := Marshal(EventSlotBooked, SlotEvent{Date: "2026-09-15", TimeSlot: "09:30 - 09:40"})
	h.Broadcast("2026-09-15", payload, a)

	assert.Empty(t, drain(t, a))
	got := drain(t, b)
	require.Len(t, got, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(got[0], &env))
	assert.Equal(t, EventSlotBooked, env.Event)

	var ev SlotEvent
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	assert.Equal(t, "09:30 - 09:40", ev.TimeSlot)
}

func TestBroadcastExceptUserSkipsAllConnectionsOfUser(t *testing.T) {
	h := testHub()
	a1 := NewClient(h, nil, "u1")
	a2 := NewClient(h, nil, "u1")
	b := NewClient(h, nil, "u2")
	for _, c := range []*Client{a1, a2, b} {
		h.Join(c, "2026-09-15")
	}

	h.BroadcastExceptUser("2026-09-15", "u1", []byte(`{}`))

	assert.Empty(t, drain(t, a1))
	assert.Empty(t, drain(t, a2))
	assert.Len(t, drain(t, b), 1)
}

func TestBroadcastIsScopedToRoom(t *testing.T) {
	h := testHub()
	a := NewClient(h, nil, "u1")
	b := NewClient(h, nil, "u2")
	h.Join(a, "2026-09-15")
	h.Join(b, "2026-09-16")

	h.Broadcast("2026-09-15", []byte(`{}`), nil)

	assert.Len(t, drain(t, a), 1)
	assert.Empty(t, drain(t, b))
}

func TestBroadcastUnknownDateIsNoop(t *testing.T) {
	h := testHub()
	a := NewClient(h, nil, "u1")
	h.Join(a, "2026-09-15")

	h.Broadcast("2026-09-20", []byte(`{}`), nil)
	assert.Empty(t, drain(t, a))
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := testHub()
	a := NewClient(h, nil, "u1")
	h.Register(a)
	h.Join(a, "2026-09-15")
	h.Leave(a, "2026-09-15")

	h.Broadcast("2026-09-15", []byte(`{}`), nil)
	assert.Empty(t, drain(t, a))

	// leaving the room does not disconnect the client
	assert.Equal(t, 1, h.Connections())
	h.Remove(a)
	assert.Equal(t, 0, h.Connections())
}

func TestConnectionsCountsUnsubscribedClients(t *testing.T) {
	h := testHub()
	a := NewClient(h, nil, "u1")
	b := NewClient(h, nil, "u2")
	h.Register(a)
	h.Register(b)
	h.Join(a, "2026-09-15")

	assert.Equal(t, 2, h.Connections())

	h.Remove(b)
	assert.Equal(t, 1, h.Connections())
}

func TestSlowSubscriberDroppedOthersDelivered(t *testing.T) {
	h := testHub()
	slow := NewClient(h, nil, "u1")
	fast := NewClient(h, nil, "u2")
	h.Register(slow)
	h.Register(fast)
	h.Join(slow, "2026-09-15")
	h.Join(fast, "2026-09-15")

	for i := 0; i < sendBuffer; i++ {
		slow.send <- []byte(`{}`)
	}

	h.Broadcast("2026-09-15", []byte(`{"event":"x"}`), nil)

	assert.Len(t, drain(t, fast), 1)
	assert.True(t, slow.closed)
	assert.Equal(t, 1, h.Connections())

	// dropping the same client again must not panic
	h.Remove(slow)
}

func TestRemoveClearsAllRooms(t *testing.T) {
	h := testHub()
	a := NewClient(h, nil, "u1")
	h.Register(a)
	h.Join(a, "2026-09-15")
	h.Join(a, "2026-09-16")
	require.Equal(t, 1, h.Connections())

	h.Remove(a)
	assert.Equal(t, 0, h.Connections())

	// send channel is closed exactly once
	_, ok := <-a.send
	assert.False(t, ok)
}

func TestSendAfterRemoveIsNoop(t *testing.T) {
	h := testHub()
	a := NewClient(h, nil, "u1")
	h.Join(a, "2026-09-15")
	h.Remove(a)

	a.Send([]byte(`{}`)) // must not panic on the closed channel
}
