package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/database"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/stats"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/testutil"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/types"
	"github.com/stretchr/testify/assert"
)

func Test_queueEvent(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerEvent, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueEvent(&ServerEvent{})
		assert.True(t, res, "expected queueEvent to return true when channel is not full")

		select {
		case ev := <-c.send:
			assert.NotNil(t, ev, "expected an event to be queued for the client")
		default:
			t.Error("expected an event to be queued for the client, but none was")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerEvent, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerEvent{} // Pre-fill the send channel to simulate a full channel
		res := c.queueEvent(&ServerEvent{})
		assert.False(t, res, "expected queueEvent to return false when channel is full")
	})
}

func Test_serializeEvent(t *testing.T) {
	now := time.Now().UTC().Round(time.Millisecond)
	ev := &ServerEvent{
		Message: &types.Message{
			Id:        "m1",
			RoomId:    "r1",
			Sender:    "alice",
			Content:   "hi",
			Type:      types.MessageTypeText,
			Time:      "10:00 AM",
			CreatedAt: now,
		},
	}

	expected := `{"message":{"_id":"m1","roomId":"r1","sender":"alice","content":"hi","type":"text","time":"10:00 AM","createdAt":"` +
		now.Format(time.RFC3339Nano) + `"}}`

	bytes, err := serializeEvent(ev)
	assert.NoError(t, err, "expected no error during serialization")
	assert.Equal(t, expected, string(bytes), "expected serialized event to match the expected format")
}

func Test_maxInboundSize(t *testing.T) {
	// control characters are the worst case for JSON escaping: each content
	// byte becomes a six-byte \uXXXX sequence on the wire
	content := strings.Repeat("\x01", 1024)
	raw, err := json.Marshal(&ClientEvent{SendMessage: &SendMessage{
		RoomId:  "r1",
		Content: content,
		Type:    types.MessageTypeText,
		Sender:  "alice",
		Time:    "10:00 AM",
	}})
	assert.NoError(t, err, "expected event to marshal")

	envelope := len(raw) - 6*len(content)
	assert.GreaterOrEqual(t, maxInboundSize, 6*database.MaxContentLength+envelope,
		"expected the read limit to admit cap-sized content even when fully escaped")
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()

	select {
	case <-c.stop:
		// Channel is closed as expected
	default:
		t.Error("expected stop channel to be closed")
	}

	// a second stop must not panic
	c.stopClient()
}

func Test_dispatch(t *testing.T) {
	t.Run("join intent registers membership", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs, types.User{Id: 1, Username: "alice"})

		c.dispatch(&ClientEvent{JoinRoom: &JoinRoom{RoomId: "room-a"}, client: c})

		room := cs.getRoom("room-a")
		assert.NotNil(t, room, "expected registry entry after join")
		assert.True(t, room.hasClient(c), "expected client to be a member after join")
	})

	t.Run("empty event yields an error to the originator", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs, types.User{Id: 1, Username: "alice"})

		c.dispatch(&ClientEvent{client: c})

		select {
		case ev := <-c.send:
			assert.NotNil(t, ev.MessageError, "expected a messageError event")
			assert.Equal(t, "Invalid message format", ev.MessageError.Error, "expected invalid-format error string")
		default:
			t.Error("expected an error event, but none was queued")
		}
	})
}
