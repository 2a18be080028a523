package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"groupchat/domain/event"
)

func TestEncodeEvent_Wraps_Type_And_Payload(t *testing.T) {
	req := require.New(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	data, err := encodeEvent(event.UserJoined{Username: "alice", UserCount: 3, At: at})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(data, &env))
	req.Equal("user_joined", env.Type)

	var payload map[string]any
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.Equal("alice", payload["username"])
	req.Equal(float64(3), payload["user_count"])
}

func TestDecodePayload_Validates(t *testing.T) {
	req := require.New(t)

	t.Run("valid join payload", func(t *testing.T) {
		var p JoinPayload
		req.NoError(decodePayload([]byte(`{"username":"alice"}`), &p))
		req.Equal("alice", p.Username)
	})

	t.Run("missing required field", func(t *testing.T) {
		var p JoinPayload
		req.Error(decodePayload([]byte(`{"token":"abc"}`), &p))
	})

	t.Run("malformed json", func(t *testing.T) {
		var p ChatPayload
		req.Error(decodePayload([]byte(`{`), &p))
	})

	t.Run("room target requires a room id", func(t *testing.T) {
		var p RoomTargetPayload
		req.Error(decodePayload([]byte(`{}`), &p))
		req.NoError(decodePayload([]byte(`{"room_id":7}`), &p))
		req.Equal(uint64(7), p.RoomID)
	})

	t.Run("room name length is bounded", func(t *testing.T) {
		var p CreateRoomPayload
		req.NoError(decodePayload([]byte(`{"name":"games"}`), &p))
		req.Error(decodePayload([]byte(`{"name":""}`), &p))
	})
}
