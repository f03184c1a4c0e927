package protocol_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/lobby/internal/lobby"
	"github.com/Tyrowin/lobby/internal/protocol"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := cbor.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    protocol.ClientEvent
		wantErr error
	}{
		{
			name:    "new player",
			payload: mustMarshal(t, map[string]any{"event_type": "NewPlayer", "name": "Alice"}),
			want:    protocol.NewPlayer{Name: "Alice"},
		},
		{
			name:    "new player without name",
			payload: mustMarshal(t, map[string]any{"event_type": "NewPlayer"}),
			want:    protocol.NewPlayer{},
		},
		{
			name:    "toggle ready",
			payload: mustMarshal(t, map[string]any{"event_type": "ToggleReady"}),
			want:    protocol.ToggleReady{},
		},
		{
			name:    "get players in lobby",
			payload: mustMarshal(t, map[string]any{"event_type": "GetPlayersInLobby"}),
			want:    protocol.GetPlayersInLobby{},
		},
		{
			name:    "unknown event",
			payload: mustMarshal(t, map[string]any{"event_type": "StartGame"}),
			wantErr: protocol.ErrUnknownEvent,
		},
		{
			name:    "server-only event",
			payload: mustMarshal(t, map[string]any{"event_type": "PlayersInLobby"}),
			wantErr: protocol.ErrUnknownEvent,
		},
		{
			name:    "missing tag",
			payload: mustMarshal(t, map[string]any{"name": "Alice"}),
			wantErr: protocol.ErrMalformed,
		},
		{
			name:    "tag of wrong type",
			payload: mustMarshal(t, map[string]any{"event_type": 7}),
			wantErr: protocol.ErrMalformed,
		},
		{
			name:    "not a map",
			payload: mustMarshal(t, "NewPlayer"),
			wantErr: protocol.ErrMalformed,
		},
		{
			name:    "json text",
			payload: []byte(`{"event_type":"NewPlayer","name":"Alice"}`),
			wantErr: protocol.ErrMalformed,
		},
		{
			name:    "empty",
			payload: nil,
			wantErr: protocol.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.Decode(tt.payload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_PlayersInLobby(t *testing.T) {
	alice := uuid.New()
	data, err := protocol.Encode(protocol.Roster([]lobby.Player{
		{ID: alice, Name: "Alice", Color: lobby.Red, Ready: true},
	}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, "PlayersInLobby", decoded["event_type"])

	players, ok := decoded["players"].([]any)
	require.True(t, ok, "players must be an array")
	require.Len(t, players, 1)

	entry, ok := players[0].(map[any]any)
	require.True(t, ok)
	assert.Equal(t, alice.String(), entry["id"])
	assert.Equal(t, "Alice", entry["name"])
	assert.Equal(t, "Red", entry["color"])
	assert.Equal(t, true, entry["ready"])
}

func TestEncode_EmptyRosterIsArray(t *testing.T) {
	for _, event := range []protocol.PlayersInLobby{protocol.Roster(nil), {}} {
		data, err := protocol.Encode(event)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, cbor.Unmarshal(data, &decoded))
		assert.Equal(t, []any{}, decoded["players"])
	}
}

func TestEncode_YourID(t *testing.T) {
	id := uuid.New()
	data, err := protocol.Encode(protocol.YourID{ID: id.String()})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]any{"event_type": "YourId", "id": id.String()}, decoded)
}

func TestEncode_IsDeterministic(t *testing.T) {
	event := protocol.Roster([]lobby.Player{
		{ID: uuid.New(), Name: "Alice", Color: lobby.Red},
		{ID: uuid.New(), Name: "Bob", Color: lobby.Blue},
	})
	first, err := protocol.Encode(event)
	require.NoError(t, err)
	second, err := protocol.Encode(event)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
