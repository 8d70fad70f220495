package feed

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/lox/chainpoker/internal/deck"
	"github.com/lox/chainpoker/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}))
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSpectatorReceivesWelcomeAndLatest(t *testing.T) {
	hub, url := startHub(t)

	state := game.NewTableState(2)
	state.Pot = big.NewInt(75)
	hub.Publish(state)

	conn := dial(t, url)

	welcome := readMessage(t, conn)
	assert.Equal(t, MessageTypeWelcome, welcome.Type)
	var w WelcomeData
	require.NoError(t, json.Unmarshal(welcome.Data, &w))
	assert.Len(t, w.ConnectionID, 36)

	latest := readMessage(t, conn)
	assert.Equal(t, MessageTypeTable, latest.Type)
	var tv TableData
	require.NoError(t, json.Unmarshal(latest.Data, &tv))
	assert.Equal(t, "75", tv.Pot)
	assert.Equal(t, "#3", tv.Table)
}

func TestSpectatorNeverSeesHoleCards(t *testing.T) {
	hub, url := startHub(t)

	player := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	opponent := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	state := game.NewTableState(2).Bootstrap(game.Snapshot{Status: game.InProgress, Players: []common.Address{player, opponent}})
	state = state.WithHand([2]deck.Card{12, 16})
	require.True(t, state.HandKnown())
	hub.Publish(state)

	conn := dial(t, url)
	readMessage(t, conn)

	msg := readMessage(t, conn)
	require.Equal(t, MessageTypeTable, msg.Type)
	var tv TableData
	require.NoError(t, json.Unmarshal(msg.Data, &tv))
	require.Len(t, tv.Seats, 2)
	for _, seat := range tv.Seats {
		assert.False(t, seat.Self)
		for _, c := range seat.Cards {
			assert.True(t, c.FaceDown, "%s shows %s", seat.Address, c.Label)
		}
	}
	assert.NotContains(t, string(msg.Data), "A♠")
}

func TestPublishBroadcasts(t *testing.T) {
	hub, url := startHub(t)

	a := dial(t, url)
	b := dial(t, url)
	readMessage(t, a)
	readMessage(t, b)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	ev := game.PotUpdated{GameID: 1, Pot: big.NewInt(10)}
	hub.PublishEvent(ev, "Pot: 10")

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageTypeEvent, msg.Type)
		var data EventData
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, "Pot: 10", data.Text)
		assert.Equal(t, game.EventPotUpdated, data.Name)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	hub := NewHub(log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}))
	rec := httptest.NewRecorder()
	hub.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK 0", rec.Body.String())
}
