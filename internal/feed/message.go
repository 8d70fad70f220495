package feed

import (
	"encoding/json"
	"time"

	"github.com/lox/chainpoker/internal/view"
)

// Message types sent to spectators
const (
	MessageTypeWelcome = "welcome"
	MessageTypeTable   = "table"
	MessageTypeEvent   = "event"
)

// Message is the envelope for everything written to a spectator.
type Message struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// WelcomeData is sent once when a spectator connects
type WelcomeData struct {
	ConnectionID string `json:"connection_id"`
}

// EventData is a formatted event line
type EventData struct {
	Game uint64 `json:"game"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// TableData is the full table view
type TableData = view.TableView

// NewMessage wraps data in an envelope.
func NewMessage(msgType string, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Timestamp: time.Now().UTC(), Data: raw}, nil
}
