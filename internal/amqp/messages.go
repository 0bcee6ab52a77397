package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SeedRequestMessage asks a seed worker to import the remote transaction
// document into the shared store.
type SeedRequestMessage struct {
	ID          string    `json:"id"`
	SourceURL   string    `json:"source_url"`
	Force       bool      `json:"force"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewSeedRequestMessage creates a request with a fresh id.
func NewSeedRequestMessage(sourceURL string, force bool) *SeedRequestMessage {
	return &SeedRequestMessage{
		ID:          uuid.NewString(),
		SourceURL:   sourceURL,
		Force:       force,
		RequestedAt: time.Now().UTC(),
	}
}

func (m *SeedRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SeedRequestMessageFromJSON decodes a message body. Messages without an id are
// rejected.
func SeedRequestMessageFromJSON(data []byte) (*SeedRequestMessage, error) {
	var msg SeedRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("seed request without id")
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, err
	}
	return &msg, nil
}
