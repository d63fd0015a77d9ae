package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys for ledger events.
const (
	RoutingEntryCreated = "ledger.entry.created"
	RoutingEntryDeleted = "ledger.entry.deleted"
)

// EntryMessage announces a change to a stored ledger entry. It carries only
// the id and version; the worker reloads the entry from the database.
type EntryMessage struct {
	Event     string    `json:"event"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryCreatedMessage builds the message sent after an entry is stored.
func NewEntryCreatedMessage(id, version int64) *EntryMessage {
	return &EntryMessage{Event: RoutingEntryCreated, ID: id, Version: version, Timestamp: time.Now()}
}

// NewEntryDeletedMessage builds the message sent after an entry is removed.
func NewEntryDeletedMessage(id int64) *EntryMessage {
	return &EntryMessage{Event: RoutingEntryDeleted, ID: id, Timestamp: time.Now()}
}

func (m *EntryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryMessageFromJSON decodes and checks a message body.
func EntryMessageFromJSON(data []byte) (*EntryMessage, error) {
	var msg EntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Event {
	case RoutingEntryCreated, RoutingEntryDeleted:
	default:
		return nil, fmt.Errorf("unknown event %q", msg.Event)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid entry id %d", msg.ID)
	}
	return &msg, nil
}
