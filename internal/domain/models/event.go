package models

import (
	"fmt"
	"strings"
	"time"
)

// EventType classifies diary entries recorded against a batch.
type EventType string

const (
	EventCandling EventType = "CANDLING"
	EventHatch    EventType = "HATCH"
	EventDiscard  EventType = "DISCARD"
	EventDeath    EventType = "DEATH"
	EventNote     EventType = "NOTE"
	EventAlert    EventType = "ALERT"
)

var eventTypes = []EventType{EventCandling, EventHatch, EventDiscard, EventDeath, EventNote, EventAlert}

// ParseEventType accepts any casing of a known event type.
func ParseEventType(value string) (EventType, error) {
	candidate := EventType(strings.ToUpper(strings.TrimSpace(value)))
	for _, t := range eventTypes {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", value)
}

// Event is an immutable audit entry. It never changes batch status or counters.
type Event struct {
	ID        int64     `bson:"_id" json:"id"`
	BatchID   int64     `bson:"batch_id" json:"batch_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Type      EventType `bson:"type" json:"type"`
	Value     string    `bson:"value,omitempty" json:"value,omitempty"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
}
