package entity

import "time"

type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

const (
	CollectionResources = "resources"
	CollectionBookings  = "bookings"
)

// ChangeEvent is pushed to live subscribers after every write.
type ChangeEvent struct {
	Type       ChangeType  `json:"type"`
	Collection string      `json:"collection"`
	ID         string      `json:"id"`
	Data       interface{} `json:"data,omitempty"`
	At         time.Time   `json:"at"`
}

func NewChangeEvent(t ChangeType, collection, id string, data interface{}) *ChangeEvent {
	return &ChangeEvent{
		Type:       t,
		Collection: collection,
		ID:         id,
		Data:       data,
		At:         time.Now().UTC(),
	}
}
