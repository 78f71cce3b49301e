// Package events publishes reservation domain events to the message broker.
package events

import (
	"context"
	"time"
)

// ReservationCreatedQueue receives one message per committed reservation.
const ReservationCreatedQueue = "reservation.created"

// ReservationCreated is published after a reservation and its units commit.
// Consumers get enough context to notify the guest without reading the database.
type ReservationCreated struct {
	ReservationID string    `json:"reservation_id"`
	HotelID       string    `json:"hotel_id"`
	GuestID       string    `json:"guest_id"`
	RoomTypeID    string    `json:"room_type_id"`
	Quantity      int       `json:"quantity"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publisher delivers domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishReservationCreated(ctx context.Context, ev ReservationCreated) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReservationCreated(context.Context, ReservationCreated) error { return nil }

func (NopPublisher) Close() error { return nil }
