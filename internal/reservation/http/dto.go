package http

import (
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-booking-backend/internal/reservation"
)

// AvailabilityRequest defines the query parameters of GET /availability.
// Times are RFC3339.
type AvailabilityRequest struct {
	HotelID    string    `form:"hotel_id" binding:"required"`
	RoomTypeID string    `form:"room_type_id"`
	Start      time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End        time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type AvailabilityItem struct {
	RoomTypeID  string `json:"room_type_id"`
	Capacity    int    `json:"capacity"`
	BookedCount int    `json:"booked_count"`
	Free        int    `json:"free"`
}

type AvailabilityResponse struct {
	HotelID string             `json:"hotel_id"`
	Start   time.Time          `json:"start"`
	End     time.Time          `json:"end"`
	Items   []AvailabilityItem `json:"items"`
}

// CreateReservationRequest is the body of POST /reservations.
// GuestID is honoured for system admins only.
type CreateReservationRequest struct {
	HotelID    string    `json:"hotel_id" binding:"required"`
	RoomTypeID string    `json:"room_type_id" binding:"required"`
	GuestID    string    `json:"guest_id"`
	Start      time.Time `json:"start" binding:"required"`
	End        time.Time `json:"end" binding:"required"`
	Quantity   int       `json:"quantity"`
}

type CreateReservationResponse struct {
	ReservationID string              `json:"reservation_id"`
	Reservation   ReservationResponse `json:"reservation"`
}

// ListReservationsRequest defines query parameters for listing reservations.
type ListReservationsRequest struct {
	request.ListParams
	GuestID string `form:"guest_id" binding:"omitempty,uuid"`
	HotelID string `form:"hotel_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled"`
}

type UnitResponse struct {
	ID         string    `json:"id"`
	RoomTypeID string    `json:"room_type_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type ReservationResponse struct {
	ID          string         `json:"id"`
	HotelID     string         `json:"hotel_id"`
	GuestID     string         `json:"guest_id"`
	Status      string         `json:"status"`
	Currency    string         `json:"currency"`
	TotalAmount string         `json:"total_amount"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Units       []UnitResponse `json:"units"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	units := make([]UnitResponse, len(r.Units))
	for i, u := range r.Units {
		units[i] = UnitResponse{
			ID:         u.ID,
			RoomTypeID: u.RoomTypeID,
			Start:      u.Start,
			End:        u.End,
		}
	}
	return ReservationResponse{
		ID:          r.ID,
		HotelID:     r.HotelID,
		GuestID:     r.GuestID,
		Status:      string(r.Status),
		Currency:    r.Currency,
		TotalAmount: r.TotalAmount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Units:       units,
	}
}
