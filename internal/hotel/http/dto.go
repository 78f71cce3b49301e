package http

import (
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/request"
)

// ListHotelsRequest defines query parameters for listing hotels.
type ListHotelsRequest struct {
	request.ListParams
	Name   string `form:"name"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name created_at"`
}

type HotelResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

func NewHotelResponse(h *hotel.Hotel) HotelResponse {
	return HotelResponse{
		ID:        h.ID,
		Name:      h.Name,
		Address:   h.Address,
		Timezone:  h.Timezone,
		CreatedAt: h.CreatedAt,
	}
}

type CreateHotelRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Address  string `json:"address" binding:"max=500"`
	Timezone string `json:"timezone"`
}
