package http

import (
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-booking-backend/internal/roomtype"
)

// ListRoomTypesRequest defines query parameters for listing room types.
type ListRoomTypesRequest struct {
	request.ListParams
	HotelID string `form:"hotel_id" binding:"omitempty,uuid"`
	SortBy  string `form:"sort_by" binding:"omitempty,oneof=name capacity created_at"`
}

type RoomTypeResponse struct {
	ID        string    `json:"id"`
	HotelID   string    `json:"hotel_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

func NewResponse(rt *roomtype.RoomType) RoomTypeResponse {
	return RoomTypeResponse{
		ID:        rt.ID,
		HotelID:   rt.HotelID,
		Name:      rt.Name,
		Capacity:  rt.Capacity,
		CreatedAt: rt.CreatedAt,
	}
}

type CreateRequest struct {
	HotelID  string `json:"hotel_id" binding:"required,uuid"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Capacity int    `json:"capacity" binding:"required,min=1,max=10000"`
}
