package roomtype

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/apperror"
)

// MaxCapacity bounds how many interchangeable rooms one room type may hold.
const MaxCapacity = 10000

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "room type not found")
	ErrHotelNotFound   = apperror.New(http.StatusNotFound, "hotel not found")
	ErrNameRequired    = apperror.New(http.StatusBadRequest, "room type name is required")
	ErrInvalidCapacity = apperror.New(http.StatusBadRequest, "capacity must be between 1 and 10000")
	ErrDuplicateName   = apperror.New(http.StatusConflict, "room type name already used in this hotel")
)

// RoomType is a category of interchangeable rooms in a hotel. Capacity is the
// number of units that may be occupied at the same instant.
type RoomType struct {
	ID        string
	HotelID   string
	Name      string
	Capacity  int
	CreatedAt time.Time
}

// Filter defines parameters for listing room types.
type Filter struct {
	HotelID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
