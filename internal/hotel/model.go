package hotel

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "hotel not found")
	ErrNameRequired    = apperror.New(http.StatusBadRequest, "hotel name is required")
	ErrInvalidTimezone = apperror.New(http.StatusBadRequest, "invalid timezone")
)

// Hotel owns a set of room types. Reservations are scoped to one hotel.
type Hotel struct {
	ID        string
	Name      string
	Address   string
	Timezone  string
	CreatedAt time.Time
}

// Filter defines parameters for listing hotels.
type Filter struct {
	Name      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
