package reservation

import (
	"time"
)

const (
	// DefaultCurrency and DefaultTotalAmount are stored on every reservation.
	// Pricing happens outside this service.
	DefaultCurrency    = "USD"
	DefaultTotalAmount = "0"

	// MaxQuantity caps how many units one request may book.
	MaxQuantity = 10
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether the two intervals share at least one instant.
// An interval ending at T does not overlap one starting at T.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// UTC returns the interval with both bounds converted to UTC.
func (i Interval) UTC() Interval {
	return Interval{Start: i.Start.UTC(), End: i.End.UTC()}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
// Cancelled is terminal, so cancelled units never count toward overlap again.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	}
	return false
}

type Reservation struct {
	ID          string
	HotelID     string
	GuestID     string
	Status      Status
	Currency    string
	TotalAmount string // decimal text, e.g. "0.00"
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Units       []Unit
}

// Unit is the occupancy of one room of a room type for a half-open interval.
type Unit struct {
	ID            string
	ReservationID string
	RoomTypeID    string
	Start         time.Time
	End           time.Time
}

func (u Unit) Interval() Interval {
	return Interval{Start: u.Start, End: u.End}
}

// Availability is the booked and free count of one room type for an interval.
type Availability struct {
	RoomTypeID  string
	Capacity    int
	BookedCount int
	Free        int
}

type CreateRequest struct {
	HotelID    string
	GuestID    string
	RoomTypeID string
	Start      time.Time
	End        time.Time
	Quantity   int // zero means one
}

type AvailabilityQuery struct {
	HotelID    string
	RoomTypeID string // empty means every room type of the hotel
	Start      time.Time
	End        time.Time
}

func (q AvailabilityQuery) Interval() Interval {
	return Interval{Start: q.Start, End: q.End}
}

type Filter struct {
	GuestID   string
	HotelID   string
	Status    Status
	SortOrder string // ASC or DESC by creation time, DESC when empty
	Page      int
	PageSize  int
}
