package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/hotel-booking-backend/internal/reservation"
	"github.com/nekogravitycat/hotel-booking-backend/internal/user"
)

type Handler struct {
	service     reservation.Service
	userService user.Service
}

func NewHandler(service reservation.Service, userService user.Service) *Handler {
	return &Handler{
		service:     service,
		userService: userService,
	}
}

// checkIsSysAdmin reports whether the current user is a system admin.
func (h *Handler) checkIsSysAdmin(c *gin.Context, userID string) bool {
	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		return false
	}
	return u.IsSystemAdmin
}

// Availability answers how many units of each room type are free for an interval.
func (h *Handler) Availability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	items, err := h.service.GetAvailability(c.Request.Context(), reservation.AvailabilityQuery{
		HotelID:    req.HotelID,
		RoomTypeID: req.RoomTypeID,
		Start:      req.Start,
		End:        req.End,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := AvailabilityResponse{
		HotelID: req.HotelID,
		Start:   req.Start.UTC(),
		End:     req.End.UTC(),
		Items:   make([]AvailabilityItem, len(items)),
	}
	for i, a := range items {
		resp.Items[i] = AvailabilityItem{
			RoomTypeID:  a.RoomTypeID,
			Capacity:    a.Capacity,
			BookedCount: a.BookedCount,
			Free:        a.Free,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Create books units for the caller. A system admin may book on behalf of
// another guest by setting guest_id.
func (h *Handler) Create(c *gin.Context) {
	var body CreateReservationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	guestID := userID
	if body.GuestID != "" && body.GuestID != userID {
		if !h.checkIsSysAdmin(c, userID) {
			response.Error(c, reservation.ErrForbidden)
			return
		}
		guestID = body.GuestID
	}

	res, err := h.service.CreateReservation(c.Request.Context(), reservation.CreateRequest{
		HotelID:    body.HotelID,
		GuestID:    guestID,
		RoomTypeID: body.RoomTypeID,
		Start:      body.Start,
		End:        body.End,
		Quantity:   body.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateReservationResponse{
		ReservationID: res.ID,
		Reservation:   NewReservationResponse(res),
	})
}

// List returns the caller's reservations. System admins see every guest and
// may filter by guest_id.
func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	guestID := userID
	if h.checkIsSysAdmin(c, userID) {
		guestID = req.GuestID
	}

	list, total, err := h.service.List(c.Request.Context(), reservation.Filter{
		GuestID:   guestID,
		HotelID:   req.HotelID,
		Status:    reservation.Status(req.Status),
		SortOrder: strings.ToUpper(req.SortOrder),
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ReservationResponse, len(list))
	for i, r := range list {
		items[i] = NewReservationResponse(r)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Get returns a reservation with its units. Access Control: owner or System Admin.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	res, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID := auth.GetUserID(c)
	if res.GuestID != userID && !h.checkIsSysAdmin(c, userID) {
		response.Error(c, reservation.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(res))
}

// UpdateStatus moves a reservation through its lifecycle. Access Control: System Admin only.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.service.UpdateStatus(c.Request.Context(), uri.ID, reservation.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(res))
}
