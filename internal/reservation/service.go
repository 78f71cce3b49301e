package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/hotel-booking-backend/internal/events"
	"github.com/nekogravitycat/hotel-booking-backend/internal/metrics"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/retry"
)

const publishTimeout = 2 * time.Second

// Service is the reservation engine: availability reads and the
// transactional reservation writer.
type Service interface {
	GetAvailability(ctx context.Context, q AvailabilityQuery) ([]Availability, error)
	CreateReservation(ctx context.Context, req CreateRequest) (*Reservation, error)
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	UpdateStatus(ctx context.Context, id string, next Status) (*Reservation, error)
}

// Options holds the optional collaborators of the service.
type Options struct {
	Retry     retry.Policy
	Cache     AvailabilityCache // nil disables caching
	Publisher events.Publisher  // nil disables events
}

type service struct {
	repo      Repository
	retry     retry.Policy
	cache     AvailabilityCache
	publisher events.Publisher
}

func NewService(repo Repository, opts Options) Service {
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	return &service{
		repo:      repo,
		retry:     opts.Retry,
		cache:     opts.Cache,
		publisher: opts.Publisher,
	}
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func (s *service) GetAvailability(ctx context.Context, q AvailabilityQuery) ([]Availability, error) {
	if !isUUID(q.HotelID) {
		return nil, fmt.Errorf("%w: hotel_id must be a UUID", ErrInvalidRequest)
	}
	if q.RoomTypeID != "" && !isUUID(q.RoomTypeID) {
		return nil, fmt.Errorf("%w: room_type_id must be a UUID", ErrInvalidRequest)
	}
	if !q.Interval().Valid() {
		return nil, ErrInvalidRange
	}
	iv := q.Interval().UTC()
	q.Start, q.End = iv.Start, iv.End

	logger := zerolog.Ctx(ctx)

	var cacheKey string
	if s.cache != nil {
		items, key, hit, err := s.cache.Lookup(ctx, q)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("availability cache lookup failed")
		case hit:
			metrics.IncCache(true)
			return items, nil
		default:
			metrics.IncCache(false)
			cacheKey = key
		}
	}

	items, err := s.repo.BookedCounts(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.RoomTypeID != "" && len(items) == 0 {
		return nil, ErrRoomTypeNotFound
	}
	if items == nil {
		items = []Availability{}
	}

	if cacheKey != "" {
		if err := s.cache.Store(ctx, cacheKey, items); err != nil {
			logger.Warn().Err(err).Msg("availability cache store failed")
		}
	}

	return items, nil
}

func (s *service) validateCreate(req *CreateRequest) error {
	switch {
	case !isUUID(req.HotelID):
		return fmt.Errorf("%w: hotel_id must be a UUID", ErrInvalidRequest)
	case !isUUID(req.GuestID):
		return fmt.Errorf("%w: guest_id must be a UUID", ErrInvalidRequest)
	case !isUUID(req.RoomTypeID):
		return fmt.Errorf("%w: room_type_id must be a UUID", ErrInvalidRequest)
	case req.Start.IsZero() || req.End.IsZero():
		return fmt.Errorf("%w: start and end are required", ErrInvalidRequest)
	case !req.Start.Before(req.End):
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidRange)
	}

	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidRequest, MaxQuantity)
	}
	return nil
}

func (s *service) CreateReservation(ctx context.Context, req CreateRequest) (*Reservation, error) {
	started := time.Now()
	defer func() { metrics.ObserveReservation(time.Since(started)) }()

	if err := s.validateCreate(&req); err != nil {
		metrics.IncReservation(metrics.OutcomeInvalid)
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("hotel_id", req.HotelID).
		Str("room_type_id", req.RoomTypeID).
		Time("start", req.Start).
		Time("end", req.End).
		Int("quantity", req.Quantity).
		Logger()

	iv := Interval{Start: req.Start, End: req.End}.UTC()
	units := make([]Unit, req.Quantity)
	for i := range units {
		units[i] = Unit{RoomTypeID: req.RoomTypeID, Start: iv.Start, End: iv.End}
	}

	var res *Reservation
	err := s.retry.Do(ctx, IsRetryable, func(attempt int) error {
		if attempt > 0 {
			metrics.IncReservation(metrics.OutcomeRetried)
			logger.Debug().Int("attempt", attempt).Msg("retrying reservation")
		}

		candidate := &Reservation{
			HotelID: req.HotelID,
			GuestID: req.GuestID,
			Status:  StatusPending,
		}
		if _, err := s.repo.InsertReservationWithUnits(ctx, candidate, units); err != nil {
			return err
		}
		res = candidate
		return nil
	})
	if err != nil {
		s.recordFailure(logger, err)
		return nil, err
	}

	metrics.IncReservation(metrics.OutcomeCreated)
	logger.Info().Str("reservation_id", res.ID).Msg("reservation created")

	s.invalidate(ctx, res.HotelID)
	s.publishCreated(ctx, res, req)

	return res, nil
}

func (s *service) recordFailure(logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		metrics.IncReservation(metrics.OutcomeCapacityExceeded)
		logger.Info().Msg("reservation rejected: capacity exceeded")
	case errors.Is(err, ErrConflictAbort):
		metrics.IncReservation(metrics.OutcomeConflictAbort)
		logger.Warn().Err(err).Msg("reservation aborted by concurrent writer")
	case errors.Is(err, ErrOutcomeUnknown):
		metrics.IncReservation(metrics.OutcomeUnavailable)
		logger.Error().Err(err).Msg("reservation commit not acknowledged")
	case errors.Is(err, ErrStoreUnavailable):
		metrics.IncReservation(metrics.OutcomeUnavailable)
		logger.Warn().Err(err).Msg("reservation store unavailable")
	case errors.Is(err, ErrRoomTypeNotFound), errors.Is(err, ErrGuestNotFound), errors.Is(err, ErrInvalidRequest):
		metrics.IncReservation(metrics.OutcomeInvalid)
		logger.Info().Err(err).Msg("reservation rejected")
	default:
		metrics.IncReservation(metrics.OutcomeError)
		logger.Error().Err(err).Msg("reservation failed")
	}
}

func (s *service) invalidate(ctx context.Context, hotelID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, hotelID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("hotel_id", hotelID).Msg("availability cache invalidation failed")
	}
}

// publishCreated is best effort. The reservation is already committed.
func (s *service) publishCreated(ctx context.Context, res *Reservation, req CreateRequest) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := events.ReservationCreated{
		ReservationID: res.ID,
		HotelID:       res.HotelID,
		GuestID:       res.GuestID,
		RoomTypeID:    req.RoomTypeID,
		Quantity:      req.Quantity,
		Start:         req.Start.UTC(),
		End:           req.End.UTC(),
		CreatedAt:     res.CreatedAt,
	}
	if err := s.publisher.PublishReservationCreated(pubCtx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("reservation_id", res.ID).Msg("publish reservation.created failed")
	}
}

func (s *service) GetByID(ctx context.Context, id string) (*Reservation, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateStatus(ctx context.Context, id string, next Status) (*Reservation, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, next)
	}
	if !isUUID(id) {
		return nil, ErrNotFound
	}

	res, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("reservation_id", res.ID).
		Str("status", string(res.Status)).
		Msg("reservation status changed")

	// Cancellation frees units.
	s.invalidate(ctx, res.HotelID)
	return res, nil
}
