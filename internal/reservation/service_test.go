package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-booking-backend/internal/events"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/retry"
)

const (
	hotelID    = "6f1c2a9e-0b7d-4c4e-9d3e-2a1b3c4d5e6f"
	guestID    = "0d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70"
	roomTypeID = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CountOverlapping(ctx context.Context, roomTypeID string, iv Interval) (int, error) {
	args := m.Called(ctx, roomTypeID, iv)
	return args.Int(0), args.Error(1)
}

func (m *mockRepo) BookedCounts(ctx context.Context, q AvailabilityQuery) ([]Availability, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]Availability)
	return items, args.Error(1)
}

func (m *mockRepo) InsertReservationWithUnits(ctx context.Context, res *Reservation, units []Unit) (string, error) {
	args := m.Called(ctx, res, units)
	if err := args.Error(1); err != nil {
		return "", err
	}
	res.ID = args.String(0)
	res.Units = units
	return res.ID, nil
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Reservation, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*Reservation)
	return res, args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]*Reservation)
	return list, args.Int(1), args.Error(2)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id string, next Status) (*Reservation, error) {
	args := m.Called(ctx, id, next)
	res, _ := args.Get(0).(*Reservation)
	return res, args.Error(1)
}

type recordingPublisher struct {
	created []events.ReservationCreated
	err     error
}

func (p *recordingPublisher) PublishReservationCreated(_ context.Context, ev events.ReservationCreated) error {
	p.created = append(p.created, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

var fastRetry = retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func validRequest() CreateRequest {
	return CreateRequest{
		HotelID:    hotelID,
		GuestID:    guestID,
		RoomTypeID: roomTypeID,
		Start:      day(25),
		End:        day(27),
	}
}

func TestCreateReservationValidation(t *testing.T) {
	cases := map[string]func(r *CreateRequest){
		"MissingHotel":     func(r *CreateRequest) { r.HotelID = "" },
		"MalformedGuest":   func(r *CreateRequest) { r.GuestID = "guest-1" },
		"MissingRoomType":  func(r *CreateRequest) { r.RoomTypeID = "" },
		"MissingStart":     func(r *CreateRequest) { r.Start = time.Time{} },
		"EmptyInterval":    func(r *CreateRequest) { r.End = r.Start },
		"InvertedInterval": func(r *CreateRequest) { r.Start, r.End = r.End, r.Start },
		"NegativeQuantity": func(r *CreateRequest) { r.Quantity = -1 },
		"QuantityTooLarge": func(r *CreateRequest) { r.Quantity = MaxQuantity + 1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo := new(mockRepo)
			req := validRequest()
			mutate(&req)

			_, err := NewService(repo, Options{Retry: fastRetry}).CreateReservation(context.Background(), req)

			assert.ErrorIs(t, err, ErrInvalidRequest)
			repo.AssertNotCalled(t, "InsertReservationWithUnits", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateReservationInvalidRangeIsAlsoInvalidRequest(t *testing.T) {
	req := validRequest()
	req.End = req.Start

	_, err := NewService(new(mockRepo), Options{}).CreateReservation(context.Background(), req)

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCreateReservationSuccess(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	pub := &recordingPublisher{}

	req := validRequest()
	req.Quantity = 2

	repo.On("InsertReservationWithUnits", ctx,
		mock.MatchedBy(func(r *Reservation) bool {
			return r.HotelID == hotelID && r.GuestID == guestID && r.Status == StatusPending
		}),
		mock.MatchedBy(func(units []Unit) bool {
			return len(units) == 2 && units[0].RoomTypeID == roomTypeID && units[1].Start.Equal(day(25))
		}),
	).Return("res-1", nil).Once()

	res, err := NewService(repo, Options{Retry: fastRetry, Publisher: pub}).CreateReservation(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "res-1", res.ID)
	assert.Len(t, res.Units, 2)
	require.Len(t, pub.created, 1)
	assert.Equal(t, "res-1", pub.created[0].ReservationID)
	assert.Equal(t, 2, pub.created[0].Quantity)
	repo.AssertExpectations(t)
}

func TestCreateReservationDefaultsQuantity(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	repo.On("InsertReservationWithUnits", ctx, mock.Anything,
		mock.MatchedBy(func(units []Unit) bool { return len(units) == 1 }),
	).Return("res-1", nil)

	_, err := NewService(repo, Options{}).CreateReservation(ctx, validRequest())
	assert.NoError(t, err)
}

func TestCreateReservationRetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)

	conflict := fmt.Errorf("%w: serialization failure", ErrConflictAbort)
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("", conflict).Once()
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("", ErrStoreUnavailable).Once()
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("res-3", nil).Once()

	res, err := NewService(repo, Options{Retry: fastRetry}).CreateReservation(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "res-3", res.ID)
	repo.AssertNumberOfCalls(t, "InsertReservationWithUnits", 3)
}

func TestCreateReservationSurfacesLastErrorWhenExhausted(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("", ErrConflictAbort)

	_, err := NewService(repo, Options{Retry: fastRetry}).CreateReservation(ctx, validRequest())

	assert.ErrorIs(t, err, ErrConflictAbort)
	repo.AssertNumberOfCalls(t, "InsertReservationWithUnits", fastRetry.MaxRetries+1)
}

func TestCreateReservationNeverRetriesCapacityExceeded(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	pub := &recordingPublisher{}
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("", ErrCapacityExceeded)

	_, err := NewService(repo, Options{Retry: fastRetry, Publisher: pub}).CreateReservation(ctx, validRequest())

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	repo.AssertNumberOfCalls(t, "InsertReservationWithUnits", 1)
	assert.Empty(t, pub.created)
}

func TestCreateReservationDoesNotRetryUnacknowledgedCommit(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	pub := &recordingPublisher{}
	lost := commitFailed(fmt.Errorf("commit reservation failed: %w", io.ErrUnexpectedEOF))
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("", lost).Once()
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("second-id", nil).Once()

	res, err := NewService(repo, Options{Retry: fastRetry, Publisher: pub}).CreateReservation(ctx, validRequest())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOutcomeUnknown)
	repo.AssertNumberOfCalls(t, "InsertReservationWithUnits", 1)
	assert.Empty(t, pub.created)
}

func TestCreateReservationIgnoresPublishFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("res-1", nil)

	pub := &recordingPublisher{err: errors.New("broker down")}
	res, err := NewService(repo, Options{Publisher: pub}).CreateReservation(ctx, validRequest())

	require.NoError(t, err)
	assert.Equal(t, "res-1", res.ID)
}

func TestGetAvailabilityValidation(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, Options{})
	ctx := context.Background()

	_, err := svc.GetAvailability(ctx, AvailabilityQuery{HotelID: hotelID, Start: day(26), End: day(25)})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.GetAvailability(ctx, AvailabilityQuery{HotelID: hotelID, Start: day(25), End: day(25)})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.GetAvailability(ctx, AvailabilityQuery{Start: day(25), End: day(26)})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	repo.AssertNotCalled(t, "BookedCounts", mock.Anything, mock.Anything)
}

func TestGetAvailabilityUnknownRoomType(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	repo.On("BookedCounts", ctx, mock.Anything).Return(nil, nil)

	_, err := NewService(repo, Options{}).GetAvailability(ctx,
		AvailabilityQuery{HotelID: hotelID, RoomTypeID: roomTypeID, Start: day(25), End: day(26)})
	assert.ErrorIs(t, err, ErrRoomTypeNotFound)
}

func TestGetAvailabilityUsesCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisAvailabilityCache(client, time.Minute)

	repo := new(mockRepo)
	repo.On("BookedCounts", ctx, mock.Anything).
		Return([]Availability{{RoomTypeID: roomTypeID, Capacity: 2, BookedCount: 1, Free: 1}}, nil).Once()
	repo.On("BookedCounts", ctx, mock.Anything).
		Return([]Availability{{RoomTypeID: roomTypeID, Capacity: 2, BookedCount: 2, Free: 0}}, nil).Once()
	repo.On("InsertReservationWithUnits", ctx, mock.Anything, mock.Anything).Return("res-1", nil)

	svc := NewService(repo, Options{Cache: cache})
	q := AvailabilityQuery{HotelID: hotelID, Start: day(25), End: day(26)}

	first, err := svc.GetAvailability(ctx, q)
	require.NoError(t, err)
	second, err := svc.GetAvailability(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "BookedCounts", 1)

	// A committed reservation makes the cached answer unreachable.
	_, err = svc.CreateReservation(ctx, validRequest())
	require.NoError(t, err)

	third, err := svc.GetAvailability(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 0, third[0].Free)
	repo.AssertNumberOfCalls(t, "BookedCounts", 2)
}

func TestGetAvailabilityCacheDownFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	repo := new(mockRepo)
	repo.On("BookedCounts", ctx, mock.Anything).
		Return([]Availability{{RoomTypeID: roomTypeID, Capacity: 1, Free: 1}}, nil)

	items, err := NewService(repo, Options{Cache: NewRedisAvailabilityCache(client, time.Minute)}).
		GetAvailability(ctx, AvailabilityQuery{HotelID: hotelID, Start: day(25), End: day(26)})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	id := "3c2b1a09-8f7e-4d6c-9b5a-4f3e2d1c0b9a"

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("UpdateStatus", ctx, id, StatusCancelled).
			Return(&Reservation{ID: id, HotelID: hotelID, Status: StatusCancelled}, nil)

		res, err := NewService(repo, Options{}).UpdateStatus(ctx, id, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, res.Status)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		repo := new(mockRepo)
		_, err := NewService(repo, Options{}).UpdateStatus(ctx, id, Status("archived"))
		assert.ErrorIs(t, err, ErrInvalidRequest)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidTransition", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("UpdateStatus", ctx, id, StatusConfirmed).Return(nil, ErrInvalidStatusTransition)

		_, err := NewService(repo, Options{}).UpdateStatus(ctx, id, StatusConfirmed)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("MalformedID", func(t *testing.T) {
		_, err := NewService(new(mockRepo), Options{}).UpdateStatus(ctx, "nope", StatusCancelled)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
