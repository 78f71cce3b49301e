package roomtype

import (
	"context"
	"errors"
	"strings"

	"github.com/nekogravitycat/hotel-booking-backend/internal/hotel"
)

type CreateRequest struct {
	HotelID  string
	Name     string
	Capacity int
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*RoomType, error)
	GetByID(ctx context.Context, id string) (*RoomType, error)
	List(ctx context.Context, filter Filter) ([]*RoomType, int, error)
}

type service struct {
	repo         Repository
	hotelService hotel.Service
}

func NewService(repo Repository, hotelService hotel.Service) Service {
	return &service{repo: repo, hotelService: hotelService}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*RoomType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Capacity < 1 || req.Capacity > MaxCapacity {
		return nil, ErrInvalidCapacity
	}

	if _, err := s.hotelService.GetByID(ctx, req.HotelID); err != nil {
		if errors.Is(err, hotel.ErrNotFound) {
			return nil, ErrHotelNotFound
		}
		return nil, err
	}

	rt := &RoomType{
		HotelID:  req.HotelID,
		Name:     name,
		Capacity: req.Capacity,
	}
	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*RoomType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*RoomType, int, error) {
	return s.repo.List(ctx, filter)
}
