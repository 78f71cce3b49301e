package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/config"
	"github.com/nekogravitycat/hotel-booking-backend/internal/db"
	"github.com/nekogravitycat/hotel-booking-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-booking-backend/internal/logging"
	"github.com/nekogravitycat/hotel-booking-backend/internal/roomtype"
	"github.com/nekogravitycat/hotel-booking-backend/internal/user"
)

// SeedFile is the reference data loaded by the seed command.
type SeedFile struct {
	Admin  *SeedAdmin  `yaml:"admin"`
	Hotels []SeedHotel `yaml:"hotels"`
}

type SeedAdmin struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
}

type SeedHotel struct {
	Name      string         `yaml:"name"`
	Address   string         `yaml:"address"`
	Timezone  string         `yaml:"timezone"`
	RoomTypes []SeedRoomType `yaml:"room_types"`
}

type SeedRoomType struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	seedPath := flag.String("file", "configs/seed.yaml", "path to the seed file")
	flag.Parse()

	seed, err := loadSeed(*seedPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Env: cfg.AppEnv})

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBDSN, 2)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	hotelService := hotel.NewService(hotel.NewPgxRepository(pool))
	rtService := roomtype.NewService(roomtype.NewPgxRepository(pool), hotelService)

	if seed.Admin != nil {
		hasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
		if err := seedAdmin(ctx, user.NewPgxRepository(pool), hasher, *seed.Admin); err != nil {
			return err
		}
	}

	hotels, roomTypes := 0, 0
	for _, h := range seed.Hotels {
		hotelID, created, err := ensureHotel(ctx, hotelService, h)
		if err != nil {
			return err
		}
		if created {
			hotels++
		}

		for _, rt := range h.RoomTypes {
			_, err := rtService.Create(ctx, roomtype.CreateRequest{HotelID: hotelID, Name: rt.Name, Capacity: rt.Capacity})
			if errors.Is(err, roomtype.ErrDuplicateName) {
				continue
			}
			if err != nil {
				return fmt.Errorf("create room type %s/%s: %w", h.Name, rt.Name, err)
			}
			roomTypes++
		}
	}

	logger.Info().Int("hotels", hotels).Int("room_types", roomTypes).Msg("seed done")
	return nil
}

func loadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *SeedFile) validate() error {
	if len(s.Hotels) == 0 {
		return errors.New("no hotels in seed file")
	}
	for _, h := range s.Hotels {
		if strings.TrimSpace(h.Name) == "" {
			return errors.New("hotel without a name")
		}
		for _, rt := range h.RoomTypes {
			if rt.Capacity < 1 || rt.Capacity > roomtype.MaxCapacity {
				return fmt.Errorf("room type %s/%s: capacity must be between 1 and %d", h.Name, rt.Name, roomtype.MaxCapacity)
			}
		}
	}
	if s.Admin != nil && (s.Admin.Email == "" || len(s.Admin.Password) < 8) {
		return errors.New("admin needs an email and a password of at least 8 characters")
	}
	return nil
}

func seedAdmin(ctx context.Context, repo user.Repository, hasher auth.PasswordHasher, a SeedAdmin) error {
	hash, err := hasher.Hash(a.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	u := &user.User{
		Email:         strings.ToLower(strings.TrimSpace(a.Email)),
		PasswordHash:  hash,
		IsActive:      true,
		IsSystemAdmin: true,
	}
	if a.DisplayName != "" {
		u.DisplayName = &a.DisplayName
	}

	err = repo.Create(ctx, u)
	if errors.Is(err, user.ErrEmailAlreadyUsed) {
		zerolog.Ctx(ctx).Info().Str("email", u.Email).Msg("admin already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("email", u.Email).Msg("admin created")
	return nil
}

// ensureHotel returns the id of the hotel with exactly this name, creating it if needed.
func ensureHotel(ctx context.Context, svc hotel.Service, h SeedHotel) (string, bool, error) {
	existing, _, err := svc.List(ctx, hotel.Filter{Name: h.Name, Page: 1, PageSize: 100})
	if err != nil {
		return "", false, fmt.Errorf("look up hotel %s: %w", h.Name, err)
	}
	for _, e := range existing {
		if e.Name == h.Name {
			return e.ID, false, nil
		}
	}

	created, err := svc.Create(ctx, hotel.CreateRequest{Name: h.Name, Address: h.Address, Timezone: h.Timezone})
	if err != nil {
		return "", false, fmt.Errorf("create hotel %s: %w", h.Name, err)
	}
	return created.ID, true, nil
}
