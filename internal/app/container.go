package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/hotel-booking-backend/internal/api"
	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/events"
	"github.com/nekogravitycat/hotel-booking-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/retry"
	"github.com/nekogravitycat/hotel-booking-backend/internal/reservation"
	"github.com/nekogravitycat/hotel-booking-backend/internal/roomtype"
	"github.com/nekogravitycat/hotel-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       zerolog.Logger
	DBPool       *pgxpool.Pool
	Redis        *redis.Client    // optional; enables the availability cache and a shared limiter
	Publisher    events.Publisher // optional
	JWTSecret    string
	JWTTTL       time.Duration
	PasswordCost int

	AvailabilityCacheTTL time.Duration
	RateLimitRPS         float64
	RateLimitBurst       int

	Isolation      string
	LockTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router             *gin.Engine
	JWTManager         *auth.JWTManager
	ReservationService reservation.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.PasswordCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// Hotel Module
	hotelRepo := hotel.NewPgxRepository(cfg.DBPool)
	hotelService := hotel.NewService(hotelRepo)

	// RoomType Module
	rtRepo := roomtype.NewPgxRepository(cfg.DBPool)
	rtService := roomtype.NewService(rtRepo, hotelService)

	// Reservation Module
	resRepo := reservation.NewPgxRepository(cfg.DBPool, reservation.StoreOptions{
		Isolation:    cfg.Isolation,
		LockTimeout:  cfg.LockTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	resOpts := reservation.Options{
		Retry: retry.Policy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.RetryBaseDelay,
		},
		Publisher: cfg.Publisher,
	}
	if cfg.Redis != nil {
		resOpts.Cache = reservation.NewRedisAvailabilityCache(cfg.Redis, cfg.AvailabilityCacheTTL)
	}
	resService := reservation.NewService(resRepo, resOpts)

	// A Redis limiter is shared by every replica; the local one is per process.
	var limiter ratelimit.Limiter
	if cfg.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(cfg.Redis, cfg.RateLimitBurst, time.Second)
	} else {
		limiter = ratelimit.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		Logger:             cfg.Logger,
		DB:                 cfg.DBPool,
		UserService:        userService,
		HotelService:       hotelService,
		RoomTypeService:    rtService,
		ReservationService: resService,
		JWTManager:         jwtManager,
		Limiter:            limiter,
	})

	return &Container{
		Router:             router,
		JWTManager:         jwtManager,
		ReservationService: resService,
	}
}
