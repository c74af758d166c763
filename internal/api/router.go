package api

import (
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/deskflow/booking-approval/docs"
	"github.com/deskflow/booking-approval/internal/api/handler"
	"github.com/deskflow/booking-approval/internal/api/metrics"
	"github.com/deskflow/booking-approval/internal/api/middleware"
	"github.com/deskflow/booking-approval/internal/core/domain"
	"github.com/deskflow/booking-approval/internal/core/ports"
	"github.com/deskflow/booking-approval/internal/core/service"
	"github.com/deskflow/booking-approval/pkg/logger"
)

// Deps are the collaborators and settings the router wires together.
type Deps struct {
	Users    ports.UserRepository
	Bookings ports.BookingRepository
	// Idempotency is optional; nil disables Idempotency-Key handling.
	Idempotency  ports.IdempotencyStore
	HealthChecks []handler.DependencyCheck

	JWTSecret   string
	TokenTTL    time.Duration
	BcryptCost  int
	CORSOrigins []string

	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, "Idempotency-Key",
		},
		ExposeHeaders: []string{echo.HeaderXRequestID, handler.HeaderIdempotencyReplayed},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:          "booking",
		Subsystem:          "http",
		Registerer:         reg,
		StatusCodeResolver: metricsStatus,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
		},
	}))

	// --- Dependencies ---
	tokens := service.NewTokenService(d.JWTSecret, d.TokenTTL)
	authService := service.NewAuthService(d.Users, tokens, d.BcryptCost, logger.Component(d.Logger, "auth"))
	bookingService := service.NewBookingService(d.Bookings, d.Idempotency, logger.Component(d.Logger, "booking"))

	authHandler := handler.NewAuthHandler(authService, m)
	bookingHandler := handler.NewBookingHandler(bookingService, m)

	// --- API routes ---
	api := e.Group("/api")
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)

	bookings := api.Group("/booking-requests", middleware.Auth(tokens))
	bookings.POST("", bookingHandler.Create, middleware.RBAC(domain.RoleEmployee))
	bookings.GET("", bookingHandler.List)
	bookings.GET("/:id", bookingHandler.Get)
	bookings.PUT("/:id/manager-action", bookingHandler.ManagerAction, middleware.RBAC(domain.RoleTeamManager))
	bookings.PUT("/:id/admin-action", bookingHandler.AdminAction, middleware.RBAC(domain.RoleAdmin))

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.HealthChecks...)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
