// Package api exposes the demo HTTP surface over the security core.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/facetophone/security-service/internal/alerts"
	"github.com/facetophone/security-service/internal/biometric"
	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/eventlog"
	"github.com/facetophone/security-service/internal/fraud"
	"github.com/facetophone/security-service/internal/pkg/logger"
)

// Server wires the core services into echo routes.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	log  *logger.Logger

	processor     *fraud.Processor
	biometrics    *biometric.Service
	authenticator *biometric.Authenticator
	events        *eventlog.Log
	monitor       *alerts.Monitor
}

// NewServer builds the echo application with the service's standard
// middleware stack: logging, panic recovery, request ids, security
// headers, CORS.
func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	processor *fraud.Processor,
	biometrics *biometric.Service,
	authenticator *biometric.Authenticator,
	events *eventlog.Log,
	monitor *alerts.Monitor,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	s := &Server{
		echo:          e,
		cfg:           cfg,
		log:           log.Named("api"),
		processor:     processor,
		biometrics:    biometrics,
		authenticator: authenticator,
		events:        events,
		monitor:       monitor,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")

	v1.POST("/biometric/enroll", s.handleEnroll)
	v1.POST("/biometric/verify", s.handleVerify)
	v1.POST("/authenticator/register", s.handleAuthenticatorRegister)
	v1.POST("/authenticator/authenticate", s.handleAuthenticatorAuthenticate)

	v1.POST("/transactions", s.handleTransaction)
	v1.GET("/profiles/:userID", s.handleProfile)
	v1.POST("/profiles/:userID/rebuild", s.handleProfileRebuild)

	v1.GET("/alerts", s.handleAlerts)
	v1.GET("/alerts/stats", s.handleAlertStats)
	v1.POST("/alerts/:id/resolve", s.handleAlertResolve)

	v1.GET("/events", s.handleEvents)
	v1.GET("/events/report", s.handleEventReport)
}

// Start begins serving on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Echo exposes the underlying echo instance for lifecycle management.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
