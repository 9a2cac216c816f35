package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type enrollRequest struct {
	UserID string                   `json:"user_id"`
	Type   domain.BiometricModality `json:"type"`
	Vector []float64                `json:"vector"`
}

func (s *Server) handleEnroll(c echo.Context) error {
	var req enrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	template, err := s.biometrics.Enroll(c.Request().Context(), req.UserID, req.Type, req.Vector)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"template_id": template.ID,
		"type":        template.Type,
		"confidence":  template.Confidence,
	})
}

type verifyRequest struct {
	UserID string                   `json:"user_id"`
	Type   domain.BiometricModality `json:"type"`
	Vector []float64                `json:"vector"`
}

func (s *Server) handleVerify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := s.biometrics.Verify(c.Request().Context(), req.UserID, req.Type, req.Vector)
	if err != nil {
		return s.mapError(err)
	}

	resp := map[string]any{
		"matched":    result.Matched,
		"similarity": result.Similarity,
		"threshold":  result.Threshold,
	}
	if result.Matched {
		token, err := s.issueSession(req.UserID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue session")
		}
		resp["session_token"] = token
	} else {
		// Actionable guidance rather than raw failure text.
		resp["guidance"] = "biometric verification failed - retry or contact support"
	}
	return c.JSON(http.StatusOK, resp)
}

type authenticatorRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *Server) handleAuthenticatorRegister(c echo.Context) error {
	var req authenticatorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	ok, err := s.authenticator.Register(c.Request().Context(), req.UserID, req.DisplayName)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"registered": ok})
}

func (s *Server) handleAuthenticatorAuthenticate(c echo.Context) error {
	var req authenticatorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	ok, err := s.authenticator.Authenticate(c.Request().Context(), req.UserID)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"authenticated": ok})
}

type transactionRequest struct {
	UserID           string            `json:"user_id"`
	Amount           float64           `json:"amount"`
	Recipient        string            `json:"recipient"`
	UserVerified     bool              `json:"user_verified"`
	Location         string            `json:"location,omitempty"`
	DeviceAttributes map[string]string `json:"device_attributes,omitempty"`
}

func (s *Server) handleTransaction(c echo.Context) error {
	var req transactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	tx := &domain.Transaction{
		UserID:       req.UserID,
		Amount:       req.Amount,
		Recipient:    req.Recipient,
		Timestamp:    time.Now(),
		UserVerified: req.UserVerified,
		Location:     req.Location,
	}
	if len(req.DeviceAttributes) > 0 {
		tx.DeviceFingerprint = domain.DeviceFingerprint(req.DeviceAttributes)
	}

	record, result, err := s.processor.Process(c.Request().Context(), tx)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"record": record,
		"result": result,
	})
}

func (s *Server) handleProfile(c echo.Context) error {
	profile, err := s.processor.Profile(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleProfileRebuild(c echo.Context) error {
	profile, err := s.processor.RebuildProfile(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleAlerts(c echo.Context) error {
	return c.JSON(http.StatusOK, s.monitor.List())
}

func (s *Server) handleAlertStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.monitor.Stats())
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

func (s *Server) handleAlertResolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed alert id")
	}
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if !s.monitor.Resolve(id, req.ResolvedBy) {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	return c.JSON(http.StatusOK, map[string]bool{"resolved": true})
}

func (s *Server) handleEvents(c echo.Context) error {
	filter := s.eventFilter(c)
	events, err := s.events.Query(c.Request().Context(), filter)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) handleEventReport(c echo.Context) error {
	artifact, err := s.events.Export(c.Request().Context(), s.eventFilter(c))
	if err != nil {
		return s.mapError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="security-report.json"`)
	return c.Blob(http.StatusOK, artifact.MIMEType, artifact.Bytes)
}

func (s *Server) eventFilter(c echo.Context) domain.EventFilter {
	filter := domain.EventFilter{
		Type:     domain.EventType(c.QueryParam("type")),
		Severity: domain.Severity(c.QueryParam("severity")),
		UserID:   c.QueryParam("user_id"),
	}
	if from := c.QueryParam("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = t
		}
	}
	if to := c.QueryParam("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = t
		}
	}
	return filter
}

// issueSession mints a short-lived session token after a successful
// biometric verification.
func (s *Server) issueSession(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Security.SessionTTL)),
		Issuer:    "facetophone-security",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Security.JWTSecret))
}

// mapError translates the error taxonomy to HTTP statuses. Validation
// mistakes are 400, missing records 404, everything else 500.
func (s *Server) mapError(err error) error {
	switch {
	case domain.IsValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
