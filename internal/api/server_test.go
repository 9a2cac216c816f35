package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetophone/security-service/internal/alerts"
	"github.com/facetophone/security-service/internal/biometric"
	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/eventlog"
	"github.com/facetophone/security-service/internal/fraud"
	"github.com/facetophone/security-service/internal/pkg/logger"
	"github.com/facetophone/security-service/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Fraud: config.FraudDefaults(),
		Biometric: config.BiometricConfig{
			FaceMatchThreshold:  0.80,
			VoiceMatchThreshold: 0.75,
			SimulationDelay:     time.Millisecond,
			SimulationSuccess:   0.95,
			BreakerFailures:     3,
			BreakerTimeout:      time.Minute,
		},
		Alerts: config.AlertsConfig{MaxRetained: 200},
		Security: config.SecurityConfig{
			JWTSecret:      "test-secret",
			SessionTTL:     15 * time.Minute,
			AllowedOrigins: []string{"*"},
		},
	}

	log := logger.NewNop()
	codec, err := storage.NewCodec(bytes.Repeat([]byte{0x0c}, storage.KeySize))
	require.NoError(t, err)
	store := storage.NewMemoryStore(codec)

	rng := fraud.NewFixedRandomSource(0.5)
	monitor := alerts.NewMonitor(store, log, cfg.Alerts.MaxRetained, cfg.Fraud.SuspiciousScore)
	events := eventlog.New(store, log, monitor)
	engine := fraud.NewEngine(cfg.Fraud, log, fraud.WithRandomSource(rng))
	processor := fraud.NewProcessor(engine, store, events, monitor, log)
	matcher := biometric.NewMatcher(rng)
	biometrics := biometric.NewService(store, matcher, cfg.Biometric, rng, log)
	authenticator := biometric.NewAuthenticator(nil, cfg.Biometric, rng, log)

	return NewServer(cfg, log, processor, biometrics, authenticator, events, monitor)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestEnrollAndVerifyIssuesSession(t *testing.T) {
	s := newTestServer(t)
	vector := []float64{0.1, 0.5, 0.9}

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/biometric/enroll", map[string]any{
		"user_id": "u1", "type": "face", "vector": vector,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "face", body["type"])

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/biometric/verify", map[string]any{
		"user_id": "u1", "type": "face", "vector": vector,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["matched"])

	tokenStr, ok := body["session_token"].(string)
	require.True(t, ok, "matched verification must carry a session token")

	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerifyMismatchReturnsGuidance(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/biometric/enroll", map[string]any{
		"user_id": "u1", "type": "face", "vector": []float64{1, 0, 0},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/biometric/verify", map[string]any{
		"user_id": "u1", "type": "face", "vector": []float64{0, 1, 0},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["matched"])
	assert.NotEmpty(t, body["guidance"])
	assert.Nil(t, body["session_token"])
}

func TestVerifyUnknownUserIs404(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/biometric/verify", map[string]any{
		"user_id": "stranger", "type": "face", "vector": []float64{0.1},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnrollValidationIs400(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/biometric/enroll", map[string]any{
		"user_id": "", "type": "face", "vector": []float64{0.1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionFlow(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"user_id": "u1", "amount": 50.0, "recipient": "Jane", "user_verified": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	result := body["result"].(map[string]any)
	assert.Equal(t, false, result["is_blocked"])

	rec, profile := doJSON(t, s, http.MethodGet, "/api/v1/profiles/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", profile["user_id"])
}

func TestTransactionValidationIs400(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"user_id": "u1", "amount": -5.0, "recipient": "Jane", "user_verified": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlockedTransactionSurfacesAlertsAndEvents(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"user_id": "u1", "amount": 100.0, "recipient": "Jane", "user_verified": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["result"].(map[string]any)
	require.Equal(t, true, result["is_blocked"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	alertsRec := httptest.NewRecorder()
	s.Echo().ServeHTTP(alertsRec, req)
	require.Equal(t, http.StatusOK, alertsRec.Code)

	var raised []map[string]any
	require.NoError(t, json.Unmarshal(alertsRec.Body.Bytes(), &raised))
	assert.NotEmpty(t, raised)

	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/events?user_id=u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAlertResolve(t *testing.T) {
	s := newTestServer(t)

	// Raise an alert through a blocked transaction.
	doJSON(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"user_id": "u1", "amount": 100.0, "recipient": "Jane", "user_verified": false,
	})
	list := s.monitor.List()
	require.NotEmpty(t, list)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/alerts/"+list[0].ID.String()+"/resolve", map[string]any{
		"resolved_by": "analyst-7",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["resolved"])
}

func TestAlertResolveUnknownIs404(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/alerts/0b37d3e4-7f12-4b6a-9b3e-000000000000/resolve", map[string]any{
		"resolved_by": "analyst-7",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventReportDownload(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"user_id": "u1", "amount": 50.0, "recipient": "Jane", "user_verified": true,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/report?user_id=u1", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "security-report.json")

	var report eventlog.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TotalEvents)
}
