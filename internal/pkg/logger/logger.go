package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with security-service specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
	SessionIDKey ContextKey = "session_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "test"}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok && sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithUser returns a logger with user context
func (l *Logger) WithUser(userID string) *Logger {
	return &Logger{
		Logger:      l.With(zap.String("user_id", userID)),
		serviceName: l.serviceName,
	}
}

// AnalysisCompleted logs the outcome of a fraud analysis
func (l *Logger) AnalysisCompleted(userID string, score float64, riskLevel string, blocked bool, durationMs int64) {
	l.Info("fraud analysis completed",
		zap.String("user_id", userID),
		zap.Float64("risk_score", score),
		zap.String("risk_level", riskLevel),
		zap.Bool("blocked", blocked),
		zap.Int64("duration_ms", durationMs),
	)
}

// TransactionBlocked logs a blocked transaction attempt
func (l *Logger) TransactionBlocked(userID string, amount float64, reasons []string) {
	l.Warn("transaction blocked",
		zap.String("user_id", userID),
		zap.Float64("amount", amount),
		zap.Strings("reasons", reasons),
	)
}

// VerificationCompleted logs a biometric verification outcome
func (l *Logger) VerificationCompleted(userID, modality string, similarity float64, matched bool) {
	l.Info("biometric verification completed",
		zap.String("user_id", userID),
		zap.String("modality", modality),
		zap.Float64("similarity", similarity),
		zap.Bool("matched", matched),
	)
}

// TemplateEnrolled logs a biometric enrollment
func (l *Logger) TemplateEnrolled(userID, modality string, confidence float64) {
	l.Info("biometric template enrolled",
		zap.String("user_id", userID),
		zap.String("modality", modality),
		zap.Float64("confidence", confidence),
	)
}

// AlertRaised logs alert creation
func (l *Logger) AlertRaised(alertID, alertType, severity, title string) {
	l.Warn("security alert raised",
		zap.String("alert_id", alertID),
		zap.String("alert_type", alertType),
		zap.String("severity", severity),
		zap.String("title", title),
	)
}

// EventAppendFailed logs a swallowed event-log persistence failure
func (l *Logger) EventAppendFailed(eventType string, err error) {
	l.Error("failed to persist security event",
		zap.String("event_type", eventType),
		zap.Error(err),
	)
}

// AuthenticatorFallback logs a switch to the simulation fallback
func (l *Logger) AuthenticatorFallback(userID string, reason string) {
	l.Warn("platform authenticator unavailable, using simulation",
		zap.String("user_id", userID),
		zap.String("reason", reason),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// BoolField creates a bool field
func BoolField(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}
