package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the security service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Fraud     FraudConfig     `mapstructure:"fraud"`
	Biometric BiometricConfig `mapstructure:"biometric"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects and parameterizes the encrypted store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // memory or redis
	KeyPath string `mapstructure:"key_path"`
}

// RedisConfig holds Redis configuration for the redis store backend.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// FraudConfig holds the risk engine's rule weights and decision policy.
// The blocking and tier thresholds are tunable policy, not fixed law.
type FraudConfig struct {
	BlockThreshold      float64 `mapstructure:"block_threshold"`
	MediumTierThreshold float64 `mapstructure:"medium_tier_threshold"`
	HighTierThreshold   float64 `mapstructure:"high_tier_threshold"`

	BiometricFailWeight   float64       `mapstructure:"biometric_fail_weight"`
	AmountAnomalyMax      float64       `mapstructure:"amount_anomaly_max"`
	AmountAnomalyRatio    float64       `mapstructure:"amount_anomaly_ratio"`
	AmountAnomalySlope    float64       `mapstructure:"amount_anomaly_slope"`
	OddHourWeight         float64       `mapstructure:"odd_hour_weight"`
	RapidFireWeight       float64       `mapstructure:"rapid_fire_weight"`
	RapidFireWindow       time.Duration `mapstructure:"rapid_fire_window"`
	RoundAmountWeight     float64       `mapstructure:"round_amount_weight"`
	RoundAmountFloor      float64       `mapstructure:"round_amount_floor"`
	NewRecipientWeight    float64       `mapstructure:"new_recipient_weight"`
	NewRecipientMinAmount float64       `mapstructure:"new_recipient_min_amount"`
	DeviceAnomalyWeight   float64       `mapstructure:"device_anomaly_weight"`
	DeviceAnomalyRate     float64       `mapstructure:"device_anomaly_rate"`
	DailyVelocityWeight   float64       `mapstructure:"daily_velocity_weight"`
	DailyVelocityCount    int           `mapstructure:"daily_velocity_count"`

	NightStartHour int `mapstructure:"night_start_hour"`
	NightEndHour   int `mapstructure:"night_end_hour"`

	SuspiciousScore  float64 `mapstructure:"suspicious_score"`
	EnableHeuristics bool    `mapstructure:"enable_heuristics"`
}

// BiometricConfig holds verification thresholds and the authenticator
// simulation fallback parameters.
type BiometricConfig struct {
	FaceMatchThreshold  float64       `mapstructure:"face_match_threshold"`
	VoiceMatchThreshold float64       `mapstructure:"voice_match_threshold"`
	SimulationDelay     time.Duration `mapstructure:"simulation_delay"`
	SimulationSuccess   float64       `mapstructure:"simulation_success"`
	BreakerFailures     uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout      time.Duration `mapstructure:"breaker_timeout"`
}

// AlertsConfig holds alert retention policy.
type AlertsConfig struct {
	MaxRetained int `mapstructure:"max_retained"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
	Debug         bool    `mapstructure:"debug"`
}

// SecurityConfig holds session and CORS configuration.
type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FACETOPHONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/facetophone")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Storage defaults
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.key_path", "./data/storage.key")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.key_prefix", "ftp:")

	// Fraud engine defaults (reference rule weights)
	v.SetDefault("fraud.block_threshold", 0.6)
	v.SetDefault("fraud.medium_tier_threshold", 0.4)
	v.SetDefault("fraud.high_tier_threshold", 0.7)
	v.SetDefault("fraud.biometric_fail_weight", 0.8)
	v.SetDefault("fraud.amount_anomaly_max", 0.6)
	v.SetDefault("fraud.amount_anomaly_ratio", 3.0)
	v.SetDefault("fraud.amount_anomaly_slope", 0.2)
	v.SetDefault("fraud.odd_hour_weight", 0.3)
	v.SetDefault("fraud.rapid_fire_weight", 0.4)
	v.SetDefault("fraud.rapid_fire_window", "5m")
	v.SetDefault("fraud.round_amount_weight", 0.2)
	v.SetDefault("fraud.round_amount_floor", 1000.0)
	v.SetDefault("fraud.new_recipient_weight", 0.3)
	v.SetDefault("fraud.new_recipient_min_amount", 500.0)
	v.SetDefault("fraud.device_anomaly_weight", 0.7)
	v.SetDefault("fraud.device_anomaly_rate", 0.1)
	v.SetDefault("fraud.daily_velocity_weight", 0.4)
	v.SetDefault("fraud.daily_velocity_count", 5)
	v.SetDefault("fraud.night_start_hour", 22)
	v.SetDefault("fraud.night_end_hour", 6)
	v.SetDefault("fraud.suspicious_score", 0.5)
	v.SetDefault("fraud.enable_heuristics", true)

	// Biometric defaults
	v.SetDefault("biometric.face_match_threshold", 0.80)
	v.SetDefault("biometric.voice_match_threshold", 0.75)
	v.SetDefault("biometric.simulation_delay", "2s")
	v.SetDefault("biometric.simulation_success", 0.95)
	v.SetDefault("biometric.breaker_failures", 3)
	v.SetDefault("biometric.breaker_timeout", "30s")

	// Alerts defaults
	v.SetDefault("alerts.max_retained", 200)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "facetophone-security")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sampling_ratio", 0.1)
	v.SetDefault("telemetry.debug", false)

	// Security defaults
	v.SetDefault("security.jwt_secret", "dev-only-secret")
	v.SetDefault("security.session_ttl", "15m")
	v.SetDefault("security.allowed_origins", []string{"*"})
}

// FraudDefaults returns the engine policy with reference defaults, for
// tests and embedded callers that bypass viper.
func FraudDefaults() FraudConfig {
	return FraudConfig{
		BlockThreshold:        0.6,
		MediumTierThreshold:   0.4,
		HighTierThreshold:     0.7,
		BiometricFailWeight:   0.8,
		AmountAnomalyMax:      0.6,
		AmountAnomalyRatio:    3.0,
		AmountAnomalySlope:    0.2,
		OddHourWeight:         0.3,
		RapidFireWeight:       0.4,
		RapidFireWindow:       5 * time.Minute,
		RoundAmountWeight:     0.2,
		RoundAmountFloor:      1000.0,
		NewRecipientWeight:    0.3,
		NewRecipientMinAmount: 500.0,
		DeviceAnomalyWeight:   0.7,
		DeviceAnomalyRate:     0.1,
		DailyVelocityWeight:   0.4,
		DailyVelocityCount:    5,
		NightStartHour:        22,
		NightEndHour:          6,
		SuspiciousScore:       0.5,
		EnableHeuristics:      false,
	}
}
