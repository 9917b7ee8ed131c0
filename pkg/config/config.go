package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	AuthService AuthServiceConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Cache       CacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// KafkaConfig carries broker addresses, the consumer group identity and
// the topics used for domain events.
type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  KafkaTopics
}

// KafkaTopics names the destination topic per student event type.
type KafkaTopics struct {
	StudentCreated       string
	StudentUpdated       string
	StudentDeleted       string
	StudentStatusChanged string
}

// AuthServiceConfig configures the remote identity-provisioning client.
type AuthServiceConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int
	RetryInterval  time.Duration
	RetryMaxDelay  time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the read-through student cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Kafka = KafkaConfig{
		Brokers: splitAndTrim(v.GetString("KAFKA_BROKERS")),
		GroupID: v.GetString("KAFKA_GROUP_ID"),
		Topics: KafkaTopics{
			StudentCreated:       v.GetString("KAFKA_TOPIC_STUDENT_CREATED"),
			StudentUpdated:       v.GetString("KAFKA_TOPIC_STUDENT_UPDATED"),
			StudentDeleted:       v.GetString("KAFKA_TOPIC_STUDENT_DELETED"),
			StudentStatusChanged: v.GetString("KAFKA_TOPIC_STUDENT_STATUS_CHANGED"),
		},
	}

	cfg.AuthService = AuthServiceConfig{
		BaseURL:        v.GetString("AUTH_SERVICE_URL"),
		ConnectTimeout: parseDuration(v.GetString("AUTH_SERVICE_CONNECT_TIMEOUT"), 5*time.Second),
		ReadTimeout:    parseDuration(v.GetString("AUTH_SERVICE_READ_TIMEOUT"), 10*time.Second),
		MaxAttempts:    v.GetInt("AUTH_SERVICE_MAX_ATTEMPTS"),
		RetryInterval:  parseDuration(v.GetString("AUTH_SERVICE_RETRY_INTERVAL"), 100*time.Millisecond),
		RetryMaxDelay:  parseDuration(v.GetString("AUTH_SERVICE_RETRY_MAX_DELAY"), time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "student_management")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_ID", "student-management-service")
	v.SetDefault("KAFKA_TOPIC_STUDENT_CREATED", "distrischool.student.created")
	v.SetDefault("KAFKA_TOPIC_STUDENT_UPDATED", "distrischool.student.updated")
	v.SetDefault("KAFKA_TOPIC_STUDENT_DELETED", "distrischool.student.deleted")
	v.SetDefault("KAFKA_TOPIC_STUDENT_STATUS_CHANGED", "distrischool.student.status-changed")

	v.SetDefault("AUTH_SERVICE_URL", "http://localhost:8081")
	v.SetDefault("AUTH_SERVICE_CONNECT_TIMEOUT", "5s")
	v.SetDefault("AUTH_SERVICE_READ_TIMEOUT", "10s")
	v.SetDefault("AUTH_SERVICE_MAX_ATTEMPTS", 3)
	v.SetDefault("AUTH_SERVICE_RETRY_INTERVAL", "100ms")
	v.SetDefault("AUTH_SERVICE_RETRY_MAX_DELAY", "1s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_TTL", "10m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
