package config

import (
	"errors"
	"os"
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

	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	CORS           CORSConfig
	Log            LogConfig
	Timetable      TimetableConfig
	Recommendation RecommendationConfig
	Planner        PlannerConfig
	Warmup         WarmupConfig
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

// JWTConfig controls verification of externally issued access tokens.
type JWTConfig struct {
	Secret      string
	AuthEnabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig tunes the search, scoring and bell schedule.
type TimetableConfig struct {
	MaxNodes         int
	TopN             int
	ParallelSearch   bool
	PassRateWeight   float64
	EvaluationWeight float64
	HoursPerBlock    int
	// BellSchedule overrides the default schedule, e.g. "08:10-09:30,!09:30-09:40,09:40-11:00".
	BellSchedule string
}

// RecommendationConfig governs recommendation caching.
type RecommendationConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// PlannerConfig governs the institutional planner.
type PlannerConfig struct {
	ProposalTTL time.Duration
}

// WarmupConfig sizes the background recommendation warmup queue.
type WarmupConfig struct {
	Workers int
	Retries int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
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

	cfg.JWT = JWTConfig{
		Secret:      v.GetString("JWT_SECRET"),
		AuthEnabled: v.GetBool("AUTH_ENABLED"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		MaxNodes:         v.GetInt("TIMETABLE_MAX_NODES"),
		TopN:             v.GetInt("TIMETABLE_TOP_N"),
		ParallelSearch:   v.GetBool("TIMETABLE_PARALLEL_SEARCH"),
		PassRateWeight:   v.GetFloat64("TIMETABLE_PASS_RATE_WEIGHT"),
		EvaluationWeight: v.GetFloat64("TIMETABLE_EVALUATION_WEIGHT"),
		HoursPerBlock:    v.GetInt("TIMETABLE_HOURS_PER_BLOCK"),
		BellSchedule:     strings.TrimSpace(v.GetString("TIMETABLE_BELL_SCHEDULE")),
	}

	cfg.Recommendation = RecommendationConfig{
		CacheEnabled: v.GetBool("ENABLE_RECOMMENDATION_CACHE"),
		CacheTTL:     parseDuration(v.GetString("RECOMMENDATION_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Planner = PlannerConfig{
		ProposalTTL: parseDuration(v.GetString("PLANNER_PROPOSAL_TTL"), 30*time.Minute),
	}

	cfg.Warmup = WarmupConfig{
		Workers: v.GetInt("WARMUP_WORKERS"),
		Retries: v.GetInt("WARMUP_RETRIES"),
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
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("AUTH_ENABLED", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_MAX_NODES", 50000)
	v.SetDefault("TIMETABLE_TOP_N", 10)
	v.SetDefault("TIMETABLE_PARALLEL_SEARCH", false)
	v.SetDefault("TIMETABLE_PASS_RATE_WEIGHT", 0.5)
	v.SetDefault("TIMETABLE_EVALUATION_WEIGHT", 0.5)
	v.SetDefault("TIMETABLE_HOURS_PER_BLOCK", 2)
	v.SetDefault("TIMETABLE_BELL_SCHEDULE", "")

	v.SetDefault("ENABLE_RECOMMENDATION_CACHE", false)
	v.SetDefault("RECOMMENDATION_CACHE_TTL", "15m")
	v.SetDefault("PLANNER_PROPOSAL_TTL", "30m")
	v.SetDefault("WARMUP_WORKERS", 2)
	v.SetDefault("WARMUP_RETRIES", 3)
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
