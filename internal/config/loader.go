package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "studymate.yaml"

// envPrefix prefixes every StudyMate-specific environment variable.
const envPrefix = "STUDYMATE_"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// .env files are read first; the YAML file is optional.
func Load() (*Config, error) {
	LoadDotEnv()
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// LoadDotEnv loads .env and then .env.<APP_ENV> into the process
// environment. Variables already set in the environment win over .env, but
// the environment-specific file overrides .env. Missing files are ignored.
// It returns the files that were loaded.
func LoadDotEnv() []string {
	var loaded []string
	if err := godotenv.Load(".env"); err == nil {
		loaded = append(loaded, ".env")
	}
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	envFile := ".env." + appEnv
	if err := godotenv.Overload(envFile); err == nil {
		loaded = append(loaded, envFile)
	}
	return loaded
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator flags
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, envPrefix+"PORT")
	setString(&cfg.Server.CORSOrigin, envPrefix+"CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, envPrefix+"REQUEST_TIMEOUT")
	setFloat64(&cfg.Server.ChatRate, envPrefix+"CHAT_RATE")
	setInt(&cfg.Server.ChatBurst, envPrefix+"CHAT_BURST")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, envPrefix+"PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, envPrefix+"PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, envPrefix+"PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, envPrefix+"PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, envPrefix+"PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Enabled, envPrefix+"NATS_ENABLED")

	// LLM: GROQ_API_KEY is accepted as an alias; LLM_API_KEY wins.
	setString(&cfg.LLM.Provider, envPrefix+"LLM_PROVIDER")
	setString(&cfg.LLM.URL, "LITELLM_URL")
	setString(&cfg.LLM.URL, envPrefix+"LLM_URL")
	setString(&cfg.LLM.APIKey, "GROQ_API_KEY")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.Model, envPrefix+"LLM_MODEL")
	setString(&cfg.LLM.ClassifierModel, envPrefix+"LLM_CLASSIFIER_MODEL")
	setFloat64(&cfg.LLM.Temperature, envPrefix+"LLM_TEMPERATURE")
	setInt(&cfg.LLM.MaxTokens, envPrefix+"LLM_MAX_TOKENS")
	setDuration(&cfg.LLM.Timeout, envPrefix+"LLM_TIMEOUT")

	setString(&cfg.Logging.Level, envPrefix+"LOG_LEVEL")
	setString(&cfg.Logging.Service, envPrefix+"LOG_SERVICE")
	setBool(&cfg.Logging.Async, envPrefix+"LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, envPrefix+"BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, envPrefix+"BREAKER_TIMEOUT")

	setInt64(&cfg.Cache.L1MaxSizeMB, envPrefix+"CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, envPrefix+"CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, envPrefix+"CACHE_L2_TTL")
	setDuration(&cfg.Cache.ConfirmationTTL, envPrefix+"CONFIRMATION_TTL")
	setDuration(&cfg.Cache.RoleTTL, envPrefix+"ROLE_CACHE_TTL")

	setString(&cfg.Assistant.TimeZone, envPrefix+"TIMEZONE")
	setInt(&cfg.Assistant.SmallTalkHistory, envPrefix+"SMALL_TALK_HISTORY")
	setInt(&cfg.Assistant.ExtractionHistory, envPrefix+"EXTRACTION_HISTORY")
	setInt(&cfg.Assistant.TaskFetchLimit, envPrefix+"TASK_FETCH_LIMIT")
	setInt(&cfg.Assistant.QuizFetchLimit, envPrefix+"QUIZ_FETCH_LIMIT")

	setBool(&cfg.Telemetry.Enabled, envPrefix+"OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, envPrefix+"OTEL_INSECURE")
	setString(&cfg.Telemetry.ServiceVersion, envPrefix+"VERSION")
	setFloat64(&cfg.Telemetry.SampleRate, envPrefix+"OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.ChatRate > 0 && cfg.Server.ChatBurst < 1 {
		return errors.New("server.chat_burst must be >= 1 when chat_rate is set")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	switch cfg.LLM.Provider {
	case ProviderLiteLLM, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderLiteLLM, ProviderOpenAI, cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if _, err := time.LoadLocation(cfg.Assistant.TimeZone); err != nil {
		return fmt.Errorf("assistant.timezone: %w", err)
	}
	if cfg.Assistant.SmallTalkHistory < 1 || cfg.Assistant.ExtractionHistory < 1 {
		return errors.New("assistant history windows must be >= 1")
	}
	if cfg.Assistant.TaskFetchLimit < 1 || cfg.Assistant.QuizFetchLimit < 1 {
		return errors.New("assistant fetch limits must be >= 1")
	}
	if cfg.Cache.ConfirmationTTL <= 0 {
		return errors.New("cache.confirmation_ttl must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
