package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr        = ":8080"
	defaultNotesDBPath       = "pulseai.db"
	defaultPatientCSVPath    = "patients.csv"
	defaultLLMBaseURL        = "http://localhost:11434/v1"
	defaultLLMModel          = "llama3.1"
	defaultWorkers           = 5
	defaultJanitorInterval   = 2 * time.Minute
	defaultStaleAfter        = 5 * time.Minute
	defaultProcessingTimeout = 10 * time.Minute

	envListenAddr        = "PULSEAI_LISTEN_ADDR"
	envNotesDBPath       = "PULSEAI_NOTES_DB_PATH"
	envPatientCSVPath    = "PULSEAI_PATIENT_CSV"
	envLLMBaseURL        = "PULSEAI_LLM_BASE_URL"
	envLLMAPIKey         = "PULSEAI_LLM_API_KEY"
	envLLMModel          = "PULSEAI_LLM_MODEL"
	envWorkers           = "PULSEAI_WORKERS"
	envJanitorInterval   = "PULSEAI_JANITOR_INTERVAL"
	envStaleAfter        = "PULSEAI_STALE_AFTER"
	envProcessingTimeout = "PULSEAI_PROCESSING_TIMEOUT"
	envLogLevel          = "PULSEAI_LOG_LEVEL"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	NotesDBPath    string
	PatientCSVPath string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	Workers           int
	JanitorInterval   time.Duration
	StaleAfter        time.Duration
	ProcessingTimeout time.Duration

	LogLevel slog.Level
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:        envStr(envListenAddr, defaultListenAddr),
		NotesDBPath:       envStr(envNotesDBPath, defaultNotesDBPath),
		PatientCSVPath:    envStr(envPatientCSVPath, defaultPatientCSVPath),
		LLMBaseURL:        envStr(envLLMBaseURL, defaultLLMBaseURL),
		LLMAPIKey:         envStr(envLLMAPIKey, ""),
		LLMModel:          envStr(envLLMModel, defaultLLMModel),
		Workers:           envInt(envWorkers, defaultWorkers),
		JanitorInterval:   envDuration(envJanitorInterval, defaultJanitorInterval),
		StaleAfter:        envDuration(envStaleAfter, defaultStaleAfter),
		ProcessingTimeout: envDuration(envProcessingTimeout, defaultProcessingTimeout),
		LogLevel:          slog.LevelInfo,
	}

	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}

	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
