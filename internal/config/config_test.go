package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.NotesDBPath != "pulseai.db" {
		t.Errorf("NotesDBPath = %q, want pulseai.db", cfg.NotesDBPath)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want 5", cfg.Workers)
	}
	if cfg.JanitorInterval != 2*time.Minute {
		t.Errorf("JanitorInterval = %v, want 2m", cfg.JanitorInterval)
	}
	if cfg.StaleAfter != 5*time.Minute {
		t.Errorf("StaleAfter = %v, want 5m", cfg.StaleAfter)
	}
	if cfg.ProcessingTimeout != 10*time.Minute {
		t.Errorf("ProcessingTimeout = %v, want 10m", cfg.ProcessingTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PULSEAI_LISTEN_ADDR", ":9191")
	t.Setenv("PULSEAI_NOTES_DB_PATH", "/tmp/notes.db")
	t.Setenv("PULSEAI_PATIENT_CSV", "/tmp/patients.csv")
	t.Setenv("PULSEAI_LLM_BASE_URL", "http://llm.internal:8000/v1")
	t.Setenv("PULSEAI_LLM_MODEL", "mistral")
	t.Setenv("PULSEAI_WORKERS", "12")
	t.Setenv("PULSEAI_JANITOR_INTERVAL", "30s")
	t.Setenv("PULSEAI_STALE_AFTER", "1m")
	t.Setenv("PULSEAI_PROCESSING_TIMEOUT", "45s")
	t.Setenv("PULSEAI_LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.ListenAddr != ":9191" {
		t.Errorf("ListenAddr = %q, want :9191", cfg.ListenAddr)
	}
	if cfg.NotesDBPath != "/tmp/notes.db" {
		t.Errorf("NotesDBPath = %q", cfg.NotesDBPath)
	}
	if cfg.PatientCSVPath != "/tmp/patients.csv" {
		t.Errorf("PatientCSVPath = %q", cfg.PatientCSVPath)
	}
	if cfg.LLMBaseURL != "http://llm.internal:8000/v1" {
		t.Errorf("LLMBaseURL = %q", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "mistral" {
		t.Errorf("LLMModel = %q", cfg.LLMModel)
	}
	if cfg.Workers != 12 {
		t.Errorf("Workers = %d, want 12", cfg.Workers)
	}
	if cfg.JanitorInterval != 30*time.Second {
		t.Errorf("JanitorInterval = %v, want 30s", cfg.JanitorInterval)
	}
	if cfg.StaleAfter != time.Minute {
		t.Errorf("StaleAfter = %v, want 1m", cfg.StaleAfter)
	}
	if cfg.ProcessingTimeout != 45*time.Second {
		t.Errorf("ProcessingTimeout = %v, want 45s", cfg.ProcessingTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("PULSEAI_WORKERS", "not-a-number")
	t.Setenv("PULSEAI_JANITOR_INTERVAL", "garbage")
	t.Setenv("PULSEAI_STALE_AFTER", "-5m")
	t.Setenv("PULSEAI_LOG_LEVEL", "loud")

	cfg := Load()

	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want default on parse failure", cfg.Workers)
	}
	if cfg.JanitorInterval != 2*time.Minute {
		t.Errorf("JanitorInterval = %v, want default on parse failure", cfg.JanitorInterval)
	}
	if cfg.StaleAfter != 5*time.Minute {
		t.Errorf("StaleAfter = %v, want default for non-positive duration", cfg.StaleAfter)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info for unknown level", cfg.LogLevel)
	}
}

func TestLoadRejectsNonPositiveWorkers(t *testing.T) {
	t.Setenv("PULSEAI_WORKERS", "0")

	if cfg := Load(); cfg.Workers != 5 {
		t.Errorf("Workers = %d, want default for zero", cfg.Workers)
	}
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want test message", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want value", entry["key"])
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info record written below configured level: %s", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("warn record not written at configured level")
	}
}
