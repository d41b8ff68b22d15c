package main

import (
	"context"
	"log"
	"os"

	"github.com/irzumbm/pulseai/internal/api"
	"github.com/irzumbm/pulseai/internal/chat"
	"github.com/irzumbm/pulseai/internal/config"
	"github.com/irzumbm/pulseai/internal/executor"
	"github.com/irzumbm/pulseai/internal/llm"
	"github.com/irzumbm/pulseai/internal/notes"
	"github.com/irzumbm/pulseai/internal/patients"
	"github.com/irzumbm/pulseai/internal/registry"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("pulseai: starting",
		"listen_addr", cfg.ListenAddr,
		"notes_db_path", cfg.NotesDBPath,
		"patient_csv", cfg.PatientCSVPath,
		"workers", cfg.Workers,
	)

	db, err := notes.NewSQLiteStore(cfg.NotesDBPath)
	if err != nil {
		log.Fatalf("failed to open notes database: %v", err)
	}
	defer db.Close()

	directory, err := patients.Load(cfg.PatientCSVPath)
	if err != nil {
		log.Fatalf("failed to load patient directory: %v", err)
	}

	client := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	svc := chat.NewService(directory, db, client, chat.NewContextStore(), logger, nil)

	pool := executor.New(cfg.Workers, logger)
	defer pool.Shutdown()

	reg := registry.New(registry.Config{
		StaleAfter:        cfg.StaleAfter,
		ProcessingTimeout: cfg.ProcessingTimeout,
	}, logger)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	janitor := registry.NewJanitor(reg, cfg.JanitorInterval, logger)
	go janitor.Run(janitorCtx)

	srv := api.NewServer(cfg.ListenAddr, reg, pool, svc, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
