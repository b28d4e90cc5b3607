package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quackquavk/gridminer/internal/config"
	"github.com/quackquavk/gridminer/internal/engine/storage"
	"github.com/quackquavk/gridminer/internal/jobs"
	"github.com/quackquavk/gridminer/internal/server"
)

func runServe(args []string) error {
	var configPath, listenAddr, dbPath string

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	fs.StringVar(&dbPath, "db", "", "Path to job store db (overrides config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gridminer serve [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	orch := buildOrchestrator(cfg, store, logger)
	manager := jobs.NewManager(store, orch, logger)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(store, manager).Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (db: %s)", cfg.ListenAddr, cfg.DBPath)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-sigCh:
		logger.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		manager.Shutdown()
	}

	return nil
}
