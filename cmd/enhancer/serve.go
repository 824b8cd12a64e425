package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/promatehq/enhancer/pkg/automation"
	"github.com/promatehq/enhancer/pkg/config"
	"github.com/promatehq/enhancer/pkg/enhancer"
	"github.com/promatehq/enhancer/pkg/enhancer/command"
	"github.com/promatehq/enhancer/pkg/enhancer/filepair"
	"github.com/promatehq/enhancer/pkg/enhancer/gemini"
	"github.com/promatehq/enhancer/pkg/logging"
	"github.com/promatehq/enhancer/pkg/server"
)

const shutdownGrace = 10 * time.Second

var (
	configPath  string
	templateDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enhancement HTTP API",
	Long: `Run the HTTP API that accepts prompt drafts and returns enhanced
prompts. Backends are constructed lazily per mode; the default mode is
verified at startup so misconfiguration fails before the first request.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml",
		"path to the YAML configuration file")
	serveCmd.Flags().StringVar(&templateDir, "templates", "templates",
		"directory holding the prompt template files")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// On failure a stderr fallback logger is returned and the problem has
	// already been reported, so the error is not fatal.
	log, _ := logging.NewLogger("server")
	defer log.Close()

	coordinator, err := buildCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("wiring enhancement backends: %w", err)
	}

	// Construct the command backend and the default backend now so a bad
	// script path or template name surfaces at startup rather than on the
	// first request. The gemini backend is cheap to construct too; the
	// browser itself only launches per request.
	if _, err := coordinator.Get(enhancer.ModeCommand); err != nil {
		return fmt.Errorf("initializing command backend: %w", err)
	}
	if _, err := coordinator.Get(""); err != nil {
		return fmt.Errorf("initializing default backend: %w", err)
	}

	srv := server.New(server.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		APIKey:       cfg.Security.APIKey,
	}, coordinator, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (default mode %s)", cfg.Server.Address, coordinator.DefaultMode())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// buildCoordinator wires one factory per supported mode. Both backends share
// the allocator so durable pairs land under a single root.
func buildCoordinator(cfg *config.Config) (*enhancer.Coordinator, error) {
	allocator := filepair.NewAllocator("")

	factories := map[string]enhancer.Factory{
		enhancer.ModeCommand: func() (enhancer.Service, error) {
			log, _ := logging.NewLogger("command")
			return command.New(command.Options{
				ScriptPath:   cfg.Enhancer.Command.ScriptPath,
				TemplateDir:  templateDir,
				TemplateName: cfg.Enhancer.TemplateName,
				AutoCleanup:  cfg.Enhancer.AutoCleanupTempFiles,
				Allocator:    allocator,
				Logger:       log,
			})
		},
		enhancer.ModeGemini: func() (enhancer.Service, error) {
			log, _ := logging.NewLogger("gemini")
			return gemini.New(gemini.Options{
				Automation: automation.Config{
					BrowserPath: cfg.Enhancer.Gemini.BrowserPath,
					ProfileDir:  cfg.Enhancer.Gemini.ProfileDir,
					Timeout:     cfg.Enhancer.Gemini.Timeout,
					AutoInstall: cfg.Enhancer.Gemini.AutoInstall,
					ShowUI:      cfg.Enhancer.Gemini.ShowUI,
				},
				TemplateDir:  templateDir,
				TemplateName: cfg.Enhancer.TemplateName,
				AutoCleanup:  cfg.Enhancer.AutoCleanupTempFiles,
				Allocator:    allocator,
				Logger:       log,
			})
		},
	}

	return enhancer.NewCoordinator(cfg.Enhancer.Mode, factories)
}
