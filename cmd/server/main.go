package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"leukemia-care-portal/internal/analysis"
	"leukemia-care-portal/internal/config"
	"leukemia-care-portal/internal/platform/logger"
	"leukemia-care-portal/internal/predict"
	"leukemia-care-portal/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "Leukemia care portal backend",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	l := logger.Init("leukemia-care-portal", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, l, server.Options{})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		app.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	l.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}
	app.Close(shutdownCtx)
	l.Info().Msg("server exited")
	return nil
}

func analyzeCmd() *cobra.Command {
	var (
		imagePath string
		cost      float64
	)
	cmd := &cobra.Command{
		Use:   "analyze <form.json>",
		Short: "Run the treatment analysis for a form file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			l := logger.Init("leukemia-care-portal", cfg.Env).Level(zerolog.WarnLevel)

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var form analysis.TreatmentForm
			if err := json.Unmarshal(raw, &form); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			req := analysis.Request{Form: form}
			if cmd.Flags().Changed("cost") {
				req.FinancialCost = &cost
			}
			if imagePath != "" {
				if req.Image, err = os.ReadFile(imagePath); err != nil {
					return err
				}
				req.ImageName = filepath.Base(imagePath)
			}

			client := predict.NewClient(cfg.PredictionAPIURL, cfg.PredictionTimeout)
			svc, err := analysis.NewService(server.AnalysisConfig(cfg), client, l)
			if err != nil {
				return err
			}

			res, err := svc.Analyze(cmd.Context(), req)
			if err != nil {
				l.Error().Err(err).Msg("analysis failed")
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "blood smear image to classify alongside the form")
	cmd.Flags().Float64Var(&cost, "cost", 0, "financial cost to assess (defaults to the form value)")
	return cmd
}
