package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/wizard"
	"github.com/aretw0/wizard/internal/cli"
	"github.com/aretw0/wizard/internal/presentation/tui"
	httpadapter "github.com/aretw0/wizard/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wizard HTTP API",
	Long: `Starts the wizard API. Guides come from the backend when --backend is set,
otherwise from the markdown/YAML files in --guides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	serveCmd.Flags().String("guides", "", "Directory of guide documents")
	serveCmd.Flags().String("backend", "", "Base URL of the guide backend API")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	stack, err := cli.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	api := httpadapter.NewServer(stack.Engine,
		httpadapter.WithUploader(stack.Uploader),
		httpadapter.WithServerLogger(logger),
		httpadapter.WithServerMetrics(stack.Metrics),
		httpadapter.WithGatherer(stack.Registry),
		httpadapter.WithMaxSessions(cfg.MaxSessions),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tui.PrintBanner(os.Stdout, fmt.Sprintf("wizard %s listening on %s", wizard.Version, cfg.Addr))

	sigCtx := cli.NewSignalContext(cmd.Context())
	defer sigCtx.Cancel()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-sigCtx.Done():
		logger.Info("Shutting down", "signal", sigCtx.Signal())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				logger.Error("Error killing server", "err", err)
			}
		}
		if err := api.Close(ctx); err != nil {
			logger.Warn("Some sessions were not saved", "err", err)
		}
		fmt.Println("wizard server stopped gracefully")
	}
	return nil
}
