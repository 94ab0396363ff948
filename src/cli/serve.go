package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/painthouse/src/config"
	"github.com/username/painthouse/src/handlers"
	"github.com/username/painthouse/src/logger"
	"github.com/username/painthouse/src/services"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "Listen port (overrides PORT)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inventory HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Cfg
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	logger.L.Info("PaintHouse inventory server starting...")

	svc, err := buildService(ctx)
	if err != nil {
		return err
	}

	if cfg.ReconcileInterval > 0 {
		go reconcileLoop(ctx, svc, cfg.ReconcileInterval)
	}

	router := handlers.NewRouter(handlers.NewInventoryHandler(svc), handlers.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("Failed to start server", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.L.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
		return err
	}
	logger.L.Info("Server stopped gracefully.")
	return nil
}

// reconcileLoop compares the stored summary with a rebuild on every tick.
// Drift is only reported; nothing is rewritten.
func reconcileLoop(ctx context.Context, svc services.InventoryService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := svc.Reconcile(ctx)
			if err != nil {
				logger.L.Error("Periodic reconciliation failed", "error", err)
				continue
			}
			logger.L.Info("Periodic reconciliation finished", "consistent", report.Consistent, "itemsDrift", report.ItemsDrift)
		}
	}
}
