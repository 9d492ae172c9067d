package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/facets/internal/api"
	"github.com/mesh-intelligence/facets/internal/sqlite"
)

// shutdownTimeout bounds how long in-flight requests may drain on exit.
const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the facets HTTP API",
		Long:  "Open the storage backend and serve the custom-fields API until interrupted.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := sqlite.NewStore()
	if err := store.Open(cfg); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(api.DefaultCollection, "Default"); err != nil {
		return fmt.Errorf("ensure default collection: %w", err)
	}

	server := api.NewServer(store)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("facetd listening on %s (db: %s)", cfg.ListenAddr, store.Path())
		if err := server.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
