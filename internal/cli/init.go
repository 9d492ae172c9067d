package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/facets/internal/api"
	"github.com/mesh-intelligence/facets/internal/sqlite"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize facetd storage",
		Long:  "Create configuration and data directories, write a default config.yaml, and initialize the storage backend.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
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

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized facets storage at %s\n", store.Path())
	return nil
}
