// Package cli provides the facetd command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// flagConfigDir is set by the --config-dir flag.
	flagConfigDir string

	// flagDataDir is set by the --data-dir flag.
	flagDataDir string
)

// NewRootCmd builds the facetd command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "facetd",
		Short: "Facetd serves custom rating fields for bookmarked items",
		Long: `Facetd is the custom-fields service of a bookmark manager. Users define
typed fields (rating, select, boolean, text), group them into reusable
schemas, bind schemas to labels, and every item's effective field set is
the union of the schemas reachable through its applied labels.`,
	}

	root.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: platform data dir)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI and returns its exit error, if any.
func Execute() error {
	return NewRootCmd().Execute()
}
