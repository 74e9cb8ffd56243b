package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Ghunter254/lazy-appwrite/pkg/backend"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the lazyappwrite version, Go runtime and registered backends.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "lazyappwrite v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Go %s, backends: %v\n", runtime.Version(), backend.List())
		},
	}
}
