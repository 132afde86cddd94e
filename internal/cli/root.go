package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the tipbot command tree.
func NewRootCommand(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "tipbot",
		Short: "Square Terminal checkout service that resubmits abandoned charges",
		Long: `tipbot takes payments on a paired Square Terminal. A checkout that is
still pending after a full watch cycle is cancelled and created again
until it completes, is aborted, or is superseded by a newer payment.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newPairCommand(&configPath))
	root.AddCommand(newDeviceStatusCommand(&configPath))

	return root
}
