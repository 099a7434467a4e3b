package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modelprep/modelprep/pkg/buildinfo"
)

// Execute runs the modelprep CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands, configures
// logging based on the --verbose flag, and executes the command tree. The
// logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "modelprep",
		Short:        "modelprep prepares detection models for plugin-based inference",
		Long:         `modelprep downloads object detection models from the model zoo, rewrites their computation graphs so unsupported operation namespaces become inference-engine plugin nodes, and exports the result in interchange form.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/modelprep/config.toml)")

	root.AddCommand(newPrepareCmd(&configPath))
	root.AddCommand(newConvertCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newVisualizeCmd())
	root.AddCommand(newNodesCmd())
	root.AddCommand(newCacheCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))

	return root.ExecuteContext(ctx)
}
