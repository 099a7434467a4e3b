package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelprep/modelprep/pkg/config"
	"github.com/modelprep/modelprep/pkg/errors"
	"github.com/modelprep/modelprep/pkg/model"
	"github.com/modelprep/modelprep/pkg/pipeline"
)

// newPrepareCmd creates the "prepare" command: the full download, extract,
// rewrite and export flow for a zoo model.
func newPrepareCmd(configPath *string) *cobra.Command {
	var (
		modelsDir     string
		zooURL        string
		refresh       bool
		preserveOwner bool
	)

	cmd := &cobra.Command{
		Use:   "prepare <model>",
		Short: "Download a zoo model and convert it to interchange form",
		Long: `Prepare downloads the named model archive from the zoo, extracts it
safely, rewrites the frozen graph's unsupported namespaces into plugin
nodes, and writes the interchange file next to the extracted model.

The archive is deleted once its contents are extracted. Re-running with
an already extracted model skips the download entirely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if modelsDir != "" {
				cfg.ModelsDir = modelsDir
			}
			if zooURL != "" {
				cfg.ZooURL = zooURL
			}

			c, err := cfg.OpenCache(ctx)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer c.Close()

			runner := pipeline.NewRunner(c, cfg.Cache.CacheTTL(), logger)

			printInfo("Preparing %s", StyleHighlight.Render(args[0]))
			track := newProgress(logger)

			result, err := runner.Prepare(ctx, pipeline.Options{
				Model:         args[0],
				ModelsDir:     cfg.ModelsDir,
				ZooURL:        cfg.ZooURL,
				Refresh:       refresh,
				PreserveOwner: preserveOwner,
				Progress:      printProgress,
			})
			finishProgress()
			if err != nil {
				if errors.Is(err, errors.ErrCodeUnsupportedModel) {
					printError("%s", errors.UserMessage(err))
					printDetail("Supported models: %v", model.Supported())
				}
				return err
			}

			track.done(fmt.Sprintf("Prepared %s", result.Model.Name))
			printSuccess("Wrote interchange file")
			printFile(result.ConvertedPath)
			printStats(result.NodesBefore, result.NodesAfter, result.CacheHit)
			printNextStep("Inspect the graph", "modelprep nodes "+result.ConvertedPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelsDir, "models-dir", "", "directory for downloads and extracted models")
	cmd.Flags().StringVar(&zooURL, "zoo-url", "", "model zoo base URL")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the archive cache and download fresh")
	cmd.Flags().BoolVar(&preserveOwner, "preserve-owner", false, "apply archive uid/gid to extracted files")
	return cmd
}
