package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modelprep/modelprep/pkg/model"
	"github.com/modelprep/modelprep/pkg/pipeline"
)

// newConvertCmd creates the "convert" command for frozen graphs already
// on disk, skipping download and extraction.
func newConvertCmd() *cobra.Command {
	var (
		modelName string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "convert <frozen-graph>",
		Short: "Rewrite a frozen graph already on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			in := args[0]
			out := output
			if out == "" {
				out = strings.TrimSuffix(in, ".json") + ".ir.json"
			}

			runner := pipeline.NewRunner(nil, 0, logger)
			result, err := runner.Convert(ctx, modelName, in, out)
			if err != nil {
				return err
			}

			printSuccess("Converted %s", result.Model.Name)
			printFile(out)
			printStats(result.NodesBefore, result.NodesAfter, false)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelName, "model", "m", model.SSDInceptionV2,
		fmt.Sprintf("model whose plugin table to apply (default %s)", model.SSDInceptionV2))
	cmd.Flags().StringVarP(&output, "output", "o", "", "interchange output path (default <input>.ir.json)")
	return cmd
}

// newModelsCmd creates the "models" command listing supported models.
func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List supported models",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(StyleTitle.Render("Supported models"))
			for _, name := range model.Supported() {
				d, err := model.Lookup(name)
				if err != nil {
					continue
				}
				fmt.Println("  " + StyleValue.Render(name))
				printDetail("input %s (%dx%dx%d), output %s",
					d.InputName, d.Channels(), d.Height(), d.Width(), d.OutputName)
			}
			return nil
		},
	}
}
