package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type generateOptions struct {
	inputs     pipeline.Inputs
	model      string
	output     string
	maxRetries int
	// previewRows of zero keeps the configured preview length
	previewRows int
	noSpinner   bool
	// completer overrides the models client in tests
	completer pipeline.Completer
}

var generateOpts generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a notebook from a CSV dataset and a PDF description",
	Long: `Generate a Jupyter notebook from a CSV dataset, a PDF describing the data
and an optional existing notebook for context. The notebook is written to
<csv name>_analysis.ipynb unless --output is given.`,
	Example: `  nbgen generate --csv sales.csv --pdf sales.pdf
  nbgen generate --csv sales.csv --pdf sales.pdf --notebook prior.ipynb --goal "Forecast units" -o forecast.ipynb`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := config.LoadEnvConfig(config.GetEnvPath())
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := generateOpts
		opts.maxRetries = -1
		if cmd.Flags().Changed("retries") {
			opts.maxRetries = generateOpts.maxRetries
		}
		if !term.IsTerminal(int(os.Stderr.Fd())) {
			opts.noSpinner = true
		}
		return runGenerate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), envConfig, opts)
	},
}

// runGenerate runs the pipeline and writes the notebook. A negative
// maxRetries keeps the configured retry budget.
func runGenerate(ctx context.Context, out, errOut io.Writer, envConfig *config.EnvConfig, opts generateOptions) error {
	pipelineOpts := pipeline.OptionsFromConfig(envConfig, opts.model)
	pipelineOpts.Completer = opts.completer
	if opts.maxRetries >= 0 {
		pipelineOpts.MaxRetries = opts.maxRetries
	}
	if opts.previewRows > 0 {
		pipelineOpts.PreviewRows = opts.previewRows
	}

	spinner := NewSpinner(errOut)
	if opts.noSpinner {
		spinner.Disable()
	}
	pipelineOpts.Progress = spinner

	config.VerboseLog("Generating notebook with model %s", pipelineOpts.Model)
	result, err := pipeline.Run(ctx, opts.inputs, pipelineOpts)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("%w\n%s", err, pipeline.Classify(err).Guidance())
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(errOut, "Warning: %s\n", warning)
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = result.Filename
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(result.Notebook), 0644); err != nil {
		return fmt.Errorf("error writing notebook: %w", err)
	}

	fmt.Fprintf(out, "Notebook written to %s (%d cells)\n", outputPath, result.Cells)
	return nil
}

func init() {
	flags := generateCmd.Flags()
	flags.StringVar(&generateOpts.inputs.CSVPath, "csv", "", "CSV dataset (required)")
	flags.StringVar(&generateOpts.inputs.PDFPath, "pdf", "", "PDF describing the dataset (required)")
	flags.StringVar(&generateOpts.inputs.NotebookPath, "notebook", "", "existing .ipynb notebook to use as context")
	flags.StringVar(&generateOpts.inputs.Goal, "goal", "", "analysis goal for the notebook")
	flags.StringVarP(&generateOpts.model, "model", "m", "", "model to use (default from configuration)")
	flags.StringVarP(&generateOpts.output, "output", "o", "", "output notebook path")
	flags.IntVar(&generateOpts.maxRetries, "retries", config.DefaultMaxRetries, "retries after the first attempt")
	flags.IntVar(&generateOpts.previewRows, "preview-rows", 0, "CSV rows shown to the model (default from configuration)")
	flags.BoolVar(&generateOpts.noSpinner, "no-spinner", false, "print progress steps without animation")
	generateCmd.MarkFlagRequired("csv")
	generateCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(generateCmd)
}
