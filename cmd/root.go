package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "nbgen",
	Short: "Generate Jupyter notebooks from a dataset and its description",
	Long: `nbgen sends a CSV dataset, a PDF describing it and an analysis goal to a
language model, then turns the tagged response into a Jupyter notebook.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.InitLogging(verbose, debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		config.SyncLogger()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output (implies --verbose)")
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "unknown command") {
			fmt.Printf("To generate a notebook, use the 'generate' command:\n\n   nbgen generate --csv data.csv --pdf description.pdf\n\n")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		config.SyncLogger()
		os.Exit(1)
	}
}
