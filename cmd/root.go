package cmd

import (
	"fmt"
	"os"

	"github.com/etlkit/etl/cmd/run"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "Validate and load record files",
	Long: `etl validates input files column by column, applies the configured issue
policy to every record, and archives or rejects each file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(run.Command())
}
