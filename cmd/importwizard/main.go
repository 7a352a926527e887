// Command importwizard walks a spreadsheet through the import wizard from
// the command line and prints the validated records as JSON.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/SheetImport/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "importwizard",
	Short: "Import spreadsheets through the wizard steps",
	Long: `importwizard runs xlsx, csv and tsv files through the import wizard:
sheet selection, header selection, column matching and validation.

Examples:
  importwizard sheets people.xlsx
  importwizard run people.xlsx --sheet People --header 1
  importwizard run contacts.csv --map "E-mail=email" --map "Notes=-" --out result.json
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load never overrides variables already set in the environment.
		_ = godotenv.Load()

		// Logs go to stderr so stdout stays valid JSON.
		slog.SetDefault(logging.New(os.Stderr, logLevel, logFormat))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "importwizard", version)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
