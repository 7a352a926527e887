package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/JonMunkholm/SheetImport/internal/core"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
	"github.com/spf13/cobra"
)

var sheetsJSON bool

var sheetsCmd = &cobra.Command{
	Use:   "sheets FILE",
	Short: "List the sheets of a workbook with their data row counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := readFile(args[0])
		if err != nil {
			return err
		}
		wb, err := workbook.NewFileProvider(0).Parse(cmd.Context(), file)
		if err != nil {
			return err
		}

		sheets := make([]core.SheetInfo, 0, wb.SheetCount())
		for _, name := range wb.SheetNames {
			sheet, _ := wb.Sheet(name)
			sheets = append(sheets, core.SheetInfo{Name: name, Rows: sheet.DataRowCount()})
		}

		out := cmd.OutOrStdout()
		if sheetsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sheets)
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SHEET\tROWS")
		for _, s := range sheets {
			fmt.Fprintf(tw, "%s\t%d\n", s.Name, s.Rows)
		}
		return tw.Flush()
	},
}

func init() {
	sheetsCmd.Flags().BoolVar(&sheetsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(sheetsCmd)
}
