package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/SheetImport/internal/core"
	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/store"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
	"github.com/spf13/cobra"
)

type runOptions struct {
	fieldsFile     string
	target         string
	sheet          string
	header         int
	noSelectHeader bool
	maxRecords     int
	mappings       []string
	out            string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run a file through the wizard and print the result",
	Long: `Run FILE through every wizard step without prompting.

Multi-sheet workbooks need --sheet. The header row defaults to the first
row. Columns are matched automatically; --map overrides a match by header
name, and a field of "-" ignores the column.

The output lists the valid records and the rejected rows with their errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := readFile(args[0])
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("fields") {
			if v := os.Getenv("IMPORT_FIELDS_FILE"); v != "" {
				runOpts.fieldsFile = v
			}
		}
		sets, err := schema.LoadFile(runOpts.fieldsFile)
		if err != nil {
			return err
		}

		res, err := runImport(cmd.Context(), runOpts, file, sets)
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), runOpts.out, res)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.fieldsFile, "fields", "fields.yaml", "YAML file with the target field sets (env IMPORT_FIELDS_FILE)")
	f.StringVar(&runOpts.target, "target", "", "Field set to import into (default: the first in the file)")
	f.StringVar(&runOpts.sheet, "sheet", "", "Sheet to import from a multi-sheet workbook")
	f.IntVar(&runOpts.header, "header", 0, "Zero-based index of the header row")
	f.BoolVar(&runOpts.noSelectHeader, "no-select-header", false, "Use the first row as the header without a header step")
	f.IntVar(&runOpts.maxRecords, "max-records", 0, "Reject sheets with more data rows than this (0: no limit)")
	f.StringArrayVar(&runOpts.mappings, "map", nil, `Column override as "Header=field_key", repeatable`)
	f.StringVarP(&runOpts.out, "out", "o", "", "Write the JSON result to this file instead of stdout")

	rootCmd.AddCommand(runCmd)
}

// runResult is the JSON output of the run command.
type runResult struct {
	Target   string           `json:"target"`
	File     string           `json:"file"`
	ImportID string           `json:"importId"`
	Mapping  map[string]int   `json:"mapping"`
	Summary  core.Summary     `json:"summary"`
	Valid    []wizard.Record  `json:"valid"`
	Invalid  []core.RowResult `json:"invalid"`
}

func runImport(ctx context.Context, opts runOptions, file workbook.File, sets []schema.Set) (*runResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	overrides, err := parseMappings(opts.mappings)
	if err != nil {
		return nil, err
	}

	mem := store.NewMemory()
	svc := core.NewService(workbook.NewFileProvider(0), mem, nil, core.ServiceOptions{
		MaxRecords:   opts.maxRecords,
		SelectHeader: !opts.noSelectHeader,
		Lookup:       setLookup(sets),
	})

	snap, err := svc.Start(ctx, opts.target, file)
	for err == nil && snap.Step != wizard.StepValidateData {
		switch snap.Step {
		case wizard.StepSelectSheet:
			if opts.sheet == "" {
				return nil, fmt.Errorf("%s has %d sheets (%s); choose one with --sheet",
					file.Name, len(snap.Sheets), sheetNames(snap.Sheets))
			}
			snap, err = svc.SelectSheet(ctx, snap.ID, opts.sheet)
		case wizard.StepSelectHeader:
			snap, err = svc.ConfirmHeader(ctx, snap.ID, opts.header)
		case wizard.StepMatchColumns:
			snap, err = svc.ConfirmMapping(ctx, snap.ID, overrides)
		default:
			return nil, fmt.Errorf("unexpected step %s", snap.Step)
		}
	}
	if err != nil {
		return nil, err
	}

	rows, _, err := svc.Validate(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	if snap, err = svc.Submit(ctx, snap.ID); err != nil {
		return nil, err
	}
	imp, err := svc.Import(ctx, snap.Result.ImportID.String())
	if err != nil {
		return nil, err
	}

	res := &runResult{
		Target:   snap.Target,
		File:     file.Name,
		ImportID: imp.ID.String(),
		Mapping:  imp.Mapping,
		Summary:  snap.Result.Summary,
		Valid:    []wizard.Record{},
		Invalid:  snap.Result.Rejected,
	}
	for _, r := range rows {
		if r.Valid() {
			res.Valid = append(res.Valid, r.Record)
		}
	}
	if res.Invalid == nil {
		res.Invalid = []core.RowResult{}
	}
	return res, nil
}

// setLookup resolves target names against sets. An empty name is the
// first set.
func setLookup(sets []schema.Set) func(string) (schema.Set, bool) {
	return func(name string) (schema.Set, bool) {
		for _, s := range sets {
			if name == "" || s.Name == name {
				return s, true
			}
		}
		return schema.Set{}, false
	}
}

// parseMappings reads "Header=field_key" pairs.
func parseMappings(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		header, key, ok := strings.Cut(p, "=")
		header = strings.TrimSpace(header)
		if !ok || header == "" {
			return nil, fmt.Errorf("invalid --map %q: want Header=field_key", p)
		}
		out[header] = strings.TrimSpace(key)
	}
	return out, nil
}

func sheetNames(sheets []core.SheetInfo) string {
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

func readFile(path string) (workbook.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workbook.File{}, err
	}
	return workbook.File{Name: filepath.Base(path), Size: int64(len(data)), Data: data}, nil
}

func writeResult(stdout io.Writer, path string, res *runResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
