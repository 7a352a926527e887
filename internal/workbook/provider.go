package workbook

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSize is the upload size limit used when none is configured (100MB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// Provider turns a raw file into a workbook.
type Provider interface {
	Parse(ctx context.Context, f File) (*Workbook, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, f File) (*Workbook, error)

// Parse calls fn.
func (fn ProviderFunc) Parse(ctx context.Context, f File) (*Workbook, error) {
	return fn(ctx, f)
}

// FileProvider picks a parser from the file extension, falling back to the
// content type.
type FileProvider struct {
	MaxFileSize int64
}

// NewFileProvider returns a provider enforcing maxFileSize (<= 0 uses the default).
func NewFileProvider(maxFileSize int64) *FileProvider {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &FileProvider{MaxFileSize: maxFileSize}
}

// Parse reads f into a workbook.
func (p *FileProvider) Parse(ctx context.Context, f File) (*Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if p.MaxFileSize > 0 && int64(len(f.Data)) > p.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %dMB limit", ErrFileTooLarge, len(f.Data), p.MaxFileSize/(1024*1024))
	}

	var (
		wb  *Workbook
		err error
	)
	switch formatOf(f) {
	case formatXLSX:
		wb, err = ParseXLSX(f.Data)
	case formatCSV:
		wb, err = ParseCSV(f.Data, ',')
	case formatTSV:
		wb, err = ParseCSV(f.Data, '\t')
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Name)
	}
	if err != nil {
		return nil, err
	}
	if err := wb.Validate(); err != nil {
		return nil, err
	}
	return wb, nil
}

type format int

const (
	formatUnknown format = iota
	formatXLSX
	formatCSV
	formatTSV
)

func formatOf(f File) format {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return formatXLSX
	case ".csv":
		return formatCSV
	case ".tsv", ".tab":
		return formatTSV
	}

	ct := strings.ToLower(f.ContentType)
	switch {
	case strings.Contains(ct, "spreadsheetml"):
		return formatXLSX
	case strings.Contains(ct, "csv"):
		return formatCSV
	case strings.Contains(ct, "tab-separated"):
		return formatTSV
	}
	return formatUnknown
}
