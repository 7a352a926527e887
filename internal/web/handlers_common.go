package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

// maxJSONBody caps step request bodies. Column mappings are the largest.
const maxJSONBody = 1 << 20

// multipartMemory is the part of a multipart form kept in memory.
const multipartMemory = 32 << 20

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// readUpload reads the "file" part of a multipart request. Requests without
// a file part return errNoFile.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (workbook.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			return workbook.File{}, errNoFile
		case errors.As(err, &tooLarge):
			return workbook.File{}, workbook.ErrFileTooLarge
		}
		return workbook.File{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		return workbook.File{}, errNoFile
	}
	defer part.Close()

	if header.Size > maxSize {
		return workbook.File{}, workbook.ErrFileTooLarge
	}
	data, err := io.ReadAll(part)
	if err != nil {
		return workbook.File{}, fmt.Errorf("read upload: %w", err)
	}

	return workbook.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}
