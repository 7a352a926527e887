package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/SheetImport/internal/core"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/go-chi/chi/v5"
)

// handleCreateImport opens a session. With a "file" part the file is
// uploaded straight away; without one the session waits at the upload step.
// The optional "target" field names the field set.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, err := readUpload(w, r, s.cfg.Import.MaxFileSize)
	target := r.FormValue("target")

	var snap *core.Snapshot
	switch {
	case errors.Is(err, errNoFile):
		snap, err = s.service.Create(ctx, target)
	case err != nil:
		respondError(w, r, err)
		return
	default:
		snap, err = s.service.Start(ctx, target, file)
	}
	respondSnapshot(w, r, http.StatusCreated, snap, err)
}

// handleUploadFile uploads a file to a session waiting at the upload step.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	file, err := readUpload(w, r, s.cfg.Import.MaxFileSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := s.service.Upload(r.Context(), chi.URLParam(r, "id"), file)
	respondSnapshot(w, r, http.StatusOK, snap, err)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	respondSnapshot(w, r, http.StatusOK, snap, err)
}

func (s *Server) handleCloseImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Close(chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectSheetRequest struct {
	Sheet string `json:"sheet"`
}

func (s *Server) handleSelectSheet(w http.ResponseWriter, r *http.Request) {
	var req selectSheetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := s.service.SelectSheet(r.Context(), chi.URLParam(r, "id"), req.Sheet)
	respondSnapshot(w, r, http.StatusOK, snap, err)
}

type confirmHeaderRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleConfirmHeader(w http.ResponseWriter, r *http.Request) {
	var req confirmHeaderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Index == nil {
		respondError(w, r, fmt.Errorf("%w: index is required", errBadRequest))
		return
	}
	snap, err := s.service.ConfirmHeader(r.Context(), chi.URLParam(r, "id"), *req.Index)
	respondSnapshot(w, r, http.StatusOK, snap, err)
}

type columnsResponse struct {
	Columns wizard.Columns `json:"columns"`
}

func (s *Server) handleSuggestColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.service.SuggestColumns(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, columnsResponse{Columns: cols})
}

// handleConfirmColumns applies {"columns": [...]}. An empty body or null
// columns accepts the suggested mapping.
func (s *Server) handleConfirmColumns(w http.ResponseWriter, r *http.Request) {
	var req columnsResponse
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, err)
		return
	}
	snap, err := s.service.ConfirmColumns(r.Context(), chi.URLParam(r, "id"), req.Columns)
	respondSnapshot(w, r, http.StatusOK, snap, err)
}

type validationResponse struct {
	Summary core.Summary     `json:"summary"`
	Rows    []core.RowResult `json:"rows"`
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	rows, summary, err := s.service.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validationResponse{Summary: summary, Rows: rows})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Back(r.Context(), chi.URLParam(r, "id"))
	respondSnapshot(w, r, http.StatusOK, snap, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Submit(r.Context(), chi.URLParam(r, "id"))
	respondSnapshot(w, r, http.StatusOK, snap, err)
}
