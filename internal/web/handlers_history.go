package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/SheetImport/internal/core"
	"github.com/JonMunkholm/SheetImport/internal/logging"
	"github.com/JonMunkholm/SheetImport/internal/schema"
	"github.com/JonMunkholm/SheetImport/internal/store"
	"github.com/go-chi/chi/v5"
)

// targetInfo lists a field set without its fields.
type targetInfo struct {
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Fields int    `json:"fields"`
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	sets := schema.All()
	out := make([]targetInfo, len(sets))
	for i, set := range sets {
		out[i] = targetInfo{Name: set.Name, Label: set.Label, Fields: len(set.Fields)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFields(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	set, err := s.service.Fields(target)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", store.ErrNotFound, err))
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", store.DefaultListLimit)
	imports, err := s.service.History(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if imports == nil {
		imports = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, imports)
}

func (s *Server) handleHistoryImport(w http.ResponseWriter, r *http.Request) {
	imp, err := s.service.Import(r.Context(), chi.URLParam(r, "importID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imp)
}

type healthResponse struct {
	Status  string      `json:"status"`
	Store   string      `json:"store"`
	Service core.Status `json:"service"`
}

// handleHealth reports store reachability and session load. An unreachable
// store answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok", Service: s.service.Status()}
	status := http.StatusOK
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("health: store unreachable", "error", err)
		resp.Status = "degraded"
		resp.Store = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
