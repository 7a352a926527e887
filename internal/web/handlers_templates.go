package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/SheetImport/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListTemplates returns saved templates, filtered by ?target=.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.Templates(r.Context(), r.URL.Query().Get("target"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if templates == nil {
		templates = []store.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

type createTemplateRequest struct {
	Target  string            `json:"target"`
	Name    string            `json:"name"`
	Headers []string          `json:"headers"`
	Mapping map[string]string `json:"mapping"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.service.CreateTemplate(r.Context(), req.Target, req.Name, req.Headers, req.Mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.Template(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.Context(), chi.URLParam(r, "templateID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saveTemplateRequest struct {
	Name string `json:"name"`
}

// handleSaveSessionTemplate saves the mapping a session confirmed.
func (s *Server) handleSaveSessionTemplate(w http.ResponseWriter, r *http.Request) {
	var req saveTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.service.SaveSessionTemplate(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleMatchTemplates lists the saved templates that fit the session's
// header row.
func (s *Server) handleMatchTemplates(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.MatchTemplates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

type applyTemplateRequest struct {
	TemplateID string `json:"templateId"`
}

// handleApplyTemplate confirms the session's columns from a saved template.
func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req applyTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.TemplateID == "" {
		respondError(w, r, fmt.Errorf("%w: templateId is required", errBadRequest))
		return
	}
	snap, err := s.service.ApplyTemplate(r.Context(), chi.URLParam(r, "id"), req.TemplateID)
	respondSnapshot(w, r, http.StatusOK, snap, err)
}
