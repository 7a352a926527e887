package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/SheetImport/internal/core"
	"github.com/JonMunkholm/SheetImport/internal/logging"
	"github.com/JonMunkholm/SheetImport/internal/store"
	"github.com/JonMunkholm/SheetImport/internal/wizard"
	"github.com/JonMunkholm/SheetImport/internal/workbook"
)

var (
	errNoFile      = errors.New("no file provided")
	errBadRequest  = errors.New("invalid request body")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the body of every failed API call. Code is the support
// reference from core.MapError.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSessionBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, wizard.ErrInvalidTransition), errors.Is(err, store.ErrTemplateExists):
		return http.StatusConflict
	case errors.Is(err, workbook.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrUnknownTarget),
		errors.Is(err, core.ErrInvalidTemplate),
		errors.Is(err, wizard.ErrUnknownSheet),
		errors.Is(err, wizard.ErrHeaderIndex),
		errors.Is(err, wizard.ErrColumnMapping),
		errors.Is(err, wizard.ErrInvalidInitialState),
		errors.Is(err, workbook.ErrEmptyFile),
		errors.Is(err, workbook.ErrUnsupportedFormat),
		errors.Is(err, workbook.ErrSheetNotFound),
		errors.Is(err, errNoFile),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err with the request context and writes its mapped
// user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.NewUserError(err).User

	log := logging.FromContext(r.Context())
	attrs := []any{"path", r.URL.Path, "status", status, "code", msg.Code, "error", err}
	if status >= http.StatusInternalServerError || !core.IsUserFacing(err) {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeErrorBody(w, status, msg)
}

func writeErrorBody(w http.ResponseWriter, status int, msg core.UserMessage) {
	writeJSON(w, status, ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code})
}

// respondSnapshot writes snap with status. A recoverable wizard error still
// answers with status: the session stays on its step and the message is in
// the notifications.
func respondSnapshot(w http.ResponseWriter, r *http.Request, status int, snap *core.Snapshot, err error) {
	if err != nil && (snap == nil || !wizard.IsRecoverable(err)) {
		respondError(w, r, err)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Info("recoverable import error", "error", err)
	}
	writeJSON(w, status, snap)
}
