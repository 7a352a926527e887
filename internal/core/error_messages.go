// Package core hosts import sessions around the wizard controller.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Import Errors (IMP001-IMP099)
//
// Errors raised while stepping through an import:
//
//	IMP001 - Too many records: The sheet has more rows than allowed
//	         Action: Split the sheet or remove rows before uploading
//	         Patterns: "too many records"
//
//	IMP002 - No data: The selected sheet has no rows
//	         Action: Choose a sheet that contains data
//	         Patterns: "no data found"
//
//	IMP003 - Column mapping: The column mapping does not fit the file
//	         Action: Review the matched columns and try again
//	         Patterns: "invalid column mapping"
//
//	IMP004 - Unknown sheet: The chosen sheet is not in the workbook
//	         Action: Pick one of the listed sheets
//	         Patterns: "unknown sheet"
//
//	IMP005 - Header row: The chosen header row does not exist
//	         Action: Pick one of the displayed rows
//	         Patterns: "header row out of range"
//
//	IMP006 - Wrong step: The action is not available at this step
//	         Action: Refresh the import to see its current step
//	         Patterns: "invalid transition"
//
//	IMP007 - Unknown target: The import target is not configured
//	         Action: Choose one of the configured targets
//	         Patterns: "unknown target"
//
//	IMP008 - Template not found: The mapping template does not exist
//	         Action: Pick one of the saved templates
//	         Patterns: "template not found"
//
//	IMP009 - Template exists: A template with this name is already saved
//	         Action: Choose another name or delete the old template
//	         Patterns: "template already exists"
//
//	IMP010 - Invalid template: The template mapping is incomplete or wrong
//	         Action: Give the template a name and map only known fields
//	         Patterns: "invalid template"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date: Invalid date format detected
//	         Action: Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024
//	         Patterns: "invalid date"
//
//	VAL002 - Invalid number: Invalid number format detected
//	         Action: Remove currency symbols and use standard decimal format
//	         Patterns: "invalid number"
//
//	VAL003 - Required field: Required field is empty
//	         Action: Ensure all required columns have values
//	         Patterns: "required field"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	FILE002 - Unsupported format: Only xlsx, csv and tsv files are accepted
//	FILE003 - Encoding error: File contains invalid characters
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The uploaded file is empty
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: The import expired or never existed
//	SES002 - System busy: Too many imports in progress
//	SES003 - Session busy: Another action on this import is still running
//	SES004 - Request cancelled
//	SES005 - Request timeout
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// # Rate Limiting (RATE001) and Default (ERR000)
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// Import steps
	{"too many records", UserMessage{"The sheet has more rows than allowed", "Split the sheet or remove rows before uploading", "IMP001"}},
	{"no data found", UserMessage{"The selected sheet has no rows", "Choose a sheet that contains data", "IMP002"}},
	{"invalid column mapping", UserMessage{"The column mapping does not fit the file", "Review the matched columns and try again", "IMP003"}},
	{"unknown sheet", UserMessage{"The chosen sheet is not in the workbook", "Pick one of the listed sheets", "IMP004"}},
	{"sheet not found", UserMessage{"The chosen sheet is not in the workbook", "Pick one of the listed sheets", "IMP004"}},
	{"header row out of range", UserMessage{"The chosen header row does not exist", "Pick one of the displayed rows", "IMP005"}},
	{"invalid transition", UserMessage{"This action is not available at the current step", "Refresh the import to see its current step", "IMP006"}},
	{"unknown target", UserMessage{"The import target is not configured", "Choose one of the configured targets", "IMP007"}},
	{"template not found", UserMessage{"The mapping template does not exist", "Pick one of the saved templates", "IMP008"}},
	{"template already exists", UserMessage{"A template with this name is already saved", "Choose another name or delete the old template", "IMP009"}},
	{"invalid template", UserMessage{"The template mapping is incomplete or wrong", "Give the template a name and map only known fields", "IMP010"}},

	// Validation
	{"invalid date", UserMessage{"Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", "VAL001"}},
	{"invalid number", UserMessage{"Invalid number format detected", "Remove currency symbols and use standard decimal format", "VAL002"}},
	{"required field", UserMessage{"Required field is empty", "Ensure all required columns have values", "VAL003"}},

	// Files
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"unsupported file format", UserMessage{"This file type is not supported", "Upload an xlsx, csv or tsv file", "FILE002"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save file as UTF-8 encoding", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a file with data rows", "FILE005"}},

	// Sessions
	{"session not found", UserMessage{"Import session not found", "The import may have expired. Please start a new upload", "SES001"}},
	{"too many sessions", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "SES002"}},
	{"session busy", UserMessage{"Another action on this import is still running", "Wait for it to finish and try again", "SES003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "SES004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "SES005"}},

	// Store
	{"duplicate key", UserMessage{"This import was already saved", "Start a new upload", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000). Support staff
// should check application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern, or ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
