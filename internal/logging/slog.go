package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyProjectID = "project_id"
	KeyTaskID    = "task_id"
	KeyEndpoint  = "endpoint"
)

// NewLogger builds the process logger. Output always goes to w, which must be
// stderr when the MCP protocol owns stdout.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// ProjectID returns a slog attribute for a TickTick project id.
func ProjectID(id string) slog.Attr {
	return slog.String(KeyProjectID, id)
}

// TaskID returns a slog attribute for a TickTick task id.
func TaskID(id string) slog.Attr {
	return slog.String(KeyTaskID, id)
}

// Endpoint returns a slog attribute for a vendor API path.
func Endpoint(path string) slog.Attr {
	return slog.String(KeyEndpoint, path)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeUsername returns a hashed representation of a TickTick username
// (an email address) so log lines can be correlated without exposing it.
func AnonymizeUsername(username string) string {
	if username == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(username)))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized username.
func UserHash(username string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeUsername(username))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
