// Package logging provides structured logging utilities for ticktick-mcp.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithService(slog.Default(), "official")
//	logger.Info("listing projects", logging.Operation("project.list"))
//
// Vendor identifiers get dedicated keys:
//
//	logger.Warn("skipping project", logging.ProjectID(id), logging.Err(err))
//
// # Security Considerations
//
//   - Usernames are hashed to prevent PII leakage while allowing correlation
//   - Tokens appear only as a length indicator (SanitizeToken), passwords never
package logging
