package instrumentation

import (
	"strconv"
	"strings"
)

// Helpers that keep metric label values low-cardinality.

// ExtractUserDomain extracts the domain part from a TickTick username
// (an email address). Returns "unknown" when there is none.
func ExtractUserDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "unknown"
}

// StatusClass collapses an HTTP status code into "2xx", "4xx", ... so that
// vendor error codes do not multiply label values. Code 0 (transport failure)
// maps to "none".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "none"
	}
	return strconv.Itoa(code/100) + "xx"
}

// Operation types used for vendor API metrics and spans.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationCreate   = "create"
	OperationUpdate   = "update"
	OperationDelete   = "delete"
	OperationComplete = "complete"
	OperationMove     = "move"
	OperationSync     = "sync"
	OperationLogin    = "login"
	OperationCall     = "call"
)
