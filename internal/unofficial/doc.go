// Package unofficial talks to the internal TickTick web API.
//
// A Session logs in with username and password the way the web client does
// and keeps the resulting session token as cookie "t". Login is driven by a
// small state machine (unauthenticated, authenticating, authenticated,
// failed) and is retried with bounded exponential backoff on transient
// errors. A failed login is terminal for the lifetime of the Session.
//
// CallAPI is the raw escape hatch. The task operations built on it follow a
// fetch-then-mutate pattern: the batch endpoint replaces whole records, so
// the full current record is fetched, changed in memory and sent back
// complete. Sending a partial record erases the fields left out.
package unofficial
