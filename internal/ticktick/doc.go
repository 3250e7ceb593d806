// Package ticktick is a client for the TickTick Open API (v1).
//
// The client holds a bearer token and an optional user id and is otherwise
// stateless. Every non-2xx response becomes an *APIError carrying the status
// code and raw body. The Inbox is addressed as the project "inbox"+userID and
// is therefore only reachable when the user id is known.
//
// The package also carries the OAuth2 authorization-code exchange used to
// obtain the token and the client-side task filter.
package ticktick
