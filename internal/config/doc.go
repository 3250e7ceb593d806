// Package config resolves the credentials and deployment settings of the
// TickTick MCP server.
//
// Resolution runs once at startup. The OAuth client identity
// (TICKTICK_CLIENT_ID, TICKTICK_CLIENT_SECRET, TICKTICK_REDIRECT_URI) is read
// from the environment, falling back to a dotenv file when incomplete, and is
// required. Everything else (access token, inbox user id, unofficial API
// username/password) is optional and only narrows the set of working tools.
//
// The presence of a full OAuth token blob in TICKTICK_OAUTH_TOKEN switches the
// deployment mode to cloud, which moves the unofficial session cache to a
// writable temporary directory.
package config
