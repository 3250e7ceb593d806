// Package unofficial_tools exposes the TickTick web API through MCP tools.
//
// These tools cover what the Open API cannot do: pinning, the activity log,
// recurrence from the completion date or on explicit dates, true subtasks
// and checklist edits on any task. They need TICKTICK_USERNAME and
// TICKTICK_PASSWORD; without them every call returns the "not configured"
// error envelope.
//
// Every mutation fetches the complete task record first and sends the whole
// record back, since the batch endpoint replaces records wholesale.
package unofficial_tools
