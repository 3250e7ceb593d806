// Package project_tools provides MCP tools for TickTick projects, backed by
// the official Open API.
//
// # Available Tools
//
//   - ticktick_list_projects: List all projects (the Inbox is not included)
//   - ticktick_get_project: Get one project
//   - ticktick_get_project_with_tasks: Get a project with its open tasks
//   - ticktick_get_inbox_tasks: Get the open tasks of the Inbox
//   - ticktick_create_project: Create a project
//   - ticktick_update_project: Update name, color or view mode
//   - ticktick_delete_project: Delete a project and all its tasks
//
// Create, update and delete are not registered in read-only mode.
//
// # Authentication
//
// Every tool needs an access token. Without one it returns an error telling
// the user to complete the OAuth flow at /oauth/start.
package project_tools
