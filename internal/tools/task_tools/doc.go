// Package task_tools provides MCP tools for TickTick tasks, backed by the
// official Open API.
//
// # Available Tools
//
// Reading:
//   - ticktick_get_task: Get a task of a project
//   - ticktick_get_all_tasks: Open tasks of the Inbox and every project
//   - ticktick_filter_tasks: Client-side filter over all tasks
//
// Writing (not registered in read-only mode):
//   - ticktick_create_task, ticktick_create_task_with_subtasks
//   - ticktick_update_task: Partial update, unset fields are not sent
//   - ticktick_complete_task, ticktick_delete_task
//   - ticktick_complete_tasks, ticktick_delete_tasks: Batch variants
//   - ticktick_move_task: Move a task to another project
//   - ticktick_make_subtask: Turn a task into a checklist item of another
//
// Dates use the "yyyy-MM-dd'T'HH:mm:ssZ" layout, e.g.
// "2019-11-13T03:00:00+0000". Priorities are 0 (none), 1 (low), 3 (medium)
// and 5 (high).
package task_tools
