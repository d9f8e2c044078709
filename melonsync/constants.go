// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

// Syncable table names, in parent-to-child declaration order.
const (
	TableWorkspaces = "workspaces"
	TableProjects   = "projects"
	TableTasks      = "tasks"
	TableComments   = "comments"
)

// Task status values
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task priority values
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)
