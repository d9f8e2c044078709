// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

// REST/JSON models for the pull/push HTTP API. Field names follow the
// WatermelonDB sync protocol: timestamps are unix milliseconds, updated_at
// travels as "last_modified", and the _status/_changed columns that
// WatermelonDB clients attach to raw records are accepted and ignored.

// TableChanges carries the three change buckets for a single table.
// The same shape is used in both directions: a pull response bucket is
// directly replayable as a push request bucket.
type TableChanges[T any] struct {
	Created []T      `json:"created"`
	Updated []T      `json:"updated"`
	Deleted []string `json:"deleted"` // ids only
}

// normalize replaces nil buckets with empty slices so JSON output always
// contains all three keys.
func (c *TableChanges[T]) normalize() {
	if c.Created == nil {
		c.Created = []T{}
	}
	if c.Updated == nil {
		c.Updated = []T{}
	}
	if c.Deleted == nil {
		c.Deleted = []string{}
	}
}

// Workspace is the root of the entity hierarchy.
type Workspace struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"last_modified"`

	// WatermelonDB client bookkeeping columns, accepted and ignored.
	Status  *string `json:"_status,omitempty"`
	Changed *string `json:"_changed,omitempty"`
}

// Project belongs to a workspace.
type Project struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	WorkspaceID string  `json:"workspace_id"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"last_modified"`

	Status  *string `json:"_status,omitempty"`
	Changed *string `json:"_changed,omitempty"`
}

// Task belongs to a project.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	TaskStatus  string  `json:"status"`   // pending, in_progress, completed
	Priority    string  `json:"priority"` // low, medium, high
	ProjectID   string  `json:"project_id"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"last_modified"`

	Status  *string `json:"_status,omitempty"`
	Changed *string `json:"_changed,omitempty"`
}

// Comment belongs to a task.
type Comment struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	TaskID    string `json:"task_id"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"last_modified"`

	Status  *string `json:"_status,omitempty"`
	Changed *string `json:"_changed,omitempty"`
}

// Changes groups per-table buckets for every syncable table. The field
// order mirrors the hierarchy: workspaces own projects own tasks own
// comments. Upserts are applied top-down, deletes bottom-up.
type Changes struct {
	Workspaces TableChanges[Workspace] `json:"workspaces"`
	Projects   TableChanges[Project]   `json:"projects"`
	Tasks      TableChanges[Task]      `json:"tasks"`
	Comments   TableChanges[Comment]   `json:"comments"`
}

func (c *Changes) normalize() {
	c.Workspaces.normalize()
	c.Projects.normalize()
	c.Tasks.normalize()
	c.Comments.normalize()
}

// PullResponse is returned from the pull endpoint. Timestamp is the new
// checkpoint the client must store and replay as last_pulled_at.
type PullResponse struct {
	Changes   Changes `json:"changes"`
	Timestamp int64   `json:"timestamp"`
}

// PushRequest is the body of the push endpoint. A nil Changes object is a
// malformed batch and is rejected before any transaction begins.
type PushRequest struct {
	Changes *Changes `json:"changes"`
}

// PushResponse acknowledges a committed push. There is no per-record
// status; failure aborts the whole batch.
type PushResponse struct {
	Message string `json:"message"`
}

// SchemaVersionResponse reports the current schema version.
type SchemaVersionResponse struct {
	Version int `json:"schema_version"`
}

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
