// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Pull-side delta classification. For a given table and checkpoint, every
// row with updated_at > since is selected once and dropped into exactly one
// bucket, evaluated in this fixed order:
//
//  1. deleted            -> deleted (ids only, even if created in the window)
//  2. created_at > since -> created
//  3. otherwise          -> updated
//
// The tombstone check runs first so a create-then-delete within one window
// surfaces only as a deletion. Classification is read-only; callers run all
// tables inside one read-only snapshot transaction.

// bucketRecord applies the fixed three-way split to a single row.
func bucketRecord[T any](ch *TableChanges[T], rec T, id string, createdAt int64, deleted bool, since int64) {
	switch {
	case deleted:
		ch.Deleted = append(ch.Deleted, id)
	case createdAt > since:
		ch.Created = append(ch.Created, rec)
	default:
		ch.Updated = append(ch.Updated, rec)
	}
}

func (s *SyncService) classifyWorkspaces(ctx context.Context, tx pgx.Tx, since int64) (TableChanges[Workspace], error) {
	var ch TableChanges[Workspace]
	rows, err := tx.Query(ctx, `
		SELECT id, name, description, created_at, updated_at, deleted
		FROM workspaces
		WHERE updated_at > @since`,
		pgx.NamedArgs{"since": since})
	if err != nil {
		return ch, fmt.Errorf("classify workspaces since %d: %w", since, err)
	}
	defer rows.Close()

	for rows.Next() {
		var w Workspace
		var deleted bool
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt, &deleted); err != nil {
			return ch, fmt.Errorf("scan workspace row: %w", err)
		}
		bucketRecord(&ch, w, w.ID, w.CreatedAt, deleted, since)
	}
	return ch, rows.Err()
}

func (s *SyncService) classifyProjects(ctx context.Context, tx pgx.Tx, since int64) (TableChanges[Project], error) {
	var ch TableChanges[Project]
	rows, err := tx.Query(ctx, `
		SELECT id, name, description, workspace_id, created_at, updated_at, deleted
		FROM projects
		WHERE updated_at > @since`,
		pgx.NamedArgs{"since": since})
	if err != nil {
		return ch, fmt.Errorf("classify projects since %d: %w", since, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Project
		var deleted bool
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.WorkspaceID, &p.CreatedAt, &p.UpdatedAt, &deleted); err != nil {
			return ch, fmt.Errorf("scan project row: %w", err)
		}
		bucketRecord(&ch, p, p.ID, p.CreatedAt, deleted, since)
	}
	return ch, rows.Err()
}

func (s *SyncService) classifyTasks(ctx context.Context, tx pgx.Tx, since int64) (TableChanges[Task], error) {
	var ch TableChanges[Task]
	rows, err := tx.Query(ctx, `
		SELECT id, title, description, status, priority, project_id, created_at, updated_at, deleted
		FROM tasks
		WHERE updated_at > @since`,
		pgx.NamedArgs{"since": since})
	if err != nil {
		return ch, fmt.Errorf("classify tasks since %d: %w", since, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Task
		var deleted bool
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.TaskStatus, &t.Priority, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt, &deleted); err != nil {
			return ch, fmt.Errorf("scan task row: %w", err)
		}
		bucketRecord(&ch, t, t.ID, t.CreatedAt, deleted, since)
	}
	return ch, rows.Err()
}

func (s *SyncService) classifyComments(ctx context.Context, tx pgx.Tx, since int64) (TableChanges[Comment], error) {
	var ch TableChanges[Comment]
	rows, err := tx.Query(ctx, `
		SELECT id, content, task_id, created_at, updated_at, deleted
		FROM comments
		WHERE updated_at > @since`,
		pgx.NamedArgs{"since": since})
	if err != nil {
		return ch, fmt.Errorf("classify comments since %d: %w", since, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Comment
		var deleted bool
		if err := rows.Scan(&c.ID, &c.Content, &c.TaskID, &c.CreatedAt, &c.UpdatedAt, &deleted); err != nil {
			return ch, fmt.Errorf("scan comment row: %w", err)
		}
		bucketRecord(&ch, c, c.ID, c.CreatedAt, deleted, since)
	}
	return ch, rows.Err()
}
