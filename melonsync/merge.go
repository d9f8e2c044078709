// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Push-side merge engine. Runs inside the caller's transaction and applies
// one client batch in two strictly ordered phases:
//
//   - upserts parent-to-child: workspaces, projects, tasks, comments
//   - soft deletes child-to-parent: comments, tasks, projects, workspaces
//
// Every touched row gets the same server timestamp. Created/updated buckets
// are interchangeable after the presence check (insert if absent, overwrite
// if present), which makes replaying the same batch a no-op state-wise.
// Updating a tombstoned row resurrects it: the original system's
// change-tracking overwrote the delete flag on update, and keeping that
// behavior means a pull response stays replayable as a push even when
// another client deleted one of the rows in between.
func (s *SyncService) merge(ctx context.Context, tx pgx.Tx, changes *Changes, serverTimestamp int64) error {
	if err := s.upsertWorkspaces(ctx, tx, changes.Workspaces, serverTimestamp); err != nil {
		return err
	}
	if err := s.upsertProjects(ctx, tx, changes.Projects, serverTimestamp); err != nil {
		return err
	}
	if err := s.upsertTasks(ctx, tx, changes.Tasks, serverTimestamp); err != nil {
		return err
	}
	if err := s.upsertComments(ctx, tx, changes.Comments, serverTimestamp); err != nil {
		return err
	}

	if err := s.softDelete(ctx, tx, TableComments, changes.Comments.Deleted, serverTimestamp); err != nil {
		return err
	}
	if err := s.softDelete(ctx, tx, TableTasks, changes.Tasks.Deleted, serverTimestamp); err != nil {
		return err
	}
	if err := s.softDelete(ctx, tx, TableProjects, changes.Projects.Deleted, serverTimestamp); err != nil {
		return err
	}
	return s.softDelete(ctx, tx, TableWorkspaces, changes.Workspaces.Deleted, serverTimestamp)
}

// recordExists looks up a row by id inside the transaction. The explicit
// lookup-then-branch replaces the original system's attach-or-update entity
// tracking.
func recordExists(ctx context.Context, tx pgx.Tx, table, id string) (bool, error) {
	var exists bool
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, pgx.Identifier{table}.Sanitize())
	if err := tx.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup %s id %s: %w", table, id, err)
	}
	return exists, nil
}

// effectiveCreatedAt accepts the client-supplied creation time for brand-new
// rows but never lets it exceed the push timestamp, so created_at <=
// updated_at holds even against a skewed client clock.
func effectiveCreatedAt(clientCreatedAt, serverTimestamp int64) int64 {
	if clientCreatedAt <= 0 || clientCreatedAt > serverTimestamp {
		return serverTimestamp
	}
	return clientCreatedAt
}

func (s *SyncService) upsertWorkspaces(ctx context.Context, tx pgx.Tx, ch TableChanges[Workspace], ts int64) error {
	apply := func(w Workspace) error {
		exists, err := recordExists(ctx, tx, TableWorkspaces, w.ID)
		if err != nil {
			return err
		}
		if exists {
			_, err = tx.Exec(ctx, `
				UPDATE workspaces
				SET name = @name, description = @description, deleted = FALSE, updated_at = @ts
				WHERE id = @id`,
				pgx.NamedArgs{"id": w.ID, "name": w.Name, "description": w.Description, "ts": ts})
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO workspaces (id, name, description, created_at, updated_at, deleted)
				VALUES (@id, @name, @description, @created_at, @ts, FALSE)`,
				pgx.NamedArgs{"id": w.ID, "name": w.Name, "description": w.Description,
					"created_at": effectiveCreatedAt(w.CreatedAt, ts), "ts": ts})
		}
		if err != nil {
			return fmt.Errorf("upsert workspace %s: %w", w.ID, err)
		}
		return nil
	}

	for _, w := range ch.Created {
		if err := apply(w); err != nil {
			return err
		}
	}
	for _, w := range ch.Updated {
		if err := apply(w); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) upsertProjects(ctx context.Context, tx pgx.Tx, ch TableChanges[Project], ts int64) error {
	apply := func(p Project) error {
		exists, err := recordExists(ctx, tx, TableProjects, p.ID)
		if err != nil {
			return err
		}
		if exists {
			// workspace_id is fixed at insert and never rewritten
			_, err = tx.Exec(ctx, `
				UPDATE projects
				SET name = @name, description = @description, deleted = FALSE, updated_at = @ts
				WHERE id = @id`,
				pgx.NamedArgs{"id": p.ID, "name": p.Name, "description": p.Description, "ts": ts})
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO projects (id, name, description, workspace_id, created_at, updated_at, deleted)
				VALUES (@id, @name, @description, @workspace_id, @created_at, @ts, FALSE)`,
				pgx.NamedArgs{"id": p.ID, "name": p.Name, "description": p.Description,
					"workspace_id": p.WorkspaceID,
					"created_at":   effectiveCreatedAt(p.CreatedAt, ts), "ts": ts})
		}
		if err != nil {
			return fmt.Errorf("upsert project %s: %w", p.ID, err)
		}
		return nil
	}

	for _, p := range ch.Created {
		if err := apply(p); err != nil {
			return err
		}
	}
	for _, p := range ch.Updated {
		if err := apply(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) upsertTasks(ctx context.Context, tx pgx.Tx, ch TableChanges[Task], ts int64) error {
	apply := func(t Task) error {
		if t.TaskStatus == "" {
			t.TaskStatus = TaskStatusPending
		}
		if t.Priority == "" {
			t.Priority = TaskPriorityMedium
		}
		exists, err := recordExists(ctx, tx, TableTasks, t.ID)
		if err != nil {
			return err
		}
		if exists {
			_, err = tx.Exec(ctx, `
				UPDATE tasks
				SET title = @title, description = @description, status = @status,
				    priority = @priority, deleted = FALSE, updated_at = @ts
				WHERE id = @id`,
				pgx.NamedArgs{"id": t.ID, "title": t.Title, "description": t.Description,
					"status": t.TaskStatus, "priority": t.Priority, "ts": ts})
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO tasks (id, title, description, status, priority, project_id, created_at, updated_at, deleted)
				VALUES (@id, @title, @description, @status, @priority, @project_id, @created_at, @ts, FALSE)`,
				pgx.NamedArgs{"id": t.ID, "title": t.Title, "description": t.Description,
					"status": t.TaskStatus, "priority": t.Priority, "project_id": t.ProjectID,
					"created_at": effectiveCreatedAt(t.CreatedAt, ts), "ts": ts})
		}
		if err != nil {
			return fmt.Errorf("upsert task %s: %w", t.ID, err)
		}
		return nil
	}

	for _, t := range ch.Created {
		if err := apply(t); err != nil {
			return err
		}
	}
	for _, t := range ch.Updated {
		if err := apply(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) upsertComments(ctx context.Context, tx pgx.Tx, ch TableChanges[Comment], ts int64) error {
	apply := func(c Comment) error {
		exists, err := recordExists(ctx, tx, TableComments, c.ID)
		if err != nil {
			return err
		}
		if exists {
			_, err = tx.Exec(ctx, `
				UPDATE comments
				SET content = @content, deleted = FALSE, updated_at = @ts
				WHERE id = @id`,
				pgx.NamedArgs{"id": c.ID, "content": c.Content, "ts": ts})
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO comments (id, content, task_id, created_at, updated_at, deleted)
				VALUES (@id, @content, @task_id, @created_at, @ts, FALSE)`,
				pgx.NamedArgs{"id": c.ID, "content": c.Content, "task_id": c.TaskID,
					"created_at": effectiveCreatedAt(c.CreatedAt, ts), "ts": ts})
		}
		if err != nil {
			return fmt.Errorf("upsert comment %s: %w", c.ID, err)
		}
		return nil
	}

	for _, c := range ch.Created {
		if err := apply(c); err != nil {
			return err
		}
	}
	for _, c := range ch.Updated {
		if err := apply(c); err != nil {
			return err
		}
	}
	return nil
}

// softDelete marks rows as tombstones and advances their updated_at so the
// deletion surfaces in later pulls. Ids that match no live row are skipped:
// a missing row and an already-tombstoned row are both no-ops, which keeps
// delete replays harmless. Rows are never physically removed.
func (s *SyncService) softDelete(ctx context.Context, tx pgx.Tx, table string, ids []string, ts int64) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf(`UPDATE %s SET deleted = TRUE, updated_at = $2 WHERE id = $1 AND NOT deleted`,
		pgx.Identifier{table}.Sanitize())

	for _, id := range ids {
		tag, err := tx.Exec(ctx, q, id, ts)
		if err != nil {
			return fmt.Errorf("soft delete %s id %s: %w", table, id, err)
		}
		if tag.RowsAffected() == 0 {
			s.logger.Debug("Delete target not found, skipping", "table", table, "id", id)
		}
	}
	return nil
}
