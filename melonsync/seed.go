// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func strPtr(s string) *string { return &s }

// SeedDemoData populates the store with a small demo dataset for
// development and testing. Seeding is skipped when any workspace already
// exists, and runs in one transaction with a single timestamp so the whole
// dataset shares one sync generation.
func (s *SyncService) SeedDemoData(ctx context.Context) error {
	return SeedDemoData(ctx, s.pool, s.now().UnixMilli(), s.logger)
}

// SeedDemoData is the pool-level variant used by server bootstrap code.
func SeedDemoData(ctx context.Context, pool *pgxpool.Pool, now int64, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		var hasData bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workspaces)`).Scan(&hasData); err != nil {
			return fmt.Errorf("check existing data: %w", err)
		}
		if hasData {
			logger.Info("Database already contains data, skipping seed")
			return nil
		}

		logger.Info("Seeding database with demo data", "timestamp", now)

		workspaces := []Workspace{
			{ID: "ws-demo-001", Name: "Demo Workspace", Description: strPtr("Demo workspace for the sync API")},
			{ID: "ws-personal-001", Name: "Personal Projects", Description: strPtr("Personal side projects")},
		}
		projects := []Project{
			{ID: "proj-demo-001", Name: "API Development", Description: strPtr("Sync API development"), WorkspaceID: "ws-demo-001"},
			{ID: "proj-demo-002", Name: "Frontend App", Description: strPtr("Offline-first mobile app"), WorkspaceID: "ws-demo-001"},
			{ID: "proj-personal-001", Name: "Learning Project", Description: strPtr("Experiments and studies"), WorkspaceID: "ws-personal-001"},
		}
		tasks := []Task{
			{ID: "task-demo-001", Title: "Implement pull endpoint", TaskStatus: TaskStatusCompleted, Priority: TaskPriorityHigh, ProjectID: "proj-demo-001"},
			{ID: "task-demo-002", Title: "Implement push endpoint", TaskStatus: TaskStatusInProgress, Priority: TaskPriorityHigh, ProjectID: "proj-demo-001"},
			{ID: "task-demo-003", Title: "Wire up local database", TaskStatus: TaskStatusPending, Priority: TaskPriorityMedium, ProjectID: "proj-demo-002"},
			{ID: "task-personal-001", Title: "Read sync protocol docs", TaskStatus: TaskStatusPending, Priority: TaskPriorityLow, ProjectID: "proj-personal-001"},
		}
		comments := []Comment{
			{ID: "comment-demo-001", Content: "Remember the clock-drift rule here", TaskID: "task-demo-001"},
			{ID: "comment-demo-002", Content: "Deletes must run child-first", TaskID: "task-demo-002"},
		}

		for _, w := range workspaces {
			if _, err := tx.Exec(ctx, `
				INSERT INTO workspaces (id, name, description, created_at, updated_at, deleted)
				VALUES (@id, @name, @description, @now, @now, FALSE)`,
				pgx.NamedArgs{"id": w.ID, "name": w.Name, "description": w.Description, "now": now}); err != nil {
				return fmt.Errorf("seed workspace %s: %w", w.ID, err)
			}
		}
		for _, p := range projects {
			if _, err := tx.Exec(ctx, `
				INSERT INTO projects (id, name, description, workspace_id, created_at, updated_at, deleted)
				VALUES (@id, @name, @description, @workspace_id, @now, @now, FALSE)`,
				pgx.NamedArgs{"id": p.ID, "name": p.Name, "description": p.Description,
					"workspace_id": p.WorkspaceID, "now": now}); err != nil {
				return fmt.Errorf("seed project %s: %w", p.ID, err)
			}
		}
		for _, t := range tasks {
			if _, err := tx.Exec(ctx, `
				INSERT INTO tasks (id, title, description, status, priority, project_id, created_at, updated_at, deleted)
				VALUES (@id, @title, @description, @status, @priority, @project_id, @now, @now, FALSE)`,
				pgx.NamedArgs{"id": t.ID, "title": t.Title, "description": t.Description,
					"status": t.TaskStatus, "priority": t.Priority, "project_id": t.ProjectID, "now": now}); err != nil {
				return fmt.Errorf("seed task %s: %w", t.ID, err)
			}
		}
		for _, c := range comments {
			if _, err := tx.Exec(ctx, `
				INSERT INTO comments (id, content, task_id, created_at, updated_at, deleted)
				VALUES (@id, @content, @task_id, @now, @now, FALSE)`,
				pgx.NamedArgs{"id": c.ID, "content": c.Content, "task_id": c.TaskID, "now": now}); err != nil {
				return fmt.Errorf("seed comment %s: %w", c.ID, err)
			}
		}

		logger.Info("Seed completed",
			"workspaces", len(workspaces), "projects", len(projects),
			"tasks", len(tasks), "comments", len(comments))
		return nil
	})
}
