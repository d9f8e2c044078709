// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// initializeSchemaInTx creates the syncable tables within an existing
// transaction. Every statement is idempotent so service startup is safe to
// repeat against an already-initialized database.
//
// Timestamps are unix milliseconds (BIGINT). Foreign keys are declared
// DEFERRABLE so pushes can defer RI checks to COMMIT and rely on the fixed
// parent-first/child-first phase ordering instead of a dependency solver.
func (s *SyncService) initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS workspaces (
			id          TEXT    PRIMARY KEY,
			name        TEXT    NOT NULL,
			description TEXT,
			created_at  BIGINT  NOT NULL,
			updated_at  BIGINT  NOT NULL,
			deleted     BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT workspaces_created_before_updated_chk CHECK (created_at <= updated_at)
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS projects (
			id           TEXT    PRIMARY KEY,
			name         TEXT    NOT NULL,
			description  TEXT,
			workspace_id TEXT    NOT NULL,
			created_at   BIGINT  NOT NULL,
			updated_at   BIGINT  NOT NULL,
			deleted      BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT projects_workspace_id_fkey FOREIGN KEY (workspace_id)
				REFERENCES workspaces(id) DEFERRABLE INITIALLY IMMEDIATE,
			CONSTRAINT projects_created_before_updated_chk CHECK (created_at <= updated_at)
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT    PRIMARY KEY,
			title       TEXT    NOT NULL,
			description TEXT,
			status      TEXT    NOT NULL DEFAULT 'pending',
			priority    TEXT    NOT NULL DEFAULT 'medium',
			project_id  TEXT    NOT NULL,
			created_at  BIGINT  NOT NULL,
			updated_at  BIGINT  NOT NULL,
			deleted     BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT tasks_project_id_fkey FOREIGN KEY (project_id)
				REFERENCES projects(id) DEFERRABLE INITIALLY IMMEDIATE,
			CONSTRAINT tasks_created_before_updated_chk CHECK (created_at <= updated_at)
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS comments (
			id         TEXT    PRIMARY KEY,
			content    TEXT    NOT NULL,
			task_id    TEXT    NOT NULL,
			created_at BIGINT  NOT NULL,
			updated_at BIGINT  NOT NULL,
			deleted    BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT comments_task_id_fkey FOREIGN KEY (task_id)
				REFERENCES tasks(id) DEFERRABLE INITIALLY IMMEDIATE,
			CONSTRAINT comments_created_before_updated_chk CHECK (created_at <= updated_at)
		)`,

		// Classifier range scans
		`CREATE INDEX IF NOT EXISTS idx_workspaces_updated_at ON workspaces(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_updated_at ON projects(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_updated_at ON tasks(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_updated_at ON comments(updated_at)`,

		// Parent lookups
		`CREATE INDEX IF NOT EXISTS idx_projects_workspace_id ON projects(workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_task_id ON comments(task_id)`,
	}

	for i, migration := range migrations {
		if _, err := tx.Exec(ctx, migration); err != nil {
			return fmt.Errorf("schema migration %d failed: %w", i, err)
		}
	}
	return nil
}
