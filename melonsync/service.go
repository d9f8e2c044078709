// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncService implements the pull/push delta-sync protocol over a fixed set
// of syncable tables. It is the main component developers embed into their
// applications.
type SyncService struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	config *ServiceConfig

	// now supplies the server-authoritative clock. Overridable in tests.
	now func() time.Time

	mu     sync.RWMutex
	closed bool
}

// ServiceConfig holds configuration for the sync service
type ServiceConfig struct {
	MaxSupportedSchemaVersion int    // Highest schema_version accepted on pull
	AppName                   string // Application name for logging/connection tracking
}

// NewSyncService creates a new sync service instance from an existing pool.
// The syncable table schema is initialized idempotently inside a single
// transaction before the service is returned.
func NewSyncService(pool *pgxpool.Pool, config *ServiceConfig, logger *slog.Logger) (*SyncService, error) {
	if config == nil {
		config = &ServiceConfig{
			MaxSupportedSchemaVersion: 1,
			AppName:                   "go-melonsync-app",
		}
	}
	if config.MaxSupportedSchemaVersion <= 0 {
		config.MaxSupportedSchemaVersion = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	service := &SyncService{
		pool:   pool,
		logger: logger,
		config: config,
		now:    time.Now,
	}

	ctx := context.Background()
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return service.initializeSchemaInTx(ctx, tx)
	})
	if err != nil {
		logger.Error("Failed to initialize database schema", "error", err)
		return nil, fmt.Errorf("failed to initialize sync service: %w", err)
	}
	logger.Debug("Database schema initialized successfully")

	return service, nil
}

// Close gracefully shuts down the sync service. It's safe to call multiple
// times. The caller remains responsible for the pool lifecycle.
func (s *SyncService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.logger.Debug("Shutting down sync service")
	s.closed = true
	return nil
}

// Pool returns the underlying database connection pool
func (s *SyncService) Pool() *pgxpool.Pool {
	return s.pool
}

// GetSchemaVersion returns the highest supported schema version
func (s *SyncService) GetSchemaVersion() int {
	return s.config.MaxSupportedSchemaVersion
}

func (s *SyncService) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.New("sync service has been closed")
	}
	return nil
}

// ProcessPull handles one pull cycle: it captures the server clock once,
// classifies every syncable table against the client's checkpoint inside a
// single read-only snapshot, and returns the categorized buckets together
// with the captured timestamp (the client's next checkpoint).
//
// The timestamp MUST be captured before any classification query runs: a row
// mutated between the first query and a later-captured timestamp could carry
// an updated_at above the returned checkpoint without ever being observed,
// and would then be skipped by every subsequent pull.
func (s *SyncService) ProcessPull(ctx context.Context, lastPulledAt int64, schemaVersion int) (*PullResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if lastPulledAt < 0 {
		return nil, fmt.Errorf("%w: last_pulled_at must be >= 0", ErrMalformedRequest)
	}
	if schemaVersion < 1 {
		return nil, fmt.Errorf("%w: schema_version must be >= 1", ErrMalformedRequest)
	}
	if schemaVersion > s.config.MaxSupportedSchemaVersion {
		return nil, fmt.Errorf("%w: client schema version %d exceeds supported %d",
			ErrSchemaVersion, schemaVersion, s.config.MaxSupportedSchemaVersion)
	}

	timestamp := s.now().UnixMilli()

	s.logger.Info("Pull requested", "last_pulled_at", lastPulledAt, "schema_version", schemaVersion)

	var changes Changes
	txOpts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := pgx.BeginTxFunc(ctx, s.pool, txOpts, func(tx pgx.Tx) error {
		var err error
		if changes.Workspaces, err = s.classifyWorkspaces(ctx, tx, lastPulledAt); err != nil {
			return err
		}
		if changes.Projects, err = s.classifyProjects(ctx, tx, lastPulledAt); err != nil {
			return err
		}
		if changes.Tasks, err = s.classifyTasks(ctx, tx, lastPulledAt); err != nil {
			return err
		}
		if changes.Comments, err = s.classifyComments(ctx, tx, lastPulledAt); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process pull: %w", err)
	}

	changes.normalize()

	s.logger.Info("Pull completed",
		"workspaces", changes.Workspaces.count(),
		"projects", changes.Projects.count(),
		"tasks", changes.Tasks.count(),
		"comments", changes.Comments.count(),
		"timestamp", timestamp)

	return &PullResponse{Changes: changes, Timestamp: timestamp}, nil
}

// ProcessPush applies one client batch atomically. A single server timestamp
// is captured up front and stamped onto every touched row; the merge runs
// inside one transaction spanning all tables, so partial application is
// never observable.
func (s *SyncService) ProcessPush(ctx context.Context, req *PushRequest) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	if err := validatePushRequest(req); err != nil {
		return err
	}

	serverTimestamp := s.now().UnixMilli()

	s.logger.Info("Push started", "server_timestamp", serverTimestamp)

	txOpts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadWrite}
	err := pgx.BeginTxFunc(ctx, s.pool, txOpts, func(tx pgx.Tx) error {
		// Defer FK checks to COMMIT so referential integrity is evaluated
		// against the batch as a whole, after the ordered phases ran.
		if _, err := tx.Exec(ctx, "SET CONSTRAINTS ALL DEFERRED"); err != nil {
			return fmt.Errorf("failed to set constraints deferred: %w", err)
		}
		// Bound lock waits so a stuck concurrent push fails instead of hanging
		_, _ = tx.Exec(ctx, "SET LOCAL lock_timeout = '3s'")

		return s.merge(ctx, tx, req.Changes, serverTimestamp)
	})
	if err != nil {
		s.logger.Error("Push failed - rolling back transaction", "error", err)
		return s.classifyPushError(err)
	}

	s.logger.Info("Push completed successfully", "server_timestamp", serverTimestamp)
	return nil
}

// classifyPushError maps store-level failures onto the service error
// taxonomy so the boundary layer can pick response codes without inspecting
// SQLSTATEs itself.
func (s *SyncService) classifyPushError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "23503": // foreign_key_violation, raised at deferred-check commit
			return fmt.Errorf("%w: %s", ErrReferentialViolation, pgErr.Detail)
		case "40001", "40P01", "55P03": // serialization, deadlock, lock_not_available
			return fmt.Errorf("%w: %s", ErrConcurrentPush, pgErr.Message)
		case "23505": // unique_violation: two pushes raced the existence check
			// on the same new id. A retry lands on the update branch.
			return fmt.Errorf("%w: %s", ErrConcurrentPush, pgErr.Message)
		}
	}
	return fmt.Errorf("failed to process push transaction: %w", err)
}

func (c *TableChanges[T]) count() int {
	return len(c.Created) + len(c.Updated) + len(c.Deleted)
}
