// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

import (
	"errors"
	"fmt"
	"strings"
)

// Error sentinels for boundary-layer response mapping
var (
	ErrMalformedRequest     = errors.New("malformed_request")
	ErrMalformedBatch       = errors.New("malformed_batch")
	ErrSchemaVersion        = errors.New("unsupported_schema_version")
	ErrReferentialViolation = errors.New("referential_violation")
	ErrConcurrentPush       = errors.New("concurrent_push")
)

// validatePushRequest rejects malformed batches before any transaction
// begins. Absent buckets decode as empty lists and are fine; only a missing
// changes object or records without usable ids are malformed.
func validatePushRequest(req *PushRequest) error {
	if req == nil || req.Changes == nil {
		return fmt.Errorf("%w: changes object is required", ErrMalformedBatch)
	}

	ch := req.Changes
	if err := validateBucket(TableWorkspaces, ch.Workspaces, func(w Workspace) string { return w.ID }); err != nil {
		return err
	}
	if err := validateBucket(TableProjects, ch.Projects, func(p Project) string { return p.ID }); err != nil {
		return err
	}
	if err := validateBucket(TableTasks, ch.Tasks, func(t Task) string { return t.ID }); err != nil {
		return err
	}
	if err := validateBucket(TableComments, ch.Comments, func(c Comment) string { return c.ID }); err != nil {
		return err
	}
	return nil
}

func validateBucket[T any](table string, c TableChanges[T], id func(T) string) error {
	for _, rec := range c.Created {
		if strings.TrimSpace(id(rec)) == "" {
			return fmt.Errorf("%w: %s created record with empty id", ErrMalformedBatch, table)
		}
	}
	for _, rec := range c.Updated {
		if strings.TrimSpace(id(rec)) == "" {
			return fmt.Errorf("%w: %s updated record with empty id", ErrMalformedBatch, table)
		}
	}
	for _, delID := range c.Deleted {
		if strings.TrimSpace(delID) == "" {
			return fmt.Errorf("%w: %s deleted list contains empty id", ErrMalformedBatch, table)
		}
	}
	return nil
}
