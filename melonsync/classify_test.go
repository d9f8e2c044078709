package melonsync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBucketRecord_ThreeWaySplit(t *testing.T) {
	const since = int64(1000)

	t.Run("DeletedWinsOverCreated", func(t *testing.T) {
		// Created and deleted within the same window surfaces only as a delete
		var ch TableChanges[Workspace]
		bucketRecord(&ch, Workspace{ID: "w1"}, "w1", 1500, true, since)
		require.Empty(t, ch.Created)
		require.Empty(t, ch.Updated)
		require.Equal(t, []string{"w1"}, ch.Deleted)
	})

	t.Run("CreatedAfterCheckpoint", func(t *testing.T) {
		var ch TableChanges[Workspace]
		bucketRecord(&ch, Workspace{ID: "w1"}, "w1", 1500, false, since)
		require.Len(t, ch.Created, 1)
		require.Empty(t, ch.Updated)
		require.Empty(t, ch.Deleted)
	})

	t.Run("CreatedBeforeCheckpointIsUpdate", func(t *testing.T) {
		var ch TableChanges[Workspace]
		bucketRecord(&ch, Workspace{ID: "w1"}, "w1", 500, false, since)
		require.Empty(t, ch.Created)
		require.Len(t, ch.Updated, 1)
		require.Empty(t, ch.Deleted)
	})

	t.Run("CreatedExactlyAtCheckpointIsUpdate", func(t *testing.T) {
		var ch TableChanges[Workspace]
		bucketRecord(&ch, Workspace{ID: "w1"}, "w1", since, false, since)
		require.Len(t, ch.Updated, 1)
	})
}

func TestClassification_Partition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// One push creating a full hierarchy at t=1000
	fixClock(svc, 1000)
	wsID, projID, taskID, commentID := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()
	pushChanges(t, svc, &Changes{
		Workspaces: TableChanges[Workspace]{Created: []Workspace{{ID: wsID, Name: "ws"}}},
		Projects:   TableChanges[Project]{Created: []Project{{ID: projID, Name: "proj", WorkspaceID: wsID}}},
		Tasks:      TableChanges[Task]{Created: []Task{{ID: taskID, Title: "task", ProjectID: projID}}},
		Comments:   TableChanges[Comment]{Created: []Comment{{ID: commentID, Content: "hi", TaskID: taskID}}},
	})

	// Update the task and delete the comment at t=2000
	fixClock(svc, 2000)
	pushChanges(t, svc, &Changes{
		Tasks:    TableChanges[Task]{Updated: []Task{{ID: taskID, Title: "task v2"}}},
		Comments: TableChanges[Comment]{Deleted: []string{commentID}},
	})

	// Every modified record lands in exactly one bucket
	resp, err := svc.ProcessPull(ctx, 1000, 1)
	require.NoError(t, err)

	require.Empty(t, resp.Changes.Workspaces.Created)
	require.Empty(t, resp.Changes.Workspaces.Updated)
	require.Empty(t, resp.Changes.Workspaces.Deleted)

	require.Len(t, resp.Changes.Tasks.Updated, 1)
	require.Empty(t, resp.Changes.Tasks.Created)
	require.Equal(t, "task v2", resp.Changes.Tasks.Updated[0].Title)

	require.Equal(t, []string{commentID}, resp.Changes.Comments.Deleted)
	require.Empty(t, resp.Changes.Comments.Created)
	require.Empty(t, resp.Changes.Comments.Updated)
}

func TestClassification_CreateThenDeleteSurfacesOnlyAsDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wsID := uuid.NewString()
	fixClock(svc, 1000)
	pushChanges(t, svc, &Changes{
		Workspaces: TableChanges[Workspace]{Created: []Workspace{{ID: wsID, Name: "short lived"}}},
	})
	fixClock(svc, 1500)
	pushChanges(t, svc, &Changes{
		Workspaces: TableChanges[Workspace]{Deleted: []string{wsID}},
	})

	// Both create and delete happened after since=0: only the tombstone shows
	resp, err := svc.ProcessPull(ctx, 0, 1)
	require.NoError(t, err)
	require.Empty(t, resp.Changes.Workspaces.Created)
	require.Empty(t, resp.Changes.Workspaces.Updated)
	require.Equal(t, []string{wsID}, resp.Changes.Workspaces.Deleted)
}

func TestClassification_UntouchedRowsAreInvisible(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	fixClock(svc, 1000)
	pushChanges(t, svc, &Changes{
		Workspaces: TableChanges[Workspace]{Created: []Workspace{{ID: uuid.NewString(), Name: "ws"}}},
	})

	resp, err := svc.ProcessPull(ctx, 1000, 1)
	require.NoError(t, err)
	require.Zero(t, resp.Changes.Workspaces.count())
	require.Zero(t, resp.Changes.Projects.count())
	require.Zero(t, resp.Changes.Tasks.count())
	require.Zero(t, resp.Changes.Comments.count())
}
