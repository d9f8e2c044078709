package melonsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePushRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *PushRequest
		wantErr bool
	}{
		{"NilRequest", nil, true},
		{"NilChanges", &PushRequest{}, true},
		{"EmptyChanges", &PushRequest{Changes: &Changes{}}, false},
		{
			"ValidBatch",
			&PushRequest{Changes: &Changes{
				Workspaces: TableChanges[Workspace]{Created: []Workspace{{ID: "w1", Name: "ws"}}},
				Tasks:      TableChanges[Task]{Deleted: []string{"t1"}},
			}},
			false,
		},
		{
			"CreatedWithEmptyID",
			&PushRequest{Changes: &Changes{
				Projects: TableChanges[Project]{Created: []Project{{Name: "no id"}}},
			}},
			true,
		},
		{
			"UpdatedWithWhitespaceID",
			&PushRequest{Changes: &Changes{
				Comments: TableChanges[Comment]{Updated: []Comment{{ID: "   "}}},
			}},
			true,
		},
		{
			"DeletedWithEmptyID",
			&PushRequest{Changes: &Changes{
				Workspaces: TableChanges[Workspace]{Deleted: []string{"w1", ""}},
			}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePushRequest(tt.req)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedBatch)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTableChangesNormalize(t *testing.T) {
	var ch TableChanges[Workspace]
	ch.normalize()
	require.NotNil(t, ch.Created)
	require.NotNil(t, ch.Updated)
	require.NotNil(t, ch.Deleted)
	require.Empty(t, ch.Created)

	// Populated buckets are left alone
	ch2 := TableChanges[Workspace]{Deleted: []string{"a"}}
	ch2.normalize()
	require.Equal(t, []string{"a"}, ch2.Deleted)
}
