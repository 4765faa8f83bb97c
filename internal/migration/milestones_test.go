package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

func TestNormalizeDueDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "date only", input: "2025-03-14", expected: "2025-03-14T00:00:00Z"},
		{name: "rfc3339", input: "2025-03-14T12:30:00Z", expected: "2025-03-14T12:30:00Z"},
		{name: "rfc3339 with offset", input: "2025-03-14T12:30:00+02:00", expected: "2025-03-14T10:30:00Z"},
		{name: "timestamp without zone", input: "2025-03-14T12:30:00", expected: "2025-03-14T12:30:00Z"},
		{name: "empty", input: "", expected: ""},
		{name: "garbage", input: "next tuesday", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeDueDate(tt.input))
		})
	}
}

func TestMilestoneState(t *testing.T) {
	assert.Equal(t, "closed", milestoneState("closed"))
	assert.Equal(t, "open", milestoneState("active"))
	assert.Equal(t, "open", milestoneState(""))
}

func TestImportMilestonesCreatesAndSetsState(t *testing.T) {
	te := newTestEngine()
	te.target.addOrg("platform")
	te.target.addRepo("platform", "tools")
	res := NewResult()

	milestones := []gitlab.Milestone{
		{ID: 1, Title: "v1.0", Description: "first release", State: "closed", DueDate: "2024-06-01"},
		{ID: 2, Title: "v2.0", State: "active"},
	}
	te.importMilestones(context.Background(), res, milestones, "platform", "tools")

	created := te.target.milestones["platform/tools"]
	require.Len(t, created, 2)
	assert.Equal(t, "closed", created[0].State, "the follow-up edit carries the state")
	assert.Equal(t, "open", created[1].State)
	assert.Equal(t, "2024-06-01T00:00:00Z", created[0].DueOn)

	require.Len(t, te.target.editedMilestones, 2, "every create is followed by a state update")
	assert.True(t, res.OK())
}

func TestImportMilestonesSkipsExisting(t *testing.T) {
	te := newTestEngine()
	te.target.addOrg("platform")
	te.target.addRepo("platform", "tools")
	te.target.milestones["platform/tools"] = []forgejo.Milestone{{ID: 7, Title: "v1.0", State: "open"}}
	res := NewResult()

	milestones := []gitlab.Milestone{{ID: 1, Title: "v1.0", State: "closed"}}
	te.importMilestones(context.Background(), res, milestones, "platform", "tools")

	assert.Len(t, te.target.milestones["platform/tools"], 1)
	assert.Empty(t, te.target.editedMilestones, "skipped milestones are never touched")
	assert.Equal(t, 1, res.WarningCount())
}
