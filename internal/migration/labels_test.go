package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

func TestImportLabels(t *testing.T) {
	te := newTestEngine()
	te.target.addOrg("platform")
	te.target.addRepo("platform", "tools")
	te.target.labels["platform/tools"] = []forgejo.Label{{ID: 1, Name: "bug", Color: "#ff0000"}}
	res := NewResult()

	labels := []gitlab.Label{
		{ID: 10, Name: "bug", Color: "#cc0000"},
		{ID: 11, Name: "feature", Color: "#00ff00", Description: "new functionality"},
	}
	te.importLabels(context.Background(), res, labels, "platform", "tools")

	created := te.target.labels["platform/tools"]
	require.Len(t, created, 2)
	assert.Equal(t, "#ff0000", created[0].Color, "existing labels are left untouched")
	assert.Equal(t, "feature", created[1].Name)
	assert.Equal(t, 1, res.WarningCount())
	assert.True(t, res.OK())
}

func TestImportLabelsIdempotent(t *testing.T) {
	te := newTestEngine()
	te.target.addOrg("platform")
	te.target.addRepo("platform", "tools")
	res := NewResult()
	labels := []gitlab.Label{{ID: 10, Name: "bug", Color: "#cc0000"}}
	ctx := context.Background()

	te.importLabels(ctx, res, labels, "platform", "tools")
	te.importLabels(ctx, res, labels, "platform", "tools")

	assert.Len(t, te.target.labels["platform/tools"], 1)
}
