package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

func TestPermissionFor(t *testing.T) {
	tests := []struct {
		name        string
		accessLevel int
		expected    string
		warns       bool
	}{
		{name: "guest", accessLevel: 10, expected: "read"},
		{name: "reporter", accessLevel: 20, expected: "read"},
		{name: "developer", accessLevel: 30, expected: "write"},
		{name: "maintainer", accessLevel: 40, expected: "admin"},
		{name: "owner", accessLevel: 50, expected: "admin"},
		{name: "minimal access", accessLevel: 5, expected: "read", warns: true},
		{name: "unknown level", accessLevel: 35, expected: "read", warns: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine()
			res := NewResult()
			assert.Equal(t, tt.expected, te.permissionFor(res, tt.accessLevel))
			if tt.warns {
				assert.Equal(t, 1, res.WarningCount())
			} else {
				assert.Zero(t, res.WarningCount())
			}
		})
	}
}

func TestImportCollaborators(t *testing.T) {
	te := newTestEngine()
	te.target.addOrg("platform")
	te.target.addRepo("platform", "tools")
	te.source.users = []gitlab.User{{ID: 3, Username: "henry", Email: "henry@corp.example"}}
	res := NewResult()

	members := []gitlab.Member{
		{ID: 3, Username: "henry", Name: "Henry H", AccessLevel: 30},
		{ID: 4, Username: "iris", Name: "Iris I", AccessLevel: 40},
	}
	te.importCollaborators(context.Background(), res, members, "platform", "tools")

	grants := te.target.collaborators["platform/tools"]
	assert.Equal(t, "write", grants["henry"])
	assert.Equal(t, "admin", grants["iris"])
	assert.Equal(t, "henry@corp.example", te.target.users["henry"].Email)
	// iris has no source record, so she gets a placeholder address
	assert.Equal(t, "iris@noemail-git.local", te.target.users["iris"].Email)
	assert.True(t, res.OK())
}

func TestImportCollaboratorsSkipsExistingGrant(t *testing.T) {
	te := newTestEngine()
	te.target.addOrg("platform")
	te.target.addRepo("platform", "tools")
	te.target.addUser("henry")
	te.target.collaborators["platform/tools"] = map[string]string{"henry": "admin"}
	res := NewResult()

	members := []gitlab.Member{{ID: 3, Username: "henry", AccessLevel: 10}}
	te.importCollaborators(context.Background(), res, members, "platform", "tools")

	assert.Equal(t, "admin", te.target.collaborators["platform/tools"]["henry"], "existing grants are never demoted")
	assert.Equal(t, 1, res.WarningCount())
}

func TestEnsureCollaboratorGrantsRead(t *testing.T) {
	te := newTestEngine()
	te.target.addOrg("platform")
	te.target.addRepo("platform", "tools")
	res := NewResult()

	te.ensureCollaborator(context.Background(), res, "platform", "tools", "jack", "")

	assert.Equal(t, "read", te.target.collaborators["platform/tools"]["jack"])
	assert.Contains(t, te.target.users, "jack")
}
