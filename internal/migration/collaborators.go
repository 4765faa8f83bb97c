package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// permissionFor maps a GitLab access level onto a Forgejo permission.
// 10/20 (guest/reporter) collapse to read, 30 (developer) becomes write,
// 40/50 (maintainer/owner) become admin. Anything else warns and
// defaults to read.
func (e *Engine) permissionFor(res *Result, accessLevel int) string {
	switch accessLevel {
	case 10, 20:
		return "read"
	case 30:
		return "write"
	case 40, 50:
		return "admin"
	default:
		e.warn(res, "Unsupported access level %d, setting permissions to 'read'!", accessLevel)
		return "read"
	}
}

// collaboratorExists is the existence gate for collaborator grants
func (e *Engine) collaboratorExists(ctx context.Context, owner, repo, username string) bool {
	ok, err := e.target.IsCollaborator(ctx, owner, repo, username)
	if err != nil {
		e.logger.Error(fmt.Sprintf("Failed to look up collaborator %s on %s/%s: %v", username, owner, repo, err))
		return false
	}
	return ok
}

// importCollaborators grants project members access to the migrated
// repository. Existing grants are never promoted or demoted.
func (e *Engine) importCollaborators(ctx context.Context, res *Result, members []gitlab.Member, owner, repo string) {
	for _, member := range members {
		username := strings.TrimSpace(member.Username)
		if username == "" {
			continue
		}

		email := e.emailForUserID(ctx, member.ID)
		if email == "" {
			email = e.emailForUsername(ctx, username)
		}

		user, _ := e.EnsureUser(ctx, res, username, member.Name, email, false, "needed for collaborator import")
		if user == nil {
			// Identity could not be provisioned; the grant would fail anyway
			continue
		}

		if e.collaboratorExists(ctx, owner, repo, username) {
			e.warn(res, "Collaborator %s already exists in Forgejo, skipping!", username)
			continue
		}

		permission := e.permissionFor(res, member.AccessLevel)
		if err := e.target.AddCollaborator(ctx, owner, owner, repo, username, permission); err != nil {
			e.fail(ctx, res, fmt.Sprintf("failed to import collaborator %s for %s/%s", username, owner, repo),
				"Collaborator %s import failed: %s", username, forgejo.ErrorMessage(err))
			continue
		}
		e.logger.Info(fmt.Sprintf("Collaborator %s imported!", username))
		e.record(ctx, "collaborator", owner+"/"+repo+"#"+username, "created", permission)
	}
}

// ensureCollaborator provisions an identity and grants it at least read
// access, the authorization precondition for creating issues as that
// user.
func (e *Engine) ensureCollaborator(ctx context.Context, res *Result, owner, repo, username, email string) {
	username = strings.TrimSpace(username)
	if username == "" {
		return
	}

	e.EnsureUser(ctx, res, username, username, email, false, "needed for collaborator import")

	if e.collaboratorExists(ctx, owner, repo, username) {
		return
	}

	if err := e.target.AddCollaborator(ctx, owner, owner, repo, username, "read"); err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to add collaborator %s to %s/%s", username, owner, repo),
			"Failed to add collaborator %s to %s/%s: %s", username, owner, repo, forgejo.ErrorMessage(err))
		return
	}
	e.logger.Info(fmt.Sprintf("Collaborator %s added to %s/%s (needed for issue author/assignee)!", username, owner, repo))
	e.record(ctx, "collaborator", owner+"/"+repo+"#"+username, "created", "read")
}
