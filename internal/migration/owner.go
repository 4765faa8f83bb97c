package migration

import (
	"context"
	"fmt"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// ResolveOwner determines the Forgejo account that will own a project's
// repository. Precedence, first hit wins:
//
//  1. existing user named after the normalized namespace path
//  2. existing organization of the same name
//  3. for group namespaces, a newly created organization
//  4. otherwise a newly created user (personal-namespace fallback)
//
// A nil return means the whole project must be skipped; the failure has
// already been recorded.
func (e *Engine) ResolveOwner(ctx context.Context, res *Result, project *gitlab.Project) *forgejo.Owner {
	ns := project.Namespace
	nsPath := ns.Path
	if nsPath == "" {
		nsPath = ns.Name
	}
	nsName := ns.Name
	if nsName == "" {
		nsName = nsPath
	}
	if nsPath == "" {
		e.fail(ctx, res, fmt.Sprintf("failed to load or create user/org %s", nsName),
			"Project %s has no usable namespace", project.Name)
		return nil
	}

	candidate := CleanName(nsPath)

	if user, err := e.target.GetUser(ctx, candidate); err == nil {
		return &forgejo.Owner{ID: user.ID, UserName: user.UserName, Kind: forgejo.OwnerUser}
	} else if !forgejo.IsNotFoundError(err) {
		e.logger.Error(fmt.Sprintf("Failed to look up user %s: %v", candidate, err))
	}

	if org, err := e.target.GetOrg(ctx, candidate); err == nil {
		return &forgejo.Owner{ID: org.ID, UserName: org.UserName, Kind: forgejo.OwnerOrg}
	} else if !forgejo.IsNotFoundError(err) {
		e.logger.Error(fmt.Sprintf("Failed to look up organization %s: %v", candidate, err))
	}

	if ns.Kind == "group" {
		return e.createOwnerOrg(ctx, res, candidate, nsName)
	}
	return e.createOwnerUser(ctx, res, candidate, nsPath, nsName)
}

func (e *Engine) createOwnerOrg(ctx context.Context, res *Result, candidate, fullName string) *forgejo.Owner {
	_, err := e.target.CreateOrg(ctx, forgejo.CreateOrgOption{
		FullName: fullName,
		Username: candidate,
	})
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to create group %s", candidate),
			"Failed to create group %s: %s", candidate, forgejo.ErrorMessage(err))
		return nil
	}
	e.logger.Info(fmt.Sprintf("Group %s created (needed for project import)", candidate))
	e.record(ctx, "org", candidate, "created", "needed for project import")

	// Re-fetch for the canonical record; the create response may omit the id
	org, err := e.target.GetOrg(ctx, candidate)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to create group %s", candidate),
			"Created group %s but could not fetch it back: %v", candidate, err)
		return nil
	}
	return &forgejo.Owner{ID: org.ID, UserName: org.UserName, Kind: forgejo.OwnerOrg}
}

func (e *Engine) createOwnerUser(ctx context.Context, res *Result, candidate, nsPath, fullName string) *forgejo.Owner {
	email := e.emailForUsername(ctx, nsPath)
	user, _ := e.EnsureUser(ctx, res, candidate, fullName, email, false, "needed for project import")
	if user == nil {
		return nil
	}
	return &forgejo.Owner{ID: user.ID, UserName: user.UserName, Kind: forgejo.OwnerUser}
}
