package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// ImportGroups creates a Forgejo organization per GitLab group and
// imports the group members into the organization's first team.
func (e *Engine) ImportGroups(ctx context.Context, res *Result) {
	groups, err := e.source.ListGroups(ctx)
	if err != nil {
		e.fail(ctx, res, "failed to list gitlab groups", "Failed to list GitLab groups: %v", err)
		return
	}
	e.logger.Info(fmt.Sprintf("Found %d gitlab groups", len(groups)))

	for i := range groups {
		e.importOneGroup(ctx, res, &groups[i])
	}
}

// orgExists is the existence gate for organizations
func (e *Engine) orgExists(ctx context.Context, name string) bool {
	_, err := e.target.GetOrg(ctx, name)
	if err == nil {
		return true
	}
	if !forgejo.IsNotFoundError(err) {
		e.logger.Error(fmt.Sprintf("Failed to look up organization %s: %v", name, err))
	}
	return false
}

func (e *Engine) importOneGroup(ctx context.Context, res *Result, group *gitlab.Group) {
	cleanName := CleanName(group.Name)
	e.logger.Info(fmt.Sprintf("Importing group %s...", cleanName))

	members, err := e.source.ListGroupMembers(ctx, group.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to load members for group %s", cleanName),
			"Failed to load members for group %s: %v", cleanName, err)
	}
	e.logger.Info(fmt.Sprintf("Found %d gitlab members for group %s", len(members), cleanName))

	if e.orgExists(ctx, cleanName) {
		e.warn(res, "Group %s already exists in Forgejo, skipping!", cleanName)
	} else {
		fullName := group.FullName
		if fullName == "" {
			fullName = group.Name
		}
		_, err := e.target.CreateOrg(ctx, forgejo.CreateOrgOption{
			Description: group.Description,
			FullName:    fullName,
			Username:    cleanName,
		})
		if err != nil {
			if forgejo.IsAlreadyExistsError(err) {
				e.warn(res, "Group %s already exists in Forgejo, skipping!", cleanName)
			} else {
				e.fail(ctx, res, fmt.Sprintf("failed to import group %s", cleanName),
					"Group %s import failed: %s", cleanName, forgejo.ErrorMessage(err))
			}
		} else {
			e.logger.Info(fmt.Sprintf("Group %s imported!", cleanName))
			e.record(ctx, "org", cleanName, "created", "")
		}
	}

	e.importGroupMembers(ctx, res, cleanName, members)
}

// importGroupMembers adds group members to the organization's first team
// (the Owners team every new organization carries).
func (e *Engine) importGroupMembers(ctx context.Context, res *Result, orgName string, members []gitlab.Member) {
	if len(members) == 0 {
		return
	}

	teams, err := e.target.ListOrgTeams(ctx, orgName)
	if err != nil || len(teams) == 0 {
		e.fail(ctx, res, fmt.Sprintf("failed to import members to group %s: no teams found", orgName),
			"Failed to import members to group %s: no teams found!", orgName)
		return
	}
	team := teams[0]
	e.logger.Info(fmt.Sprintf("Organization teams fetched, importing users to first team: %s", team.Name))

	existing := make(map[string]bool)
	current, err := e.target.ListTeamMembers(ctx, team.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to load members for team %d", team.ID),
			"Failed to load existing members for team %d: %s", team.ID, forgejo.ErrorMessage(err))
	}
	for _, member := range current {
		existing[member.UserName] = true
	}

	for _, member := range members {
		username := strings.TrimSpace(member.Username)
		if username == "" {
			continue
		}

		user, _ := e.EnsureUser(ctx, res, username, member.Name, "", false, "needed for org membership import")
		if user == nil {
			continue
		}

		if existing[username] {
			e.warn(res, "Member %s is already in team %d, skipping!", username, team.ID)
			continue
		}

		if err := e.target.AddTeamMember(ctx, team.ID, username); err != nil {
			e.fail(ctx, res, fmt.Sprintf("failed to add member %s to group %s", username, orgName),
				"Failed to add member %s to group %s: %s", username, orgName, forgejo.ErrorMessage(err))
			continue
		}
		existing[username] = true
		e.logger.Info(fmt.Sprintf("Member %s added to group %s!", username, orgName))
		e.record(ctx, "team_member", orgName+"#"+username, "created", team.Name)
	}
}
