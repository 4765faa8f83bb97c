package migration

import (
	"context"
	"fmt"

	"github.com/lremane/gitlab-2-forge-migration/internal/csvinput"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// ImportProjects migrates repositories and their sub-entities. With a
// CSV path the allow-listed projects are migrated; otherwise all
// projects where the token holder has at least MinAccessLevel.
func (e *Engine) ImportProjects(ctx context.Context, res *Result, csvPath string) {
	var projects []gitlab.Project
	if csvPath != "" {
		projects = e.loadProjectsFromCSV(ctx, res, csvPath)
	} else {
		projects = e.loadEligibleProjects(ctx, res)
	}

	total := len(projects)
	e.logger.Info(fmt.Sprintf("Importing %d projects...", total))
	for i := range projects {
		e.logger.Info(fmt.Sprintf("[%d/%d] Importing project %s...", i+1, total, projects[i].PathWithNamespace))
		e.importOneProject(ctx, res, &projects[i])
	}
}

// loadEligibleProjects lists the token holder's membership projects and
// keeps those at or above the configured access level. The membership
// listing omits permissions, so each candidate is re-fetched in full.
func (e *Engine) loadEligibleProjects(ctx context.Context, res *Result) []gitlab.Project {
	candidates, err := e.source.ListMembershipProjects(ctx)
	if err != nil {
		e.fail(ctx, res, "failed to list gitlab projects", "Failed to list GitLab projects: %v", err)
		return nil
	}
	e.logger.Info(fmt.Sprintf("Found %d gitlab membership projects, filtering by access level >= %d...",
		len(candidates), e.opts.MinAccessLevel))

	projects := make([]gitlab.Project, 0, len(candidates))
	for i := range candidates {
		if (i+1)%100 == 0 {
			e.logger.Info(fmt.Sprintf("Checked %d/%d projects...", i+1, len(candidates)))
		}
		project, err := e.source.GetProject(ctx, candidates[i].ID)
		if err != nil {
			e.fail(ctx, res, fmt.Sprintf("failed to load project %s", candidates[i].PathWithNamespace),
				"Failed to load project %s: %v", candidates[i].PathWithNamespace, err)
			continue
		}
		if project.AccessLevel() >= e.opts.MinAccessLevel {
			projects = append(projects, *project)
		}
	}
	e.logger.Info(fmt.Sprintf("%d projects are eligible for import", len(projects)))
	return projects
}

// loadProjectsFromCSV resolves an allow-list file to full project
// records. Rows that fail to resolve are skipped with a warning so one
// bad row does not sink the batch.
func (e *Engine) loadProjectsFromCSV(ctx context.Context, res *Result, path string) []gitlab.Project {
	entries, err := csvinput.Read(path, e.opts.GitLabURL)
	if err != nil {
		e.fail(ctx, res, "failed to read csv project list", "Failed to read project list %s: %v", path, err)
		return nil
	}
	e.logger.Info(fmt.Sprintf("Loaded %d project urls from %s", len(entries), path))

	projects := make([]gitlab.Project, 0, len(entries))
	for _, entry := range entries {
		if entry.HostMismatch {
			e.warn(res, "Project url %s does not match the configured GitLab host; attempting anyway.", entry.URL)
		}
		project, err := e.source.GetProjectByPath(ctx, entry.FullPath)
		if err != nil {
			e.warn(res, "Failed to load project %s from GitLab, skipping: %v", entry.FullPath, err)
			continue
		}
		projects = append(projects, *project)
	}
	return projects
}

// importOneProject migrates a single project: repository first, then
// collaborators, labels, milestones and issues. Each sub-entity list is
// fetched from the source up front; a listing failure records one error
// and degrades that sub-entity pass to a no-op.
func (e *Engine) importOneProject(ctx context.Context, res *Result, project *gitlab.Project) {
	owner := e.ResolveOwner(ctx, res, project)
	if owner == nil {
		e.fail(ctx, res, fmt.Sprintf("failed to load or create user/org %s", project.Namespace.Path),
			"Failed to load or create user/org %s for project %s, skipping project!",
			project.Namespace.Path, project.PathWithNamespace)
		return
	}

	members := e.loadMembers(ctx, res, project)
	labels := e.loadLabels(ctx, res, project)
	milestones := e.loadMilestones(ctx, res, project)
	issues := e.loadIssues(ctx, res, project)

	repoName := CleanName(project.Name)
	e.importRepository(ctx, res, project, owner)
	e.importCollaborators(ctx, res, members, owner.UserName, repoName)
	e.importLabels(ctx, res, labels, owner.UserName, repoName)
	e.importMilestones(ctx, res, milestones, owner.UserName, repoName)
	e.importIssues(ctx, res, issues, owner.UserName, repoName)
}

func (e *Engine) loadMembers(ctx context.Context, res *Result, project *gitlab.Project) []gitlab.Member {
	members, err := e.source.ListProjectMembers(ctx, project.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to list members of %s", project.PathWithNamespace),
			"Failed to list members of %s: %v", project.PathWithNamespace, err)
		return nil
	}
	return members
}

func (e *Engine) loadLabels(ctx context.Context, res *Result, project *gitlab.Project) []gitlab.Label {
	labels, err := e.source.ListProjectLabels(ctx, project.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to list labels of %s", project.PathWithNamespace),
			"Failed to list labels of %s: %v", project.PathWithNamespace, err)
		return nil
	}
	return labels
}

func (e *Engine) loadMilestones(ctx context.Context, res *Result, project *gitlab.Project) []gitlab.Milestone {
	milestones, err := e.source.ListProjectMilestones(ctx, project.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to list milestones of %s", project.PathWithNamespace),
			"Failed to list milestones of %s: %v", project.PathWithNamespace, err)
		return nil
	}
	return milestones
}

func (e *Engine) loadIssues(ctx context.Context, res *Result, project *gitlab.Project) []gitlab.Issue {
	issues, err := e.source.ListProjectIssues(ctx, project.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to list issues of %s", project.PathWithNamespace),
			"Failed to list issues of %s: %v", project.PathWithNamespace, err)
		return nil
	}
	return issues
}
