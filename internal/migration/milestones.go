package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

const dueDateFormat = "2006-01-02T15:04:05Z"

// normalizeDueDate reformats a GitLab date (usually "2006-01-02", but
// full timestamps occur) into the fixed UTC format the target expects.
// Empty or unparseable input yields "".
func normalizeDueDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(dueDateFormat)
		}
	}
	return ""
}

// milestoneState maps the GitLab state onto Forgejo's open/closed pair
func milestoneState(state string) string {
	if state == "closed" {
		return "closed"
	}
	return "open"
}

// importMilestones copies project milestones. Creation cannot set the
// state, so every created milestone receives a second update call
// carrying it.
func (e *Engine) importMilestones(ctx context.Context, res *Result, milestones []gitlab.Milestone, owner, repo string) {
	existing := make(map[string]bool)
	current, err := e.target.ListMilestones(ctx, owner, repo)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to load milestones %s/%s", owner, repo),
			"Failed to load existing milestones for project %s: %s", repo, forgejo.ErrorMessage(err))
	}
	for _, m := range current {
		existing[m.Title] = true
	}

	for _, milestone := range milestones {
		if existing[milestone.Title] {
			e.warn(res, "Milestone %s already exists in project %s, skipping!", milestone.Title, repo)
			continue
		}

		dueDate := normalizeDueDate(milestone.DueDate)
		created, err := e.target.CreateMilestone(ctx, owner, owner, repo, forgejo.CreateMilestoneOption{
			Title:       milestone.Title,
			Description: milestone.Description,
			DueOn:       dueDate,
		})
		if err != nil {
			if forgejo.IsAlreadyExistsError(err) {
				e.warn(res, "Milestone %s already exists in project %s, skipping!", milestone.Title, repo)
				existing[milestone.Title] = true
				continue
			}
			e.fail(ctx, res, fmt.Sprintf("failed to import milestone %s for %s/%s", milestone.Title, owner, repo),
				"Milestone %s import failed: %s", milestone.Title, forgejo.ErrorMessage(err))
			continue
		}
		existing[milestone.Title] = true
		e.logger.Info(fmt.Sprintf("Milestone %s imported!", milestone.Title))
		e.record(ctx, "milestone", owner+"/"+repo+"#"+milestone.Title, "created", "")

		_, err = e.target.EditMilestone(ctx, owner, owner, repo, created.ID, forgejo.EditMilestoneOption{
			Title:       milestone.Title,
			Description: milestone.Description,
			DueOn:       dueDate,
			State:       milestoneState(milestone.State),
		})
		if err != nil {
			e.fail(ctx, res, fmt.Sprintf("failed to update milestone %s for %s/%s", milestone.Title, owner, repo),
				"Milestone %s update failed: %s", milestone.Title, forgejo.ErrorMessage(err))
			continue
		}
		e.logger.Info(fmt.Sprintf("Milestone %s updated!", milestone.Title))
	}
}
