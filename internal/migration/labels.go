package migration

import (
	"context"
	"fmt"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// importLabels copies project labels verbatim. The existing listing is
// fetched once per repository; every source label whose name is absent is
// created, the rest are skipped.
func (e *Engine) importLabels(ctx context.Context, res *Result, labels []gitlab.Label, owner, repo string) {
	existing := make(map[string]bool)
	current, err := e.target.ListLabels(ctx, owner, repo)
	if err != nil {
		// Fail open with an empty set; creates of true duplicates bounce
		// off the server.
		e.fail(ctx, res, fmt.Sprintf("failed to load labels %s/%s", owner, repo),
			"Failed to load existing labels for project %s: %s", repo, forgejo.ErrorMessage(err))
	}
	for _, label := range current {
		existing[label.Name] = true
	}

	for _, label := range labels {
		if existing[label.Name] {
			e.warn(res, "Label %s already exists in project %s, skipping!", label.Name, repo)
			continue
		}

		_, err := e.target.CreateLabel(ctx, owner, owner, repo, forgejo.CreateLabelOption{
			Name:        label.Name,
			Color:       label.Color,
			Description: label.Description,
		})
		if err != nil {
			if forgejo.IsAlreadyExistsError(err) {
				e.warn(res, "Label %s already exists in project %s, skipping!", label.Name, repo)
				existing[label.Name] = true
				continue
			}
			e.fail(ctx, res, fmt.Sprintf("failed to import label %s for %s/%s", label.Name, owner, repo),
				"Label %s import failed: %s", label.Name, forgejo.ErrorMessage(err))
			continue
		}
		existing[label.Name] = true
		e.logger.Info(fmt.Sprintf("Label %s imported!", label.Name))
		e.record(ctx, "label", owner+"/"+repo+"#"+label.Name, "created", "")
	}
}
