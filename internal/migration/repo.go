package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// repoExists is the existence gate for repositories. Lookup failures
// other than "not found" are logged yet reported as absent, so creation
// is re-attempted and the server settles true duplicates.
func (e *Engine) repoExists(ctx context.Context, owner, repo string) bool {
	_, err := e.target.GetRepo(ctx, owner, repo)
	if err == nil {
		return true
	}
	if !forgejo.IsNotFoundError(err) {
		e.logger.Error(fmt.Sprintf("Failed to look up repository %s/%s: %v", owner, repo, err))
	}
	return false
}

// importRepository triggers the target's asynchronous repository import
// and supervises it to completion. The migrate call holds the connection
// open while the server imports, so a read timeout is ambiguous: the job
// may well have finished. On timeout the repository is re-queried and a
// hit reclassifies the attempt as success; otherwise up to
// MigrateAttempts attempts are made with a 5s-per-attempt backoff.
// Non-timeout transport errors are terminal for this repository.
func (e *Engine) importRepository(ctx context.Context, res *Result, project *gitlab.Project, owner *forgejo.Owner) {
	repoName := CleanName(project.Name)

	if e.repoExists(ctx, owner.UserName, repoName) {
		e.warn(res, "Project %s already exists in Forgejo, skipping!", repoName)
		return
	}
	e.logger.Info(fmt.Sprintf("Project %s not found in Forgejo, importing!", repoName))

	opt := forgejo.MigrateRepoOption{
		Service:      "gitlab",
		CloneAddr:    project.HTTPURLToRepo,
		AuthToken:    e.opts.GitLabToken,
		UID:          owner.ID,
		RepoName:     repoName,
		Description:  project.Description,
		Private:      project.Visibility == "private" || project.Visibility == "internal",
		Mirror:       false,
		Issues:       true,
		Labels:       true,
		Milestones:   true,
		PullRequests: true,
		Releases:     true,
		Wiki:         true,
	}

	attempts := e.opts.MigrateAttempts
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		_, err := e.target.MigrateRepo(ctx, owner.UserName, opt)
		if err == nil {
			e.logger.Info(fmt.Sprintf("Project %s imported (GitLab importer)!", repoName))
			e.record(ctx, "repository", owner.UserName+"/"+repoName, "created", "")
			return
		}

		if forgejo.IsTimeoutError(err) {
			lastErr = err

			// The import runs server side; the timeout may just mean it
			// outlived our read deadline.
			if e.repoExists(ctx, owner.UserName, repoName) {
				e.warn(res, "Project %s migrate request timed out, but repo now exists in Forgejo (migration likely finished).", repoName)
				e.record(ctx, "repository", owner.UserName+"/"+repoName, "created", "confirmed after timeout")
				return
			}

			if attempt < attempts {
				backoff := time.Duration(5*attempt) * time.Second
				e.warn(res, "Project %s migrate request timed out (attempt %d/%d); retrying after %s.",
					repoName, attempt, attempts, backoff)
				e.sleep(backoff)
			}
			continue
		}

		if forgejo.IsAlreadyExistsError(err) {
			// Lost the check-then-act race to a concurrent or earlier
			// import; present is what we wanted.
			e.warn(res, "Project %s already exists in Forgejo, skipping!", repoName)
			return
		}

		e.fail(ctx, res, fmt.Sprintf("project %s import failed", repoName),
			"Project %s import failed: %s", repoName, forgejo.ErrorMessage(err))
		return
	}

	e.fail(ctx, res, fmt.Sprintf("project %s import timed out", repoName),
		"Project %s import failed after %d attempts due to timeouts: %v", repoName, attempts, lastErr)
}
