package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// ImportUsers provisions a Forgejo account for every GitLab user, carrying
// over full name, primary email when visible, and public SSH keys.
func (e *Engine) ImportUsers(ctx context.Context, res *Result) {
	e.ensureImporterUser(ctx, res)

	users, err := e.source.ListUsers(ctx)
	if err != nil {
		e.fail(ctx, res, "failed to list gitlab users", "Failed to list GitLab users: %v", err)
		return
	}
	e.logger.Info(fmt.Sprintf("Found %d gitlab users", len(users)))

	for i := range users {
		e.importOneUser(ctx, res, &users[i])
	}
	e.logger.Info(fmt.Sprintf("Done. Processed %d users.", len(users)))
}

func (e *Engine) importOneUser(ctx context.Context, res *Result, user *gitlab.User) {
	username := strings.TrimSpace(user.Username)
	if username == "" {
		return
	}
	e.logger.Info(fmt.Sprintf("Importing user %s...", username))

	// The list endpoint omits emails; the single-user endpoint exposes
	// them for admin tokens.
	full, err := e.source.GetUser(ctx, user.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to fetch full user %s", username),
			"Failed to fetch full user %s (%d): %v", username, user.ID, err)
		full = user
	}

	email := pickEmail(full)
	if email == "" {
		email = e.placeholderEmail(username)
	}

	e.EnsureUser(ctx, res, username, full.Name, email, e.opts.Notify, "import from gitlab")

	keys, err := e.source.ListUserKeys(ctx, user.ID)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to load keys for user %s", username),
			"Failed to load keys for user %s: %v", username, err)
		return
	}
	e.importUserKeys(ctx, res, keys, username)
}

// importUserKeys copies a user's public SSH keys, keyed by title. Keys
// are imported read-only so the migrated account cannot push with a key
// its owner has not re-confirmed.
func (e *Engine) importUserKeys(ctx context.Context, res *Result, keys []gitlab.UserKey, username string) {
	if len(keys) == 0 {
		return
	}

	existing := make(map[string]bool)
	current, err := e.target.ListUserKeys(ctx, username)
	if err != nil {
		e.fail(ctx, res, fmt.Sprintf("failed to load user keys for user %s", username),
			"Failed to load existing keys for user %s: %s", username, forgejo.ErrorMessage(err))
	}
	for _, key := range current {
		existing[key.Title] = true
	}

	for _, key := range keys {
		if existing[key.Title] {
			e.warn(res, "Public key %s already exists for user %s, skipping!", key.Title, username)
			continue
		}

		_, err := e.target.AdminCreateUserKey(ctx, username, forgejo.CreateKeyOption{
			Key:      key.Key,
			ReadOnly: true,
			Title:    key.Title,
		})
		if err != nil {
			if forgejo.IsAlreadyExistsError(err) {
				e.warn(res, "Public key %s already exists for user %s, skipping!", key.Title, username)
				existing[key.Title] = true
				continue
			}
			e.fail(ctx, res, fmt.Sprintf("failed to import key %s for user %s", key.Title, username),
				"Public key %s import failed: %s", key.Title, forgejo.ErrorMessage(err))
			continue
		}
		existing[key.Title] = true
		e.logger.Info(fmt.Sprintf("Public key %s imported!", key.Title))
		e.record(ctx, "user_key", username+"#"+key.Title, "created", "")
	}
}
