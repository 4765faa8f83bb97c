package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// tempPassword returns a fresh high-entropy temporary credential. The
// fixed prefix satisfies complexity rules; the user is expected to change
// it on first login.
func tempPassword() string {
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "Tmp1!" + entropy[:10]
}

// placeholderEmail synthesizes an address for identities whose real email
// cannot be resolved from GitLab.
func (e *Engine) placeholderEmail(username string) string {
	return fmt.Sprintf("%s@%s", username, e.opts.PlaceholderDomain)
}

// EnsureUser guarantees a Forgejo user exists for the given identity,
// creating it with a temporary password when absent. A creation failure
// is recorded and yields a nil user; the caller decides whether the
// dependent entity must be skipped. Idempotent within and across runs:
// the lookup always wins over a second create.
func (e *Engine) EnsureUser(ctx context.Context, res *Result, username, fullName, email string, notify bool, reason string) (*forgejo.User, string) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ""
	}

	user, err := e.target.GetUser(ctx, username)
	if err == nil {
		return user, ""
	}
	if !forgejo.IsNotFoundError(err) {
		// Fail open: attempt the create anyway, the server rejects true
		// duplicates.
		e.logger.Error(fmt.Sprintf("Failed to look up user %s: %v", username, err))
	}

	password := tempPassword()
	email = strings.TrimSpace(email)
	if email == "" {
		email = e.placeholderEmail(username)
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = username
	}

	_, err = e.target.AdminCreateUser(ctx, forgejo.CreateUserOption{
		Email:      email,
		FullName:   fullName,
		LoginName:  username,
		Password:   password,
		SendNotify: notify,
		SourceID:   0,
		Username:   username,
	})
	if err != nil {
		if forgejo.IsAlreadyExistsError(err) {
			// Lost the check-then-act race; the user is there now
			if user, getErr := e.target.GetUser(ctx, username); getErr == nil {
				return user, ""
			}
		}
		e.fail(ctx, res, fmt.Sprintf("failed to create user %s", username),
			"Failed to create user %s: %s", username, forgejo.ErrorMessage(err))
		return nil, ""
	}

	suffix := ""
	if reason != "" {
		suffix = fmt.Sprintf(" (%s)", reason)
	}
	e.logger.Info(fmt.Sprintf("User %s created%s, temporary password: %s", username, suffix, password))
	e.record(ctx, "user", username, "created", reason)

	user, err = e.target.GetUser(ctx, username)
	if err != nil {
		return nil, password
	}
	return user, password
}

// ensureImporterUser provisions the well-known fallback author used for
// issues whose original author cannot be determined.
func (e *Engine) ensureImporterUser(ctx context.Context, res *Result) {
	name := e.opts.ImporterUsername
	e.EnsureUser(ctx, res, name, name, e.placeholderEmail(name), false, "needed for issue fallback author")
}

// emailCache memoizes source email lookups for one run. It is bounded:
// once full it stops admitting new entries rather than evicting, which is
// enough to cap redundant source calls for the usual case of a few
// thousand distinct identities.
type emailCache struct {
	byID   map[int64]string
	byName map[string]string
	max    int
}

func newEmailCache(max int) *emailCache {
	return &emailCache{
		byID:   make(map[int64]string),
		byName: make(map[string]string),
		max:    max,
	}
}

func (c *emailCache) full() bool {
	return len(c.byID)+len(c.byName) >= c.max
}

// emailForUserID resolves a GitLab user id to a usable email, empty when
// none is published.
func (e *Engine) emailForUserID(ctx context.Context, id int64) string {
	if email, ok := e.emails.byID[id]; ok {
		return email
	}

	email := ""
	if user, err := e.source.GetUser(ctx, id); err == nil {
		email = pickEmail(user)
	}
	if !e.emails.full() {
		e.emails.byID[id] = email
	}
	return email
}

// emailForUsername resolves a GitLab username to a usable email, empty
// when the user cannot be found or has no published address.
func (e *Engine) emailForUsername(ctx context.Context, username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return ""
	}
	if email, ok := e.emails.byName[username]; ok {
		return email
	}

	email := ""
	if user, err := e.source.FindUserByUsername(ctx, username); err == nil {
		email = e.emailForUserID(ctx, user.ID)
	}
	if !e.emails.full() {
		e.emails.byName[username] = email
	}
	return email
}

func pickEmail(u *gitlab.User) string {
	if v := strings.TrimSpace(u.Email); v != "" {
		return v
	}
	return strings.TrimSpace(u.PublicEmail)
}
