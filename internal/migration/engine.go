// Package migration implements the idempotent reconciliation engine that
// copies users, groups and projects from GitLab into Forgejo. Every
// creation path consults the target first, so interrupted runs can simply
// be restarted: the target's own data is the idempotency ledger.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

// Source is the read side of the migration, implemented by *gitlab.Client
type Source interface {
	CurrentUser(ctx context.Context) (*gitlab.User, error)
	ListUsers(ctx context.Context) ([]gitlab.User, error)
	GetUser(ctx context.Context, id int64) (*gitlab.User, error)
	FindUserByUsername(ctx context.Context, username string) (*gitlab.User, error)
	ListUserKeys(ctx context.Context, id int64) ([]gitlab.UserKey, error)
	ListGroups(ctx context.Context) ([]gitlab.Group, error)
	ListGroupMembers(ctx context.Context, groupID int64) ([]gitlab.Member, error)
	ListMembershipProjects(ctx context.Context) ([]gitlab.Project, error)
	GetProject(ctx context.Context, id int64) (*gitlab.Project, error)
	GetProjectByPath(ctx context.Context, fullPath string) (*gitlab.Project, error)
	ListProjectMembers(ctx context.Context, projectID int64) ([]gitlab.Member, error)
	ListProjectLabels(ctx context.Context, projectID int64) ([]gitlab.Label, error)
	ListProjectMilestones(ctx context.Context, projectID int64) ([]gitlab.Milestone, error)
	ListProjectIssues(ctx context.Context, projectID int64) ([]gitlab.Issue, error)
}

// Target is the write side of the migration, implemented by *forgejo.Client
type Target interface {
	GetUser(ctx context.Context, username string) (*forgejo.User, error)
	AdminCreateUser(ctx context.Context, opt forgejo.CreateUserOption) (*forgejo.User, error)
	ListUserKeys(ctx context.Context, username string) ([]forgejo.PublicKey, error)
	AdminCreateUserKey(ctx context.Context, username string, opt forgejo.CreateKeyOption) (*forgejo.PublicKey, error)
	GetOrg(ctx context.Context, name string) (*forgejo.Organization, error)
	CreateOrg(ctx context.Context, opt forgejo.CreateOrgOption) (*forgejo.Organization, error)
	ListOrgTeams(ctx context.Context, org string) ([]forgejo.Team, error)
	ListTeamMembers(ctx context.Context, teamID int64) ([]forgejo.User, error)
	AddTeamMember(ctx context.Context, teamID int64, username string) error
	GetRepo(ctx context.Context, owner, repo string) (*forgejo.Repository, error)
	MigrateRepo(ctx context.Context, sudo string, opt forgejo.MigrateRepoOption) (*forgejo.Repository, error)
	ListLabels(ctx context.Context, owner, repo string) ([]forgejo.Label, error)
	CreateLabel(ctx context.Context, sudo, owner, repo string, opt forgejo.CreateLabelOption) (*forgejo.Label, error)
	ListMilestones(ctx context.Context, owner, repo string) ([]forgejo.Milestone, error)
	CreateMilestone(ctx context.Context, sudo, owner, repo string, opt forgejo.CreateMilestoneOption) (*forgejo.Milestone, error)
	EditMilestone(ctx context.Context, sudo, owner, repo string, id int64, opt forgejo.EditMilestoneOption) (*forgejo.Milestone, error)
	ListIssues(ctx context.Context, owner, repo string) ([]forgejo.Issue, error)
	CreateIssue(ctx context.Context, sudo, owner, repo string, opt forgejo.CreateIssueOption) (*forgejo.Issue, error)
	IsCollaborator(ctx context.Context, owner, repo, username string) (bool, error)
	AddCollaborator(ctx context.Context, sudo, owner, repo, username, permission string) error
}

// Reporter receives an append-only audit trail of entity outcomes. The
// engine never reads it back.
type Reporter interface {
	Record(ctx context.Context, kind, key, outcome, message string)
}

// Options tunes the engine
type Options struct {
	// GitLabToken is forwarded in the repository migrate payload so the
	// target can pull from private source repositories.
	GitLabToken string
	// GitLabURL is the source instance URL, used to cross-check CSV hosts
	GitLabURL string
	// MigrateAttempts bounds the timeout retries of the repository
	// migrate call (minimum 1).
	MigrateAttempts int
	// MinAccessLevel is the caller's minimum GitLab access level for a
	// project to be eligible (30 = maintainer-equivalent write).
	MinAccessLevel int
	// PlaceholderDomain synthesizes emails for identities whose real
	// address cannot be resolved from the source.
	PlaceholderDomain string
	// ImporterUsername is the fallback author for issues without one
	ImporterUsername string
	// EmailCacheSize bounds the per-run source email memo
	EmailCacheSize int
	// Notify sends notification emails to users created by the user pass
	Notify bool
	// Reporter is optional
	Reporter Reporter
	Logger   *slog.Logger
}

// Engine drives the migration. One Engine serves one run; its caches are
// run-scoped.
type Engine struct {
	source Source
	target Target
	opts   Options
	logger *slog.Logger
	emails *emailCache

	// sleep is the backoff hook, replaceable in tests
	sleep func(d time.Duration)
}

// New creates an engine for one migration run
func New(source Source, target Target, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MigrateAttempts < 1 {
		opts.MigrateAttempts = 3
	}
	if opts.MinAccessLevel == 0 {
		opts.MinAccessLevel = 30
	}
	if opts.PlaceholderDomain == "" {
		opts.PlaceholderDomain = "noemail-git.local"
	}
	if opts.ImporterUsername == "" {
		opts.ImporterUsername = "forgejo-importer"
	}
	if opts.EmailCacheSize <= 0 {
		opts.EmailCacheSize = 10000
	}
	return &Engine{
		source: source,
		target: target,
		opts:   opts,
		logger: opts.Logger,
		emails: newEmailCache(opts.EmailCacheSize),
		sleep:  time.Sleep,
	}
}

// Selection picks the passes of one run
type Selection struct {
	Users    bool
	Groups   bool
	Projects bool
	// CSVPath restricts the project pass to an allow-list of project URLs
	CSVPath string
}

// Run executes the selected passes sequentially and returns the
// accumulated result. It never aborts early: every failure is recorded
// and processing continues with the next entity.
func (e *Engine) Run(ctx context.Context, sel Selection) *Result {
	res := NewResult()
	if sel.Users {
		e.ImportUsers(ctx, res)
	}
	if sel.Groups {
		e.ImportGroups(ctx, res)
	}
	if sel.Projects {
		e.ImportProjects(ctx, res, sel.CSVPath)
	}
	return res
}

// fail logs an error and appends a failed-entity record
func (e *Engine) fail(ctx context.Context, res *Result, tag, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Error(msg)
	res.AddError(tag)
	e.record(ctx, "error", tag, "failed", msg)
}

// warn logs a skip or degraded outcome; warnings are not failures
func (e *Engine) warn(res *Result, format string, args ...any) {
	e.logger.Warn(fmt.Sprintf(format, args...))
	res.AddWarning()
}

func (e *Engine) record(ctx context.Context, kind, key, outcome, message string) {
	if e.opts.Reporter != nil {
		e.opts.Reporter.Record(ctx, kind, key, outcome, message)
	}
}
