package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
)

func notFoundErr(what string) error {
	return &forgejo.APIError{StatusCode: 404, Message: what + " not found", Err: forgejo.ErrNotFound}
}

func conflictErr(message string) error {
	return &forgejo.APIError{StatusCode: 409, Message: message, Err: forgejo.ErrAlreadyExists}
}

func validationErr(message string) error {
	return &forgejo.APIError{StatusCode: 422, Message: message, Err: forgejo.ErrValidation}
}

func timeoutErr() error {
	return &forgejo.APIError{Message: "request timed out", Err: fmt.Errorf("%w: read deadline", forgejo.ErrTimeout)}
}

// fakeSource is an in-memory Source
type fakeSource struct {
	users    []gitlab.User
	userKeys map[int64][]gitlab.UserKey
	groups   []gitlab.Group
	members  map[int64][]gitlab.Member // group id -> members

	projects       map[int64]*gitlab.Project
	projectsByPath map[string]*gitlab.Project
	membership     []gitlab.Project
	projMembers    map[int64][]gitlab.Member
	projLabels     map[int64][]gitlab.Label
	projMilestones map[int64][]gitlab.Milestone
	projIssues     map[int64][]gitlab.Issue

	getUserCalls int
	listUsersErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		userKeys:       make(map[int64][]gitlab.UserKey),
		members:        make(map[int64][]gitlab.Member),
		projects:       make(map[int64]*gitlab.Project),
		projectsByPath: make(map[string]*gitlab.Project),
		projMembers:    make(map[int64][]gitlab.Member),
		projLabels:     make(map[int64][]gitlab.Label),
		projMilestones: make(map[int64][]gitlab.Milestone),
		projIssues:     make(map[int64][]gitlab.Issue),
	}
}

func (s *fakeSource) CurrentUser(ctx context.Context) (*gitlab.User, error) {
	if len(s.users) == 0 {
		return nil, gitlab.ErrNotFound
	}
	return &s.users[0], nil
}

func (s *fakeSource) ListUsers(ctx context.Context) ([]gitlab.User, error) {
	if s.listUsersErr != nil {
		return nil, s.listUsersErr
	}
	return s.users, nil
}

func (s *fakeSource) GetUser(ctx context.Context, id int64) (*gitlab.User, error) {
	s.getUserCalls++
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i], nil
		}
	}
	return nil, gitlab.ErrNotFound
}

func (s *fakeSource) FindUserByUsername(ctx context.Context, username string) (*gitlab.User, error) {
	for i := range s.users {
		if s.users[i].Username == username {
			return &s.users[i], nil
		}
	}
	return nil, gitlab.ErrNotFound
}

func (s *fakeSource) ListUserKeys(ctx context.Context, id int64) ([]gitlab.UserKey, error) {
	return s.userKeys[id], nil
}

func (s *fakeSource) ListGroups(ctx context.Context) ([]gitlab.Group, error) {
	return s.groups, nil
}

func (s *fakeSource) ListGroupMembers(ctx context.Context, groupID int64) ([]gitlab.Member, error) {
	return s.members[groupID], nil
}

func (s *fakeSource) ListMembershipProjects(ctx context.Context) ([]gitlab.Project, error) {
	return s.membership, nil
}

func (s *fakeSource) GetProject(ctx context.Context, id int64) (*gitlab.Project, error) {
	if p, ok := s.projects[id]; ok {
		return p, nil
	}
	return nil, gitlab.ErrNotFound
}

func (s *fakeSource) GetProjectByPath(ctx context.Context, fullPath string) (*gitlab.Project, error) {
	if p, ok := s.projectsByPath[fullPath]; ok {
		return p, nil
	}
	return nil, gitlab.ErrNotFound
}

func (s *fakeSource) ListProjectMembers(ctx context.Context, projectID int64) ([]gitlab.Member, error) {
	return s.projMembers[projectID], nil
}

func (s *fakeSource) ListProjectLabels(ctx context.Context, projectID int64) ([]gitlab.Label, error) {
	return s.projLabels[projectID], nil
}

func (s *fakeSource) ListProjectMilestones(ctx context.Context, projectID int64) ([]gitlab.Milestone, error) {
	return s.projMilestones[projectID], nil
}

func (s *fakeSource) ListProjectIssues(ctx context.Context, projectID int64) ([]gitlab.Issue, error) {
	return s.projIssues[projectID], nil
}

// fakeTarget is an in-memory Target that honors the same
// existence-before-creation contract as the real server.
type fakeTarget struct {
	users         map[string]*forgejo.User
	orgs          map[string]*forgejo.Organization
	teams         map[string][]forgejo.Team
	teamMembers   map[int64][]forgejo.User
	repos         map[string]*forgejo.Repository
	labels        map[string][]forgejo.Label
	milestones    map[string][]forgejo.Milestone
	issues        map[string][]forgejo.Issue
	collaborators map[string]map[string]string
	userKeys      map[string][]forgejo.PublicKey

	nextID int64

	createUserCalls  int
	createOrgCalls   int
	migrateCalls     int
	createIssueCalls []forgejo.CreateIssueOption
	editedMilestones []forgejo.EditMilestoneOption

	// per-call error scripts, consumed in order; nil past the end
	migrateErrs     []error
	createIssueErrs []error
	getUserErr      error
	createUserErr   error
	listTeamsErr    error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		users:         make(map[string]*forgejo.User),
		orgs:          make(map[string]*forgejo.Organization),
		teams:         make(map[string][]forgejo.Team),
		teamMembers:   make(map[int64][]forgejo.User),
		repos:         make(map[string]*forgejo.Repository),
		labels:        make(map[string][]forgejo.Label),
		milestones:    make(map[string][]forgejo.Milestone),
		issues:        make(map[string][]forgejo.Issue),
		collaborators: make(map[string]map[string]string),
		userKeys:      make(map[string][]forgejo.PublicKey),
		nextID:        100,
	}
}

func (t *fakeTarget) id() int64 {
	t.nextID++
	return t.nextID
}

func scriptedErr(script []error, call int) error {
	if call < len(script) {
		return script[call]
	}
	return nil
}

func repoKey(owner, repo string) string {
	return owner + "/" + repo
}

func (t *fakeTarget) addUser(username string) *forgejo.User {
	u := &forgejo.User{ID: t.id(), UserName: username, FullName: username}
	t.users[username] = u
	return u
}

func (t *fakeTarget) addOrg(name string) *forgejo.Organization {
	o := &forgejo.Organization{ID: t.id(), UserName: name, FullName: name}
	t.orgs[name] = o
	return o
}

func (t *fakeTarget) addRepo(owner, repo string) {
	t.repos[repoKey(owner, repo)] = &forgejo.Repository{ID: t.id(), Name: repo, FullName: repoKey(owner, repo)}
}

func (t *fakeTarget) GetUser(ctx context.Context, username string) (*forgejo.User, error) {
	if t.getUserErr != nil {
		return nil, t.getUserErr
	}
	if u, ok := t.users[username]; ok {
		return u, nil
	}
	return nil, notFoundErr("user " + username)
}

func (t *fakeTarget) AdminCreateUser(ctx context.Context, opt forgejo.CreateUserOption) (*forgejo.User, error) {
	t.createUserCalls++
	if t.createUserErr != nil {
		return nil, t.createUserErr
	}
	if _, ok := t.users[opt.Username]; ok {
		return nil, conflictErr("user already exists")
	}
	u := &forgejo.User{ID: t.id(), UserName: opt.Username, FullName: opt.FullName, Email: opt.Email}
	t.users[opt.Username] = u
	return u, nil
}

func (t *fakeTarget) ListUserKeys(ctx context.Context, username string) ([]forgejo.PublicKey, error) {
	return t.userKeys[username], nil
}

func (t *fakeTarget) AdminCreateUserKey(ctx context.Context, username string, opt forgejo.CreateKeyOption) (*forgejo.PublicKey, error) {
	k := forgejo.PublicKey{ID: t.id(), Title: opt.Title, Key: opt.Key, ReadOnly: opt.ReadOnly}
	t.userKeys[username] = append(t.userKeys[username], k)
	return &k, nil
}

func (t *fakeTarget) GetOrg(ctx context.Context, name string) (*forgejo.Organization, error) {
	if o, ok := t.orgs[name]; ok {
		return o, nil
	}
	return nil, notFoundErr("org " + name)
}

func (t *fakeTarget) CreateOrg(ctx context.Context, opt forgejo.CreateOrgOption) (*forgejo.Organization, error) {
	t.createOrgCalls++
	if _, ok := t.orgs[opt.Username]; ok {
		return nil, conflictErr("org already exists")
	}
	o := &forgejo.Organization{ID: t.id(), UserName: opt.Username, FullName: opt.FullName, Description: opt.Description}
	t.orgs[opt.Username] = o
	// every new org carries an Owners team
	team := forgejo.Team{ID: t.id(), Name: "Owners"}
	t.teams[opt.Username] = []forgejo.Team{team}
	return o, nil
}

func (t *fakeTarget) ListOrgTeams(ctx context.Context, org string) ([]forgejo.Team, error) {
	if t.listTeamsErr != nil {
		return nil, t.listTeamsErr
	}
	return t.teams[org], nil
}

func (t *fakeTarget) ListTeamMembers(ctx context.Context, teamID int64) ([]forgejo.User, error) {
	return t.teamMembers[teamID], nil
}

func (t *fakeTarget) AddTeamMember(ctx context.Context, teamID int64, username string) error {
	u, ok := t.users[username]
	if !ok {
		return notFoundErr("user " + username)
	}
	t.teamMembers[teamID] = append(t.teamMembers[teamID], *u)
	return nil
}

func (t *fakeTarget) GetRepo(ctx context.Context, owner, repo string) (*forgejo.Repository, error) {
	if r, ok := t.repos[repoKey(owner, repo)]; ok {
		return r, nil
	}
	return nil, notFoundErr("repo " + repoKey(owner, repo))
}

func (t *fakeTarget) MigrateRepo(ctx context.Context, sudo string, opt forgejo.MigrateRepoOption) (*forgejo.Repository, error) {
	call := t.migrateCalls
	t.migrateCalls++
	if err := scriptedErr(t.migrateErrs, call); err != nil {
		return nil, err
	}
	key := ""
	for name, u := range t.users {
		if u.ID == opt.UID {
			key = name
		}
	}
	for name, o := range t.orgs {
		if o.ID == opt.UID {
			key = name
		}
	}
	r := &forgejo.Repository{ID: t.id(), Name: opt.RepoName, FullName: repoKey(key, opt.RepoName), Private: opt.Private}
	t.repos[repoKey(key, opt.RepoName)] = r
	return r, nil
}

func (t *fakeTarget) ListLabels(ctx context.Context, owner, repo string) ([]forgejo.Label, error) {
	return t.labels[repoKey(owner, repo)], nil
}

func (t *fakeTarget) CreateLabel(ctx context.Context, sudo, owner, repo string, opt forgejo.CreateLabelOption) (*forgejo.Label, error) {
	key := repoKey(owner, repo)
	for _, l := range t.labels[key] {
		if l.Name == opt.Name {
			return nil, conflictErr("label already exists")
		}
	}
	l := forgejo.Label{ID: t.id(), Name: opt.Name, Color: opt.Color, Description: opt.Description}
	t.labels[key] = append(t.labels[key], l)
	return &l, nil
}

func (t *fakeTarget) ListMilestones(ctx context.Context, owner, repo string) ([]forgejo.Milestone, error) {
	return t.milestones[repoKey(owner, repo)], nil
}

func (t *fakeTarget) CreateMilestone(ctx context.Context, sudo, owner, repo string, opt forgejo.CreateMilestoneOption) (*forgejo.Milestone, error) {
	key := repoKey(owner, repo)
	for _, m := range t.milestones[key] {
		if m.Title == opt.Title {
			return nil, conflictErr("milestone already exists")
		}
	}
	m := forgejo.Milestone{ID: t.id(), Title: opt.Title, Description: opt.Description, State: "open", DueOn: opt.DueOn}
	t.milestones[key] = append(t.milestones[key], m)
	return &m, nil
}

func (t *fakeTarget) EditMilestone(ctx context.Context, sudo, owner, repo string, id int64, opt forgejo.EditMilestoneOption) (*forgejo.Milestone, error) {
	t.editedMilestones = append(t.editedMilestones, opt)
	key := repoKey(owner, repo)
	for i := range t.milestones[key] {
		if t.milestones[key][i].ID == id {
			t.milestones[key][i].State = opt.State
			return &t.milestones[key][i], nil
		}
	}
	return nil, notFoundErr("milestone")
}

func (t *fakeTarget) ListIssues(ctx context.Context, owner, repo string) ([]forgejo.Issue, error) {
	return t.issues[repoKey(owner, repo)], nil
}

func (t *fakeTarget) CreateIssue(ctx context.Context, sudo, owner, repo string, opt forgejo.CreateIssueOption) (*forgejo.Issue, error) {
	call := len(t.createIssueCalls)
	t.createIssueCalls = append(t.createIssueCalls, opt)
	if err := scriptedErr(t.createIssueErrs, call); err != nil {
		return nil, err
	}
	key := repoKey(owner, repo)
	issue := forgejo.Issue{ID: t.id(), Title: opt.Title, Body: opt.Body}
	t.issues[key] = append(t.issues[key], issue)
	return &issue, nil
}

func (t *fakeTarget) IsCollaborator(ctx context.Context, owner, repo, username string) (bool, error) {
	grants, ok := t.collaborators[repoKey(owner, repo)]
	if !ok {
		return false, nil
	}
	_, ok = grants[username]
	return ok, nil
}

func (t *fakeTarget) AddCollaborator(ctx context.Context, sudo, owner, repo, username, permission string) error {
	key := repoKey(owner, repo)
	if t.collaborators[key] == nil {
		t.collaborators[key] = make(map[string]string)
	}
	t.collaborators[key][username] = permission
	return nil
}

var _ Source = (*fakeSource)(nil)
var _ Target = (*fakeTarget)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEngine wires an engine against the fakes with an instant sleep
// that records requested backoffs.
type testEngine struct {
	*Engine
	source *fakeSource
	target *fakeTarget
	sleeps []time.Duration
}

func newTestEngine() *testEngine {
	source := newFakeSource()
	target := newFakeTarget()
	e := New(source, target, Options{
		GitLabToken: "glpat-test",
		GitLabURL:   "https://gitlab.example.com",
		Logger:      discardLogger(),
	})
	te := &testEngine{Engine: e, source: source, target: target}
	e.sleep = func(d time.Duration) {
		te.sleeps = append(te.sleeps, d)
	}
	return te
}
