package forgejo

// Wire types for the Forgejo v1 API. Only the fields the engine reads or
// writes are declared; the decoder drops the rest at the client boundary so
// the reconciliation logic never touches untyped payloads.

// User is a Forgejo user account
type User struct {
	ID       int64  `json:"id"`
	UserName string `json:"login"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Organization is a Forgejo organization
type Organization struct {
	ID          int64  `json:"id"`
	UserName    string `json:"username"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
}

// Owner is the resolved destination account for a repository, either a
// user or an organization.
type Owner struct {
	ID       int64
	UserName string
	Kind     OwnerKind
}

// OwnerKind discriminates user and organization owners
type OwnerKind string

const (
	OwnerUser OwnerKind = "user"
	OwnerOrg  OwnerKind = "org"
)

// Repository is a Forgejo repository
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	Owner       *User  `json:"owner"`
}

// Label is a repository issue label
type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Milestone is a repository milestone
type Milestone struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	DueOn       string `json:"due_on"`
}

// Issue is a repository issue
type Issue struct {
	ID     int64  `json:"id"`
	Number int64  `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

// Team is an organization team
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Permission string `json:"permission"`
}

// PublicKey is a user SSH public key
type PublicKey struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Key      string `json:"key"`
	ReadOnly bool   `json:"read_only"`
}

// ServerVersion is the version handshake response
type ServerVersion struct {
	Version string `json:"version"`
}

// CreateUserOption is the payload for the admin create-user call
type CreateUserOption struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	LoginName  string `json:"login_name"`
	Password   string `json:"password"`
	SendNotify bool   `json:"send_notify"`
	SourceID   int64  `json:"source_id"`
	Username   string `json:"username"`
}

// CreateOrgOption is the payload for the create-organization call
type CreateOrgOption struct {
	Description string `json:"description"`
	FullName    string `json:"full_name"`
	Location    string `json:"location"`
	Username    string `json:"username"`
	Website     string `json:"website"`
}

// CreateKeyOption is the payload for the admin create-key call
type CreateKeyOption struct {
	Key      string `json:"key"`
	ReadOnly bool   `json:"read_only"`
	Title    string `json:"title"`
}

// MigrateRepoOption is the payload for the asynchronous repository import.
// Mirror stays false: this is a one-shot copy, not a live mirror.
type MigrateRepoOption struct {
	Service      string `json:"service"`
	CloneAddr    string `json:"clone_addr"`
	AuthToken    string `json:"auth_token,omitempty"`
	UID          int64  `json:"uid"`
	RepoName     string `json:"repo_name"`
	Description  string `json:"description"`
	Private      bool   `json:"private"`
	Mirror       bool   `json:"mirror"`
	Issues       bool   `json:"issues"`
	Labels       bool   `json:"labels"`
	Milestones   bool   `json:"milestones"`
	PullRequests bool   `json:"pull_requests"`
	Releases     bool   `json:"releases"`
	Wiki         bool   `json:"wiki"`
}

// CreateLabelOption is the payload for the create-label call
type CreateLabelOption struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// CreateMilestoneOption is the payload for the create-milestone call.
// The endpoint does not accept a state; EditMilestoneOption sets it in a
// follow-up call.
type CreateMilestoneOption struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueOn       string `json:"due_on,omitempty"`
}

// EditMilestoneOption is the payload for the milestone state update
type EditMilestoneOption struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueOn       string `json:"due_on,omitempty"`
	State       string `json:"state"`
}

// CreateIssueOption is the payload for the create-issue call, issued under
// Sudo impersonation of the original author.
type CreateIssueOption struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Assignee  string   `json:"assignee,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
	Closed    bool     `json:"closed"`
	DueDate   string   `json:"due_date,omitempty"`
	Labels    []int64  `json:"labels,omitempty"`
	Milestone int64    `json:"milestone,omitempty"`
}

// AddCollaboratorOption is the payload for the collaborator grant call
type AddCollaboratorOption struct {
	Permission string `json:"permission"`
}
