package gitlab

// Wire types for the GitLab v4 API, limited to the fields the migration
// reads. Decoding happens here at the client boundary; the engine only
// sees these structs.

// User is a GitLab user account. Email is only populated for admin
// tokens; PublicEmail is the user-published fallback.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PublicEmail string `json:"public_email"`
}

// UserKey is a user's public SSH key
type UserKey struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Key   string `json:"key"`
}

// Group is a GitLab group (a namespace of kind "group")
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	FullName    string `json:"full_name"`
	FullPath    string `json:"full_path"`
	Description string `json:"description"`
}

// Member is a group or project membership entry
type Member struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AccessLevel int    `json:"access_level"`
}

// Namespace is the owning scope of a project, either a personal account
// (kind "user") or a group (kind "group")
type Namespace struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	FullPath string `json:"full_path"`
}

// Project is a GitLab project
type Project struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Path              string       `json:"path"`
	PathWithNamespace string       `json:"path_with_namespace"`
	Description       string       `json:"description"`
	Visibility        string       `json:"visibility"` // "private", "internal", "public"
	HTTPURLToRepo     string       `json:"http_url_to_repo"`
	Namespace         Namespace    `json:"namespace"`
	Permissions       *Permissions `json:"permissions"`
}

// Permissions carries the caller's access levels on a project
type Permissions struct {
	ProjectAccess *Access `json:"project_access"`
	GroupAccess   *Access `json:"group_access"`
}

// Access is a single access-level grant
type Access struct {
	AccessLevel int `json:"access_level"`
}

// AccessLevel returns the caller's effective access level on the project,
// the maximum of its direct and group grants.
func (p *Project) AccessLevel() int {
	if p.Permissions == nil {
		return 0
	}
	level := 0
	if a := p.Permissions.ProjectAccess; a != nil && a.AccessLevel > level {
		level = a.AccessLevel
	}
	if a := p.Permissions.GroupAccess; a != nil && a.AccessLevel > level {
		level = a.AccessLevel
	}
	return level
}

// Label is a project label
type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Milestone is a project milestone
type Milestone struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"` // "active" or "closed"
	DueDate     string `json:"due_date"`
}

// IssueRef is a user reference embedded in an issue
type IssueRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// IssueMilestone is a milestone reference embedded in an issue
type IssueMilestone struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Issue is a project issue
type Issue struct {
	IID         int64           `json:"iid"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	State       string          `json:"state"` // "opened" or "closed"
	DueDate     string          `json:"due_date"`
	Author      *IssueRef       `json:"author"`
	Assignee    *IssueRef       `json:"assignee"`
	Assignees   []IssueRef      `json:"assignees"`
	Labels      []string        `json:"labels"`
	Milestone   *IssueMilestone `json:"milestone"`
}

// Version is the version handshake response
type Version struct {
	Version string `json:"version"`
}
