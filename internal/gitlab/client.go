package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned when a GitLab resource does not exist
var ErrNotFound = errors.New("gitlab resource not found")

// Client is a typed, read-only wrapper around the GitLab v4 REST API
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig configures the GitLab client
type ClientConfig struct {
	BaseURL string // instance URL (e.g. "https://gitlab.example.com")
	Token   string
	Timeout time.Duration // 0 means 30s
	Logger  *slog.Logger
}

// NewClient creates a new GitLab client authenticated with a static
// bearer token.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.Timeout

	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if !strings.HasSuffix(base, "/api/v4") {
		base += "/api/v4"
	}

	return &Client{
		apiURL:     base,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := c.apiURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gitlab request failed: GET %s: %w", fullURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gitlab request failed: GET %s: %w", fullURL, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", fullURL, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gitlab api error: GET %s returned %d: %s",
			fullURL, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode GET %s response: %w", fullURL, err)
		}
	}
	return nil
}

const perPage = 100

// listPages walks a paginated listing until a short page
func listPages[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", fmt.Sprint(perPage))

	var all []T
	for page := 1; ; page++ {
		query.Set("page", fmt.Sprint(page))
		var batch []T
		if err := c.get(ctx, path, query, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			return all, nil
		}
	}
}

// CurrentUser returns the authenticated user
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetVersion returns the server version, doubling as the auth handshake
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var v Version
	if err := c.get(ctx, "/version", nil, &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// ListUsers lists every user of the instance
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return listPages[User](ctx, c, "/users", nil)
}

// GetUser fetches the full record of one user. With an admin token this
// includes the primary email.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := c.get(ctx, fmt.Sprintf("/users/%d", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByUsername resolves a username to a user record via the exact
// filter first, then a search fallback.
func (c *Client) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is empty: %w", ErrNotFound)
	}

	var users []User
	if err := c.get(ctx, "/users", url.Values{"username": {username}}, &users); err == nil && len(users) > 0 {
		return &users[0], nil
	}

	if err := c.get(ctx, "/users", url.Values{"search": {username}}, &users); err != nil {
		return nil, err
	}
	for i := range users {
		if strings.TrimSpace(users[i].Username) == username {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
}

// ListUserKeys lists a user's public SSH keys
func (c *Client) ListUserKeys(ctx context.Context, id int64) ([]UserKey, error) {
	return listPages[UserKey](ctx, c, fmt.Sprintf("/users/%d/keys", id), nil)
}

// ListGroups lists every group the token can see
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	return listPages[Group](ctx, c, "/groups", nil)
}

// ListGroupMembers lists the members of a group
func (c *Client) ListGroupMembers(ctx context.Context, groupID int64) ([]Member, error) {
	return listPages[Member](ctx, c, fmt.Sprintf("/groups/%d/members", groupID), nil)
}

// ListMembershipProjects lists the projects the caller is a member of, in
// stable id order. The summaries lack permissions; GetProject fills them.
func (c *Client) ListMembershipProjects(ctx context.Context) ([]Project, error) {
	query := url.Values{
		"membership": {"true"},
		"order_by":   {"id"},
		"sort":       {"asc"},
	}
	return listPages[Project](ctx, c, "/projects", query)
}

// GetProject fetches one project with the caller's permissions
func (c *Client) GetProject(ctx context.Context, id int64) (*Project, error) {
	var p Project
	if err := c.get(ctx, fmt.Sprintf("/projects/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectByPath fetches one project by its full path ("group/project")
func (c *Client) GetProjectByPath(ctx context.Context, fullPath string) (*Project, error) {
	var p Project
	if err := c.get(ctx, "/projects/"+url.PathEscape(fullPath), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjectMembers lists the members of a project
func (c *Client) ListProjectMembers(ctx context.Context, projectID int64) ([]Member, error) {
	return listPages[Member](ctx, c, fmt.Sprintf("/projects/%d/members", projectID), nil)
}

// ListProjectLabels lists the labels of a project
func (c *Client) ListProjectLabels(ctx context.Context, projectID int64) ([]Label, error) {
	return listPages[Label](ctx, c, fmt.Sprintf("/projects/%d/labels", projectID), nil)
}

// ListProjectMilestones lists the milestones of a project
func (c *Client) ListProjectMilestones(ctx context.Context, projectID int64) ([]Milestone, error) {
	return listPages[Milestone](ctx, c, fmt.Sprintf("/projects/%d/milestones", projectID), nil)
}

// ListProjectIssues lists every issue of a project regardless of state
func (c *Client) ListProjectIssues(ctx context.Context, projectID int64) ([]Issue, error) {
	// no state filter: GitLab returns opened and closed issues by default
	query := url.Values{"scope": {"all"}}
	return listPages[Issue](ctx, c, fmt.Sprintf("/projects/%d/issues", projectID), query)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
