package forgejo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a typed wrapper around the Forgejo v1 REST API. All calls are
// synchronous and share a default timeout; the repository migrate call uses
// its own long-deadline client because the server performs the import
// inline with the request.
type Client struct {
	apiURL      string
	token       string
	httpClient  *http.Client
	migrateHTTP *http.Client
	logger      *slog.Logger
}

// ClientConfig configures the Forgejo client
type ClientConfig struct {
	BaseURL        string // instance URL, "/api/v1" is appended
	Token          string
	Timeout        time.Duration // default request timeout (0 means 30s)
	MigrateTimeout time.Duration // repo migrate timeout (0 means 1800s)
	Logger         *slog.Logger
}

// NewClient creates a new Forgejo client
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
	if cfg.MigrateTimeout == 0 {
		cfg.MigrateTimeout = 1800 * time.Second
	}

	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if !strings.HasSuffix(base, "/api/v1") {
		base += "/api/v1"
	}

	return &Client{
		apiURL:      base,
		token:       cfg.Token,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		migrateHTTP: &http.Client{Timeout: cfg.MigrateTimeout},
		logger:      cfg.Logger,
	}, nil
}

// errorBody is the server's error envelope
type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.apiURL + path
}

// do issues one API request. A non-empty sudo adds the impersonation
// header so the write is recorded as that user. out may be nil for calls
// whose response body is irrelevant.
func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path, sudo string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	fullURL := c.url(path)
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sudo != "" {
		req.Header.Set("Sudo", sudo)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return wrapTransportError(err, method, fullURL)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapTransportError(err, method, fullURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		message := strings.TrimSpace(string(data))
		if jsonErr := json.Unmarshal(data, &eb); jsonErr == nil && eb.Message != "" {
			message = eb.Message
		}
		return newStatusError(resp.StatusCode, message, method, fullURL)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, fullURL, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.httpClient, http.MethodGet, path, "", nil, out)
}

// GetVersion returns the server version, doubling as the auth handshake
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var v ServerVersion
	if err := c.get(ctx, "/version", &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// GetUser looks up a user by username
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	if err := c.get(ctx, "/users/"+url.PathEscape(username), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// AdminCreateUser creates a user through the admin API
func (c *Client) AdminCreateUser(ctx context.Context, opt CreateUserOption) (*User, error) {
	var u User
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/admin/users", "", opt, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUserKeys lists a user's public SSH keys
func (c *Client) ListUserKeys(ctx context.Context, username string) ([]PublicKey, error) {
	var keys []PublicKey
	if err := c.get(ctx, "/users/"+url.PathEscape(username)+"/keys", &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// AdminCreateUserKey adds a public SSH key to a user through the admin API
func (c *Client) AdminCreateUserKey(ctx context.Context, username string, opt CreateKeyOption) (*PublicKey, error) {
	var key PublicKey
	path := "/admin/users/" + url.PathEscape(username) + "/keys"
	if err := c.do(ctx, c.httpClient, http.MethodPost, path, "", opt, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// GetOrg looks up an organization by name
func (c *Client) GetOrg(ctx context.Context, name string) (*Organization, error) {
	var org Organization
	if err := c.get(ctx, "/orgs/"+url.PathEscape(name), &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// CreateOrg creates an organization owned by the token's admin user
func (c *Client) CreateOrg(ctx context.Context, opt CreateOrgOption) (*Organization, error) {
	var org Organization
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/orgs", "", opt, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// ListOrgTeams lists the teams of an organization
func (c *Client) ListOrgTeams(ctx context.Context, org string) ([]Team, error) {
	var teams []Team
	if err := c.get(ctx, "/orgs/"+url.PathEscape(org)+"/teams", &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// ListTeamMembers lists the members of a team
func (c *Client) ListTeamMembers(ctx context.Context, teamID int64) ([]User, error) {
	var members []User
	if err := c.get(ctx, fmt.Sprintf("/teams/%d/members", teamID), &members); err != nil {
		return nil, err
	}
	return members, nil
}

// AddTeamMember adds a user to a team
func (c *Client) AddTeamMember(ctx context.Context, teamID int64, username string) error {
	path := fmt.Sprintf("/teams/%d/members/%s", teamID, url.PathEscape(username))
	return c.do(ctx, c.httpClient, http.MethodPut, path, "", nil, nil)
}

// GetRepo looks up a repository by owner and name
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repository, error) {
	var r Repository
	if err := c.get(ctx, repoPath(owner, repo), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MigrateRepo triggers the asynchronous repository import. The request
// blocks until the server finishes (or the long timeout fires), so the
// caller owns timeout reconciliation.
func (c *Client) MigrateRepo(ctx context.Context, sudo string, opt MigrateRepoOption) (*Repository, error) {
	var r Repository
	if err := c.do(ctx, c.migrateHTTP, http.MethodPost, "/repos/migrate", sudo, opt, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListLabels lists all labels of a repository
func (c *Client) ListLabels(ctx context.Context, owner, repo string) ([]Label, error) {
	var labels []Label
	err := c.listPages(ctx, repoPath(owner, repo)+"/labels", nil, func(data []byte) (int, error) {
		var page []Label
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		labels = append(labels, page...)
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// CreateLabel creates a label, recorded as the repository owner
func (c *Client) CreateLabel(ctx context.Context, sudo, owner, repo string, opt CreateLabelOption) (*Label, error) {
	var label Label
	if err := c.do(ctx, c.httpClient, http.MethodPost, repoPath(owner, repo)+"/labels", sudo, opt, &label); err != nil {
		return nil, err
	}
	return &label, nil
}

// ListMilestones lists all milestones of a repository regardless of state
func (c *Client) ListMilestones(ctx context.Context, owner, repo string) ([]Milestone, error) {
	var milestones []Milestone
	query := url.Values{"state": {"all"}}
	err := c.listPages(ctx, repoPath(owner, repo)+"/milestones", query, func(data []byte) (int, error) {
		var page []Milestone
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		milestones = append(milestones, page...)
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return milestones, nil
}

// CreateMilestone creates a milestone in the open state
func (c *Client) CreateMilestone(ctx context.Context, sudo, owner, repo string, opt CreateMilestoneOption) (*Milestone, error) {
	var m Milestone
	if err := c.do(ctx, c.httpClient, http.MethodPost, repoPath(owner, repo)+"/milestones", sudo, opt, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EditMilestone updates a milestone, used to set its final state after
// creation since the create endpoint has no state field
func (c *Client) EditMilestone(ctx context.Context, sudo, owner, repo string, id int64, opt EditMilestoneOption) (*Milestone, error) {
	var m Milestone
	path := fmt.Sprintf("%s/milestones/%d", repoPath(owner, repo), id)
	if err := c.do(ctx, c.httpClient, http.MethodPatch, path, sudo, opt, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListIssues lists all issues of a repository regardless of state
func (c *Client) ListIssues(ctx context.Context, owner, repo string) ([]Issue, error) {
	var issues []Issue
	query := url.Values{"state": {"all"}, "type": {"issues"}}
	err := c.listPages(ctx, repoPath(owner, repo)+"/issues", query, func(data []byte) (int, error) {
		var page []Issue
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		issues = append(issues, page...)
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// CreateIssue creates an issue impersonating the given author
func (c *Client) CreateIssue(ctx context.Context, sudo, owner, repo string, opt CreateIssueOption) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, c.httpClient, http.MethodPost, repoPath(owner, repo)+"/issues", sudo, opt, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// IsCollaborator reports whether a user already collaborates on a
// repository. A 404 is the expected negative.
func (c *Client) IsCollaborator(ctx context.Context, owner, repo, username string) (bool, error) {
	path := repoPath(owner, repo) + "/collaborators/" + url.PathEscape(username)
	err := c.do(ctx, c.httpClient, http.MethodGet, path, "", nil, nil)
	if err == nil {
		return true, nil
	}
	if IsNotFoundError(err) {
		return false, nil
	}
	return false, err
}

// AddCollaborator grants a user access to a repository, recorded as the
// repository owner
func (c *Client) AddCollaborator(ctx context.Context, sudo, owner, repo, username, permission string) error {
	path := repoPath(owner, repo) + "/collaborators/" + url.PathEscape(username)
	opt := AddCollaboratorOption{Permission: permission}
	return c.do(ctx, c.httpClient, http.MethodPut, path, sudo, opt, nil)
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

const listPageSize = 50

// listPages walks a paginated listing until a short or empty page. decode
// returns the number of items it consumed from the page body.
func (c *Client) listPages(ctx context.Context, path string, query url.Values, decode func(data []byte) (int, error)) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", fmt.Sprint(listPageSize))

	for page := 1; ; page++ {
		query.Set("page", fmt.Sprint(page))
		fullURL := c.url(path) + "?" + query.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "token "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return wrapTransportError(err, http.MethodGet, fullURL)
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return wrapTransportError(err, http.MethodGet, fullURL)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var eb errorBody
			message := strings.TrimSpace(string(data))
			if jsonErr := json.Unmarshal(data, &eb); jsonErr == nil && eb.Message != "" {
				message = eb.Message
			}
			return newStatusError(resp.StatusCode, message, http.MethodGet, fullURL)
		}

		n, err := decode(data)
		if err != nil {
			return fmt.Errorf("failed to decode %s response: %w", fullURL, err)
		}
		if n < listPageSize {
			return nil
		}
	}
}
