package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const (
	// minRequestSpacing is enforced before every outbound call to smooth the
	// request rate under GitHub's limits.
	minRequestSpacing = 150 * time.Millisecond

	// maxPerPage is GitHub's hard per-page maximum.
	maxPerPage = 100
)

// GitHubClient issues throttled, optionally authenticated requests to
// GitHub's REST and Search endpoints. Every call is independent and
// side-effect-free on the local store.
type GitHubClient struct {
	client *github.Client

	// lastRequest serializes the spacing of outbound calls process-wide.
	// Callers can still have requests in flight concurrently, just spaced
	// apart in issuance.
	mu          sync.Mutex
	lastRequest time.Time
}

// NewGitHubClient creates a client. An empty token means anonymous access
// (60 requests/hour instead of 5000).
func NewGitHubClient(token string) *GitHubClient {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return &GitHubClient{client: github.NewClient(httpClient)}
}

// SetBaseURL points the client at a different API root (trailing slash
// required by go-github). Used by tests against a fake server.
func (c *GitHubClient) SetBaseURL(rawURL string) error {
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	c.client.BaseURL = parsed
	return nil
}

func (c *GitHubClient) throttle() {
	c.mu.Lock()
	next := c.lastRequest.Add(minRequestSpacing)
	now := time.Now()
	var wait time.Duration
	if next.After(now) {
		wait = next.Sub(now)
		c.lastRequest = next
	} else {
		c.lastRequest = now
	}
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

func capPerPage(perPage int) int {
	if perPage <= 0 || perPage > maxPerPage {
		return maxPerPage
	}
	return perPage
}

// activityWindowStart returns the date bounding the trailing activity window.
func activityWindowStart() string {
	return time.Now().AddDate(0, 0, -models.ActivityWindowDays).Format("2006-01-02")
}

// SearchRepositories searches public repositories, combining free text with
// language and minimum-star qualifiers.
func (c *GitHubClient) SearchRepositories(ctx context.Context, query, language, sort, order string, perPage, minStars int) (*github.RepositoriesSearchResult, error) {
	var parts []string
	if query != "" {
		parts = append(parts, query)
	}
	if language != "" {
		parts = append(parts, "language:"+language)
	}
	if minStars > 0 {
		parts = append(parts, fmt.Sprintf("stars:>=%d", minStars))
	}
	parts = append(parts, "is:public")

	opts := &github.SearchOptions{
		Sort:  sort,
		Order: order,
		ListOptions: github.ListOptions{
			PerPage: capPerPage(perPage),
		},
	}

	c.throttle()
	result, _, err := c.client.Search.Repositories(ctx, strings.Join(parts, " "), opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchUsers runs a user search with the given raw query.
func (c *GitHubClient) SearchUsers(ctx context.Context, query string, perPage int) ([]*github.User, error) {
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: capPerPage(perPage)},
	}

	c.throttle()
	result, _, err := c.client.Search.Users(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return result.Users, nil
}

// SearchUsersByCompany searches users declaring the given company on their
// profile.
func (c *GitHubClient) SearchUsersByCompany(ctx context.Context, company string, perPage int) ([]*github.User, error) {
	return c.SearchUsers(ctx, fmt.Sprintf("%s in:company type:user", company), perPage)
}

// GetUser fetches a single user profile. A 404 yields (nil, nil) since
// absence is expected.
func (c *GitHubClient) GetUser(ctx context.Context, username string) (*github.User, error) {
	c.throttle()
	user, _, err := c.client.Users.Get(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserRepositories lists a user's repositories, most recently updated
// first.
func (c *GitHubClient) GetUserRepositories(ctx context.Context, username string, perPage, page int) ([]*github.Repository, error) {
	opts := &github.RepositoryListOptions{
		Type:      "owner",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: capPerPage(perPage),
			Page:    page,
		},
	}

	c.throttle()
	repos, _, err := c.client.Repositories.List(ctx, username, opts)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return repos, nil
}

// GetUserOrganizations lists a user's public organization memberships. No
// organizations is a normal outcome, not an error.
func (c *GitHubClient) GetUserOrganizations(ctx context.Context, username string) ([]*github.Organization, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}

	c.throttle()
	orgs, _, err := c.client.Organizations.List(ctx, username, opts)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return orgs, nil
}

// GetOrganizationMembers lists public members of an organization. A missing
// organization yields an empty result.
func (c *GitHubClient) GetOrganizationMembers(ctx context.Context, org string, perPage, page int) ([]*github.User, error) {
	opts := &github.ListMembersOptions{
		ListOptions: github.ListOptions{
			PerPage: capPerPage(perPage),
			Page:    page,
		},
	}

	c.throttle()
	members, _, err := c.client.Organizations.ListMembers(ctx, org, opts)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return members, nil
}

// GetContributors lists contributors of a repository.
func (c *GitHubClient) GetContributors(ctx context.Context, owner, repo string, perPage int) ([]*github.Contributor, error) {
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: capPerPage(perPage)},
	}

	c.throttle()
	contributors, _, err := c.client.Repositories.ListContributors(ctx, owner, repo, opts)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return contributors, nil
}

// GetLanguages returns the byte counts per language for a repository.
func (c *GitHubClient) GetLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	c.throttle()
	languages, _, err := c.client.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return languages, nil
}

// GetUserPullRequests returns the user's pull requests in the given state
// within the trailing activity window, plus the total match count.
func (c *GitHubClient) GetUserPullRequests(ctx context.Context, username, state string, perPage int) ([]*github.Issue, int, error) {
	var query string
	switch state {
	case "merged":
		query = fmt.Sprintf("type:pr author:%s is:merged merged:>=%s", username, activityWindowStart())
	default:
		query = fmt.Sprintf("type:pr author:%s state:%s updated:>=%s", username, state, activityWindowStart())
	}
	return c.searchIssues(ctx, query, perPage)
}

// GetUserIssuesClosed returns closed issues the user was involved in but did
// not author, within the trailing activity window.
func (c *GitHubClient) GetUserIssuesClosed(ctx context.Context, username string, perPage int) ([]*github.Issue, int, error) {
	query := fmt.Sprintf("type:issue assignee:%s is:closed -author:%s closed:>=%s", username, username, activityWindowStart())
	return c.searchIssues(ctx, query, perPage)
}

// GetUserPRReviews returns pull requests the user reviewed (but did not
// author) within the trailing activity window.
func (c *GitHubClient) GetUserPRReviews(ctx context.Context, username string, perPage int) ([]*github.Issue, int, error) {
	query := fmt.Sprintf("type:pr reviewed-by:%s -author:%s updated:>=%s", username, username, activityWindowStart())
	return c.searchIssues(ctx, query, perPage)
}

func (c *GitHubClient) searchIssues(ctx context.Context, query string, perPage int) ([]*github.Issue, int, error) {
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: capPerPage(perPage)},
	}

	c.throttle()
	result, _, err := c.client.Search.Issues(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return result.Issues, result.GetTotal(), nil
}

// IsMaintainerOfActiveRepo reports whether the user owns at least one
// non-fork repository updated within the activity window that has stars or
// forks.
func (c *GitHubClient) IsMaintainerOfActiveRepo(ctx context.Context, username string) (bool, error) {
	repos, err := c.GetUserRepositories(ctx, username, maxPerPage, 1)
	if err != nil {
		return false, err
	}

	cutoff := time.Now().AddDate(0, 0, -models.ActivityWindowDays)
	for _, repo := range repos {
		if repo.GetFork() {
			continue
		}
		if repo.GetStargazersCount() == 0 && repo.GetForksCount() == 0 {
			continue
		}
		if repo.GetUpdatedAt().After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

// IsRateLimited reports whether the error is GitHub's rate-limit signal
// (primary or secondary limits, HTTP 403/429). Rate-limited calls are never
// retried here; callers decide.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		return code == http.StatusForbidden || code == http.StatusTooManyRequests
	}
	return false
}

// IsNotFound reports whether the error is a 404 on a single resource.
func IsNotFound(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusNotFound
}

// IsValidationFailed reports whether the error is a 422, e.g. a malformed
// search query. Callers skip the offending query and continue.
func IsValidationFailed(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusUnprocessableEntity
}
