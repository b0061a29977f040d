package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
	"github.com/google/go-github/v57/github"
)

// Metric proxies. GitHub does not cheaply expose per-contributor PR, commit,
// or closed-issue totals, so these stand in as documented approximations.
// Changing them changes every score; do not tune without product guidance.
const (
	prsPerRepoProxy       = 2
	commitsPerRepoProxy   = 10
	closedIssueRatioProxy = 0.3
)

const (
	aggregationRepoPageSize = 30
	topRepositoryMinStars   = 10
	maxTopRepositories      = 5
	maxTopLanguages         = 5
)

// ScoreService converts raw aggregated metrics into sub-scores and a single
// normalized impact score in [0, 100].
type ScoreService struct {
	githubClient     *GitHubClient
	attributeService *AttributeService
}

func NewScoreService(githubClient *GitHubClient, attributeService *AttributeService) *ScoreService {
	return &ScoreService{
		githubClient:     githubClient,
		attributeService: attributeService,
	}
}

// FetchAndScore builds a complete Developer record for a username from live
// GitHub state. Returns (nil, nil) when the user does not exist. The record
// is fully recomputed; repeated runs against identical upstream state yield
// identical scores.
func (s *ScoreService) FetchAndScore(ctx context.Context, username string) (*models.Developer, error) {
	var (
		user     *github.User
		repos    []*github.Repository
		orgs     []*github.Organization
		userErr  error
		repoErr  error
		orgErr   error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		user, userErr = s.githubClient.GetUser(ctx, username)
	}()
	go func() {
		defer wg.Done()
		repos, repoErr = s.githubClient.GetUserRepositories(ctx, username, aggregationRepoPageSize, 1)
	}()
	go func() {
		defer wg.Done()
		orgs, orgErr = s.githubClient.GetUserOrganizations(ctx, username)
	}()
	wg.Wait()

	if userErr != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", username, userErr)
	}
	if user == nil {
		return nil, nil
	}
	if repoErr != nil {
		if IsRateLimited(repoErr) {
			return nil, repoErr
		}
		logger.WithError(repoErr).Warnf("scoring %s without repository data", username)
	}
	if orgErr != nil {
		if IsRateLimited(orgErr) {
			return nil, orgErr
		}
		logger.WithError(orgErr).Warnf("scoring %s without organization data", username)
	}

	dev := s.aggregate(user, repos, orgs)
	ComputeScores(dev)
	dev.LastCalculatedAt = time.Now()
	return dev, nil
}

func (s *ScoreService) aggregate(user *github.User, repos []*github.Repository, orgs []*github.Organization) *models.Developer {
	dev := &models.Developer{
		Username:    user.GetLogin(),
		ProfileType: models.ProfileTypeDeveloper,
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
	}

	if name := user.GetName(); name != "" {
		dev.DisplayName = &name
	}
	if bio := user.GetBio(); bio != "" {
		dev.Bio = &bio
	}
	if avatar := user.GetAvatarURL(); avatar != "" {
		dev.AvatarURL = &avatar
	}
	if profile := user.GetHTMLURL(); profile != "" {
		dev.ProfileURL = &profile
	}

	dev.PublicRepoCount = user.GetPublicRepos()
	dev.TotalPRs = dev.PublicRepoCount * prsPerRepoProxy
	dev.TotalCommits = dev.PublicRepoCount * commitsPerRepoProxy

	if created := user.GetCreatedAt(); !created.IsZero() {
		createdAt := created.Time
		dev.GithubAccountCreatedAt = &createdAt
		dev.YearsActive = time.Since(createdAt).Hours() / (24 * 365.25)
	}

	languageCounts := make(map[string]int)
	var estimatedIssues float64
	var lastActive time.Time

	for _, repo := range repos {
		// Recency counts forks too; every other aggregate excludes them.
		if updated := repo.GetUpdatedAt(); updated.After(lastActive) {
			lastActive = updated.Time
		}
		if repo.GetFork() {
			continue
		}

		dev.ActiveProjectCount++
		dev.TotalStarsReceived += repo.GetStargazersCount()
		dev.TotalForksReceived += repo.GetForksCount()
		estimatedIssues += float64(repo.GetOpenIssuesCount()) * closedIssueRatioProxy

		if language := repo.GetLanguage(); language != "" {
			languageCounts[language]++
		}
		if repo.GetStargazersCount() > topRepositoryMinStars && len(dev.TopRepositories) < maxTopRepositories {
			dev.TopRepositories = append(dev.TopRepositories, repo.GetFullName())
		}
	}

	dev.TotalIssues = int(estimatedIssues)
	dev.TopLanguages = topLanguages(languageCounts)

	if lastActive.IsZero() {
		lastActive = time.Now()
	}
	dev.LastActiveAt = &lastActive

	// Inferred attributes
	if location := user.GetLocation(); location != "" {
		dev.RawLocationText = &location
		inferred := s.attributeService.ExtractLocation(location)
		dev.Country = inferred.Country
		dev.City = inferred.City
	}

	var orgLogins []string
	for _, org := range orgs {
		if login := org.GetLogin(); login != "" {
			orgLogins = append(orgLogins, login)
		}
	}
	dev.Company = s.attributeService.ExtractCompany(orgLogins, user.GetCompany())

	return dev
}

// topLanguages orders languages most-frequent first, alphabetical on ties,
// capped at five.
func topLanguages(counts map[string]int) []string {
	languages := make([]string, 0, len(counts))
	for language := range counts {
		languages = append(languages, language)
	}
	sort.Slice(languages, func(i, j int) bool {
		if counts[languages[i]] != counts[languages[j]] {
			return counts[languages[i]] > counts[languages[j]]
		}
		return languages[i] < languages[j]
	})
	if len(languages) > maxTopLanguages {
		languages = languages[:maxTopLanguages]
	}
	return languages
}

// ComputeScores recomputes every sub-score and the final impact score from
// the record's metric fields. The weight caps (20/20/10/15/10/15/5/5) sum to
// 100 and encode the relative importance of each signal.
func ComputeScores(dev *models.Developer) {
	prTerm := logScore(float64(dev.TotalPRs), 20)
	commitTerm := logScore(float64(dev.TotalCommits), 20)
	issueTerm := logScore(float64(dev.TotalIssues), 10)
	followerTerm := logScore(float64(dev.Followers), 15)
	linesThousands := float64(dev.TotalLinesAdded+dev.TotalLinesDeleted) / 1000
	linesTerm := logScore(linesThousands, 10)
	starsTerm := logScore(float64(dev.TotalStarsReceived), 15)
	repoTerm := logScore(float64(dev.PublicRepoCount), 5)
	yearsTerm := math.Min(dev.YearsActive*2, 5)

	dev.ContributionImpact = prTerm + commitTerm
	dev.IssueImpact = issueTerm
	dev.CommunityImpact = followerTerm
	dev.DocsImpact = linesTerm
	dev.DependencyInfluence = starsTerm
	dev.ConsistencyScore = repoTerm
	dev.LongevityScore = yearsTerm
	dev.QualityMultiplier = 1.0

	total := dev.ContributionImpact + dev.IssueImpact + dev.CommunityImpact +
		dev.DocsImpact + dev.DependencyInfluence + dev.ConsistencyScore + dev.LongevityScore
	dev.FinalImpactScore = clamp(total*dev.QualityMultiplier, 0, 100)
}

// NormalizeScore re-normalizes a score against the maximum of the current
// filtered population, so rank 1 is always 100 within any filter view. A
// zero maximum yields zero, avoiding division by zero.
func NormalizeScore(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return clamp(score/maxScore*100, 0, 100)
}

func logScore(value, capValue float64) float64 {
	if value < 0 {
		value = 0
	}
	return math.Min(math.Log10(value+1)*10, capValue)
}

func clamp(value, low, high float64) float64 {
	return math.Max(low, math.Min(value, high))
}
