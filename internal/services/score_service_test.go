package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScoresZeroMetrics(t *testing.T) {
	dev := &models.Developer{}
	ComputeScores(dev)

	assert.Equal(t, 0.0, dev.ContributionImpact)
	assert.Equal(t, 0.0, dev.IssueImpact)
	assert.Equal(t, 0.0, dev.CommunityImpact)
	assert.Equal(t, 0.0, dev.DocsImpact)
	assert.Equal(t, 0.0, dev.DependencyInfluence)
	assert.Equal(t, 0.0, dev.ConsistencyScore)
	assert.Equal(t, 0.0, dev.LongevityScore)
	assert.Equal(t, 1.0, dev.QualityMultiplier)
	assert.Equal(t, 0.0, dev.FinalImpactScore)
}

func TestComputeScoresStaysWithinBounds(t *testing.T) {
	// Absurdly large metrics must still land inside [0, 100].
	dev := &models.Developer{
		TotalPRs:           1_000_000,
		TotalCommits:       10_000_000,
		TotalIssues:        1_000_000,
		Followers:          5_000_000,
		TotalLinesAdded:    500_000_000,
		TotalLinesDeleted:  500_000_000,
		TotalStarsReceived: 1_000_000,
		PublicRepoCount:    100_000,
		YearsActive:        30,
	}
	ComputeScores(dev)

	assert.GreaterOrEqual(t, dev.FinalImpactScore, 0.0)
	assert.LessOrEqual(t, dev.FinalImpactScore, 100.0)

	// Each term saturates at its cap.
	assert.Equal(t, 20.0, dev.ContributionImpact/2)
	assert.Equal(t, 10.0, dev.IssueImpact)
	assert.Equal(t, 15.0, dev.CommunityImpact)
	assert.Equal(t, 10.0, dev.DocsImpact)
	assert.Equal(t, 15.0, dev.DependencyInfluence)
	assert.Equal(t, 5.0, dev.ConsistencyScore)
	assert.Equal(t, 5.0, dev.LongevityScore)
	assert.Equal(t, 100.0, dev.FinalImpactScore)
}

func TestComputeScoresIsDeterministic(t *testing.T) {
	dev := &models.Developer{
		TotalPRs:           42,
		TotalCommits:       210,
		TotalIssues:        12,
		Followers:          830,
		TotalStarsReceived: 95,
		PublicRepoCount:    21,
		YearsActive:        3.5,
	}
	ComputeScores(dev)
	first := dev.FinalImpactScore

	// Recomputing on the same record must not drift.
	ComputeScores(dev)
	assert.Equal(t, first, dev.FinalImpactScore)
	assert.Greater(t, first, 0.0)
}

func TestComputeScoresMonotonicInFollowers(t *testing.T) {
	base := &models.Developer{Followers: 10, PublicRepoCount: 5}
	more := &models.Developer{Followers: 1000, PublicRepoCount: 5}
	ComputeScores(base)
	ComputeScores(more)

	assert.Greater(t, more.FinalImpactScore, base.FinalImpactScore)
}

func TestComputeScoresNegativeMetricsClampToZero(t *testing.T) {
	dev := &models.Developer{TotalPRs: -5, Followers: -10, YearsActive: -1}
	ComputeScores(dev)

	assert.Equal(t, 0.0, dev.ContributionImpact)
	assert.Equal(t, 0.0, dev.CommunityImpact)
	assert.GreaterOrEqual(t, dev.FinalImpactScore, 0.0)
}

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 100.0, NormalizeScore(50, 50))
	assert.Equal(t, 50.0, NormalizeScore(25, 50))
	assert.Equal(t, 0.0, NormalizeScore(0, 50))

	// Zero or negative max must not divide.
	assert.Equal(t, 0.0, NormalizeScore(50, 0))
	assert.Equal(t, 0.0, NormalizeScore(50, -1))

	// Values above max clamp to 100.
	assert.Equal(t, 100.0, NormalizeScore(80, 50))
}

func TestLogScoreCaps(t *testing.T) {
	assert.Equal(t, 0.0, logScore(0, 20))
	assert.InDelta(t, 10.0, logScore(9, 20), 0.001)
	assert.Equal(t, 20.0, logScore(1e9, 20))
}

func TestFetchAndScoreAggregatesProfile(t *testing.T) {
	recentUpdate := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"login": "octocat",
			"name": "The Octocat",
			"location": "Pune, India",
			"company": "@Google",
			"followers": 120,
			"public_repos": 8,
			"created_at": "2018-06-01T00:00:00Z"
		}`)
	})
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"full_name": "octocat/popular", "fork": false, "stargazers_count": 42, "forks_count": 7, "open_issues_count": 10, "language": "Go", "updated_at": %q},
			{"full_name": "octocat/small", "fork": false, "stargazers_count": 2, "forks_count": 0, "open_issues_count": 0, "language": "Go", "updated_at": %q},
			{"full_name": "octocat/forked", "fork": true, "stargazers_count": 900, "forks_count": 100, "language": "C"}
		]`, recentUpdate, recentUpdate)
	})
	mux.HandleFunc("/users/octocat/orgs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	service := NewScoreService(newFakeGitHub(t, mux), NewAttributeService())

	dev, err := service.FetchAndScore(context.Background(), "octocat")
	require.NoError(t, err)
	require.NotNil(t, dev)

	assert.Equal(t, "octocat", dev.Username)
	assert.Equal(t, "The Octocat", *dev.DisplayName)
	assert.Equal(t, models.ProfileTypeDeveloper, dev.ProfileType)

	// Forks are excluded from every aggregate.
	assert.Equal(t, 2, dev.ActiveProjectCount)
	assert.Equal(t, 44, dev.TotalStarsReceived)
	assert.Equal(t, 7, dev.TotalForksReceived)
	assert.Equal(t, []string{"Go"}, dev.TopLanguages)
	assert.Equal(t, []string{"octocat/popular"}, dev.TopRepositories)

	// Proxies derive from the public repo count.
	assert.Equal(t, 16, dev.TotalPRs)
	assert.Equal(t, 80, dev.TotalCommits)

	// Inferred attributes.
	require.NotNil(t, dev.Country)
	assert.Equal(t, "India", *dev.Country)
	require.NotNil(t, dev.City)
	assert.Equal(t, "Pune", *dev.City)
	require.NotNil(t, dev.Company)
	assert.Equal(t, "Google", *dev.Company)

	assert.Greater(t, dev.FinalImpactScore, 0.0)
	assert.False(t, dev.LastCalculatedAt.IsZero())
}

func TestAggregateRecencyIncludesForks(t *testing.T) {
	forkUpdate := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	ownUpdate := time.Now().Add(-30 * 24 * time.Hour).Truncate(time.Second)

	service := NewScoreService(newFakeGitHub(t, http.NotFoundHandler()), NewAttributeService())

	user := &github.User{Login: github.String("octocat")}
	repos := []*github.Repository{
		{FullName: github.String("octocat/own"), Fork: github.Bool(false), UpdatedAt: &github.Timestamp{Time: ownUpdate}},
		{FullName: github.String("octocat/fork"), Fork: github.Bool(true), UpdatedAt: &github.Timestamp{Time: forkUpdate}},
	}

	dev := service.aggregate(user, repos, nil)

	// The fork stays out of the project aggregates but its update still
	// drives last-active recency.
	assert.Equal(t, 1, dev.ActiveProjectCount)
	require.NotNil(t, dev.LastActiveAt)
	assert.True(t, dev.LastActiveAt.Equal(forkUpdate))
}

func TestFetchAndScoreMissingUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	})
	service := NewScoreService(newFakeGitHub(t, mux), NewAttributeService())

	dev, err := service.FetchAndScore(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, dev)
}

func TestTopLanguagesOrderingAndCap(t *testing.T) {
	counts := map[string]int{
		"Go":         5,
		"Python":     5,
		"JavaScript": 3,
		"Rust":       2,
		"Ruby":       1,
		"C":          1,
		"Java":       1,
	}
	languages := topLanguages(counts)

	assert.Len(t, languages, 5)
	// Frequency first, alphabetical on ties.
	assert.Equal(t, []string{"Go", "Python", "JavaScript", "Rust", "C"}, languages)
}
