package services

import (
	"context"
	"fmt"

	"github.com/Jeelislive/openRank-Backend/pkg/logger"
)

const (
	minMergedPRs    = 10
	minClosedIssues = 2
	minPRReviews    = 1
)

// EligibilityCriteria describes the gate for API consumers: a candidate
// qualifies by meeting any one of these within the trailing 90-day window.
var EligibilityCriteria = []string{
	fmt.Sprintf("at least %d merged pull requests", minMergedPRs),
	fmt.Sprintf("at least %d issues closed on others' repositories", minClosedIssues),
	fmt.Sprintf("at least %d pull request review submitted", minPRReviews),
	"maintainer of an active non-fork repository with stars or forks",
}

// EligibilityService decides whether a candidate username is worth scoring,
// so rate-limited calls are not wasted on inactive accounts.
type EligibilityService struct {
	githubClient *GitHubClient
}

func NewEligibilityService(githubClient *GitHubClient) *EligibilityService {
	return &EligibilityService{githubClient: githubClient}
}

// IsEligible runs the four activity checks in order, short-circuiting on the
// first success. A fetch error fails only that check; the gate never raises
// and degrades to false on total failure.
func (s *EligibilityService) IsEligible(ctx context.Context, username string) bool {
	eligible, _ := s.Check(ctx, username)
	return eligible
}

// Check is IsEligible with the satisfied criterion (or a refusal summary)
// attached for API responses.
func (s *EligibilityService) Check(ctx context.Context, username string) (bool, string) {
	if _, total, err := s.githubClient.GetUserPullRequests(ctx, username, "merged", 1); err != nil {
		logger.WithError(err).Warnf("eligibility: merged PR check failed for %s", username)
	} else if total >= minMergedPRs {
		return true, fmt.Sprintf("%d merged pull requests in the last 90 days", total)
	}

	if _, total, err := s.githubClient.GetUserIssuesClosed(ctx, username, 1); err != nil {
		logger.WithError(err).Warnf("eligibility: closed issue check failed for %s", username)
	} else if total >= minClosedIssues {
		return true, fmt.Sprintf("%d issues closed in the last 90 days", total)
	}

	if _, total, err := s.githubClient.GetUserPRReviews(ctx, username, 1); err != nil {
		logger.WithError(err).Warnf("eligibility: review check failed for %s", username)
	} else if total >= minPRReviews {
		return true, fmt.Sprintf("%d pull request reviews in the last 90 days", total)
	}

	if maintainer, err := s.githubClient.IsMaintainerOfActiveRepo(ctx, username); err != nil {
		logger.WithError(err).Warnf("eligibility: maintainer check failed for %s", username)
	} else if maintainer {
		return true, "maintainer of an active repository"
	}

	return false, "no recent merged PRs, closed issues, reviews, or active maintained repositories"
}
