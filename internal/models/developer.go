package models

import (
	"time"
)

const (
	// ProfileTypeDeveloper is the classification assigned to every scored
	// profile. The filter plumbing supports more types; the extractor
	// currently emits only this one.
	ProfileTypeDeveloper = "Developer"

	// AllCompanies is the sentinel a client sends to mean "no company filter".
	AllCompanies = "All Companies"

	// FreshnessWindow is the interval within which a cached profile is not
	// re-fetched by discovery.
	FreshnessWindow = 7 * 24 * time.Hour

	// ActivityWindowDays is the trailing window used for eligibility and
	// recency checks.
	ActivityWindowDays = 90
)

// Developer is one row per unique GitHub login, fully overwritten on every
// recompute. Partial field updates are not supported.
type Developer struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
	ProfileURL  *string `json:"profile_url"`

	Followers          int      `json:"followers"`
	Following          int      `json:"following"`
	PublicRepoCount    int      `json:"public_repo_count"`
	TotalPRs           int      `json:"total_prs"`
	TotalCommits       int      `json:"total_commits"`
	TotalIssues        int      `json:"total_issues"`
	TotalLinesAdded    int      `json:"total_lines_added"`
	TotalLinesDeleted  int      `json:"total_lines_deleted"`
	TotalStarsReceived int      `json:"total_stars_received"`
	TotalForksReceived int      `json:"total_forks_received"`
	ActiveProjectCount int      `json:"active_project_count"`
	YearsActive        float64  `json:"years_active"`
	TopLanguages       []string `json:"top_languages"`
	TopRepositories    []string `json:"top_repositories"`

	Country         *string `json:"country"`
	City            *string `json:"city"`
	Company         *string `json:"company"`
	ProfileType     string  `json:"profile_type"`
	RawLocationText *string `json:"raw_location_text"`

	ContributionImpact  float64 `json:"contribution_impact"`
	IssueImpact         float64 `json:"issue_impact"`
	DependencyInfluence float64 `json:"dependency_influence"`
	LongevityScore      float64 `json:"longevity_score"`
	CommunityImpact     float64 `json:"community_impact"`
	DocsImpact          float64 `json:"docs_impact"`
	ConsistencyScore    float64 `json:"consistency_score"`
	QualityMultiplier   float64 `json:"quality_multiplier"`
	FinalImpactScore    float64 `json:"final_impact_score"`

	// NormalizedScore is computed per query against the filtered population's
	// maximum; it is never persisted.
	NormalizedScore float64 `json:"normalized_score"`

	GithubAccountCreatedAt *time.Time `json:"github_account_created_at"`
	LastActiveAt           *time.Time `json:"last_active_at"`
	LastCalculatedAt       time.Time  `json:"last_calculated_at"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// IsFresh reports whether the profile was calculated within the freshness
// window and should be skipped by discovery.
func (d *Developer) IsFresh() bool {
	return time.Since(d.LastCalculatedAt) < FreshnessWindow
}

// RankingFilters narrows ranking queries. Company takes precedence: when set
// (and not the AllCompanies sentinel), country and city are ignored entirely.
type RankingFilters struct {
	Country     string
	City        string
	Company     string
	ProfileType string
}

// CompanyFilter returns the effective company filter, or "" when unset or
// the sentinel.
func (f RankingFilters) CompanyFilter() string {
	if f.Company == "" || f.Company == AllCompanies {
		return ""
	}
	return f.Company
}
