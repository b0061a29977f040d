package models

import (
	"time"
)

// Project is a denormalized snapshot of a GitHub repository shown in the
// project directory. Discovery also reads repository metadata (language,
// stars, fork status) when aggregating a developer's contributions.
type Project struct {
	ID               string     `json:"id"`
	FullName         string     `json:"full_name"`
	Name             string     `json:"name"`
	Description      *string    `json:"description"`
	URL              *string    `json:"url"`
	Language         *string    `json:"language"`
	Category         *string    `json:"category"`
	Tags             []string   `json:"tags"`
	Stars            int        `json:"stars"`
	Forks            int        `json:"forks"`
	OpenIssues       int        `json:"open_issues"`
	ContributorCount int        `json:"contributor_count"`
	IsActive         bool       `json:"is_active"`
	Rank             int        `json:"rank"`
	LastUpdated      *time.Time `json:"last_updated"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
