package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const developerColumns = `
	id, username, display_name, bio, avatar_url, profile_url,
	followers, following, public_repo_count, total_prs, total_commits, total_issues,
	total_lines_added, total_lines_deleted, total_stars_received, total_forks_received,
	active_project_count, years_active, top_languages, top_repositories,
	country, city, company, profile_type, raw_location_text,
	contribution_impact, issue_impact, dependency_influence, longevity_score,
	community_impact, docs_impact, consistency_score, quality_multiplier, final_impact_score,
	github_account_created_at, last_active_at, last_calculated_at, created_at, updated_at`

type DeveloperRepository struct {
	db *sql.DB
}

func NewDeveloperRepository(db *sql.DB) *DeveloperRepository {
	return &DeveloperRepository{db: db}
}

// Upsert inserts the developer if the username is absent, otherwise fully
// overwrites the existing record. The UNIQUE constraint on username is the
// safety net against concurrent inserts: a constraint violation is retried
// as an overwrite since both writers carry equivalent data.
func (r *DeveloperRepository) Upsert(dev *models.Developer) error {
	existing, err := r.GetByUsername(dev.Username)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		dev.ID = existing.ID
		dev.CreatedAt = existing.CreatedAt
		return r.update(dev)
	}

	if err := r.create(dev); err != nil {
		if isUniqueConstraintErr(err) {
			// Lost an insert race; the row exists now, overwrite it.
			existing, getErr := r.GetByUsername(dev.Username)
			if getErr != nil {
				return getErr
			}
			dev.ID = existing.ID
			dev.CreatedAt = existing.CreatedAt
			return r.update(dev)
		}
		return err
	}

	return nil
}

func (r *DeveloperRepository) create(dev *models.Developer) error {
	dev.ID = uuid.New().String()
	now := time.Now()
	dev.CreatedAt = now
	dev.UpdatedAt = now

	query := `
		INSERT INTO developers (` + developerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, r.fieldValues(dev)...)
	return err
}

func (r *DeveloperRepository) update(dev *models.Developer) error {
	dev.UpdatedAt = time.Now()

	query := `
		UPDATE developers SET
			display_name = ?, bio = ?, avatar_url = ?, profile_url = ?,
			followers = ?, following = ?, public_repo_count = ?, total_prs = ?,
			total_commits = ?, total_issues = ?, total_lines_added = ?, total_lines_deleted = ?,
			total_stars_received = ?, total_forks_received = ?, active_project_count = ?,
			years_active = ?, top_languages = ?, top_repositories = ?,
			country = ?, city = ?, company = ?, profile_type = ?, raw_location_text = ?,
			contribution_impact = ?, issue_impact = ?, dependency_influence = ?, longevity_score = ?,
			community_impact = ?, docs_impact = ?, consistency_score = ?, quality_multiplier = ?,
			final_impact_score = ?, github_account_created_at = ?, last_active_at = ?,
			last_calculated_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		dev.DisplayName, dev.Bio, dev.AvatarURL, dev.ProfileURL,
		dev.Followers, dev.Following, dev.PublicRepoCount, dev.TotalPRs,
		dev.TotalCommits, dev.TotalIssues, dev.TotalLinesAdded, dev.TotalLinesDeleted,
		dev.TotalStarsReceived, dev.TotalForksReceived, dev.ActiveProjectCount,
		dev.YearsActive, marshalList(dev.TopLanguages), marshalList(dev.TopRepositories),
		dev.Country, dev.City, dev.Company, dev.ProfileType, dev.RawLocationText,
		dev.ContributionImpact, dev.IssueImpact, dev.DependencyInfluence, dev.LongevityScore,
		dev.CommunityImpact, dev.DocsImpact, dev.ConsistencyScore, dev.QualityMultiplier,
		dev.FinalImpactScore, dev.GithubAccountCreatedAt, dev.LastActiveAt,
		dev.LastCalculatedAt, dev.UpdatedAt,
		dev.ID,
	)
	return err
}

func (r *DeveloperRepository) fieldValues(dev *models.Developer) []interface{} {
	return []interface{}{
		dev.ID, dev.Username, dev.DisplayName, dev.Bio, dev.AvatarURL, dev.ProfileURL,
		dev.Followers, dev.Following, dev.PublicRepoCount, dev.TotalPRs, dev.TotalCommits, dev.TotalIssues,
		dev.TotalLinesAdded, dev.TotalLinesDeleted, dev.TotalStarsReceived, dev.TotalForksReceived,
		dev.ActiveProjectCount, dev.YearsActive, marshalList(dev.TopLanguages), marshalList(dev.TopRepositories),
		dev.Country, dev.City, dev.Company, dev.ProfileType, dev.RawLocationText,
		dev.ContributionImpact, dev.IssueImpact, dev.DependencyInfluence, dev.LongevityScore,
		dev.CommunityImpact, dev.DocsImpact, dev.ConsistencyScore, dev.QualityMultiplier, dev.FinalImpactScore,
		dev.GithubAccountCreatedAt, dev.LastActiveAt, dev.LastCalculatedAt, dev.CreatedAt, dev.UpdatedAt,
	}
}

// GetByUsername retrieves a developer by their GitHub login. Returns
// sql.ErrNoRows when absent.
func (r *DeveloperRepository) GetByUsername(username string) (*models.Developer, error) {
	query := `SELECT ` + developerColumns + ` FROM developers WHERE username = ?`
	return r.scanOne(r.db.QueryRow(query, username))
}

// GetRanked returns a filtered, score-ordered page of developers along with
// the total matching count and the maximum score in the filtered population.
func (r *DeveloperRepository) GetRanked(limit, offset int, filters models.RankingFilters) ([]*models.Developer, int, float64, error) {
	where, args := buildFilterClause(filters)

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM developers`+where, args...).Scan(&total); err != nil {
		return nil, 0, 0, err
	}

	var maxScore float64
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(final_impact_score), 0) FROM developers`+where, args...).Scan(&maxScore); err != nil {
		return nil, 0, 0, err
	}

	query := `SELECT ` + developerColumns + ` FROM developers` + where +
		` ORDER BY final_impact_score DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	developers, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, 0, err
	}

	return developers, total, maxScore, nil
}

// GetRank computes a developer's rank under the given filters as one plus
// the count of records with a strictly greater score. Tied scores therefore
// share the same numeric rank.
func (r *DeveloperRepository) GetRank(username string, filters models.RankingFilters) (int, int, *models.Developer, error) {
	dev, err := r.GetByUsername(username)
	if err != nil {
		return 0, 0, nil, err
	}

	where, args := buildFilterClause(filters)

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM developers`+where, args...).Scan(&total); err != nil {
		return 0, 0, nil, err
	}

	higherQuery := `SELECT COUNT(*) FROM developers` + where
	if where == "" {
		higherQuery += ` WHERE final_impact_score > ?`
	} else {
		higherQuery += ` AND final_impact_score > ?`
	}

	var higher int
	if err := r.db.QueryRow(higherQuery, append(args, dev.FinalImpactScore)...).Scan(&higher); err != nil {
		return 0, 0, nil, err
	}

	return higher + 1, total, dev, nil
}

// Search matches the query as a case-insensitive substring of username or
// display name, ordered by score descending.
func (r *DeveloperRepository) Search(queryText string, limit int) ([]*models.Developer, error) {
	pattern := "%" + strings.ToLower(queryText) + "%"
	query := `SELECT ` + developerColumns + ` FROM developers
		WHERE LOWER(username) LIKE ? OR LOWER(COALESCE(display_name, '')) LIKE ?
		ORDER BY final_impact_score DESC LIMIT ?`

	rows, err := r.db.Query(query, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// CountByFilters counts cached developers for a company or location bucket.
func (r *DeveloperRepository) CountByFilters(company, country, city string) (int, error) {
	filters := models.RankingFilters{Company: company, Country: country, City: city}
	where, args := buildFilterClause(filters)

	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM developers`+where, args...).Scan(&count)
	return count, err
}

// DistinctCompanies returns all known companies ordered alphabetically.
func (r *DeveloperRepository) DistinctCompanies() ([]string, error) {
	return r.distinct(`SELECT DISTINCT company FROM developers WHERE company IS NOT NULL AND company != '' ORDER BY company ASC`)
}

// DistinctCountries returns all known countries ordered alphabetically.
func (r *DeveloperRepository) DistinctCountries() ([]string, error) {
	return r.distinct(`SELECT DISTINCT country FROM developers WHERE country IS NOT NULL AND country != '' ORDER BY country ASC`)
}

// DistinctCities returns all known cities, optionally limited to a country.
func (r *DeveloperRepository) DistinctCities(country string) ([]string, error) {
	if country != "" {
		return r.distinctArgs(`SELECT DISTINCT city FROM developers WHERE city IS NOT NULL AND city != '' AND country = ? ORDER BY city ASC`, country)
	}
	return r.distinct(`SELECT DISTINCT city FROM developers WHERE city IS NOT NULL AND city != '' ORDER BY city ASC`)
}

// DistinctProfileTypes returns all known profile types.
func (r *DeveloperRepository) DistinctProfileTypes() ([]string, error) {
	return r.distinct(`SELECT DISTINCT profile_type FROM developers ORDER BY profile_type ASC`)
}

func (r *DeveloperRepository) distinct(query string) ([]string, error) {
	return r.distinctArgs(query)
}

func (r *DeveloperRepository) distinctArgs(query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// buildFilterClause applies the documented filter precedence: a company
// filter replaces country/city entirely; profile type always applies.
// Company and profile type compare case-insensitively, country and city are
// exact matches.
func buildFilterClause(filters models.RankingFilters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if company := filters.CompanyFilter(); company != "" {
		conditions = append(conditions, "LOWER(company) = LOWER(?)")
		args = append(args, company)
	} else {
		if filters.Country != "" {
			conditions = append(conditions, "country = ?")
			args = append(args, filters.Country)
		}
		if filters.City != "" {
			conditions = append(conditions, "city = ?")
			args = append(args, filters.City)
		}
	}

	if filters.ProfileType != "" {
		conditions = append(conditions, "LOWER(profile_type) = LOWER(?)")
		args = append(args, filters.ProfileType)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *DeveloperRepository) scanOne(row *sql.Row) (*models.Developer, error) {
	dev := &models.Developer{}
	var topLanguages, topRepositories string

	err := row.Scan(
		&dev.ID, &dev.Username, &dev.DisplayName, &dev.Bio, &dev.AvatarURL, &dev.ProfileURL,
		&dev.Followers, &dev.Following, &dev.PublicRepoCount, &dev.TotalPRs, &dev.TotalCommits, &dev.TotalIssues,
		&dev.TotalLinesAdded, &dev.TotalLinesDeleted, &dev.TotalStarsReceived, &dev.TotalForksReceived,
		&dev.ActiveProjectCount, &dev.YearsActive, &topLanguages, &topRepositories,
		&dev.Country, &dev.City, &dev.Company, &dev.ProfileType, &dev.RawLocationText,
		&dev.ContributionImpact, &dev.IssueImpact, &dev.DependencyInfluence, &dev.LongevityScore,
		&dev.CommunityImpact, &dev.DocsImpact, &dev.ConsistencyScore, &dev.QualityMultiplier, &dev.FinalImpactScore,
		&dev.GithubAccountCreatedAt, &dev.LastActiveAt, &dev.LastCalculatedAt, &dev.CreatedAt, &dev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	dev.TopLanguages = unmarshalList(topLanguages)
	dev.TopRepositories = unmarshalList(topRepositories)
	return dev, nil
}

func (r *DeveloperRepository) scanAll(rows *sql.Rows) ([]*models.Developer, error) {
	var developers []*models.Developer
	for rows.Next() {
		dev := &models.Developer{}
		var topLanguages, topRepositories string

		err := rows.Scan(
			&dev.ID, &dev.Username, &dev.DisplayName, &dev.Bio, &dev.AvatarURL, &dev.ProfileURL,
			&dev.Followers, &dev.Following, &dev.PublicRepoCount, &dev.TotalPRs, &dev.TotalCommits, &dev.TotalIssues,
			&dev.TotalLinesAdded, &dev.TotalLinesDeleted, &dev.TotalStarsReceived, &dev.TotalForksReceived,
			&dev.ActiveProjectCount, &dev.YearsActive, &topLanguages, &topRepositories,
			&dev.Country, &dev.City, &dev.Company, &dev.ProfileType, &dev.RawLocationText,
			&dev.ContributionImpact, &dev.IssueImpact, &dev.DependencyInfluence, &dev.LongevityScore,
			&dev.CommunityImpact, &dev.DocsImpact, &dev.ConsistencyScore, &dev.QualityMultiplier, &dev.FinalImpactScore,
			&dev.GithubAccountCreatedAt, &dev.LastActiveAt, &dev.LastCalculatedAt, &dev.CreatedAt, &dev.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		dev.TopLanguages = unmarshalList(topLanguages)
		dev.TopRepositories = unmarshalList(topRepositories)
		developers = append(developers, dev)
	}
	return developers, rows.Err()
}

func isUniqueConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func marshalList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalList(data string) []string {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}
