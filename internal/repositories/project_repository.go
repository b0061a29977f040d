package repositories

import (
	"database/sql"
	"strings"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/google/uuid"
)

const projectColumns = `
	id, full_name, name, description, url, language, category, tags,
	stars, forks, open_issues, contributor_count, is_active, rank,
	last_updated, created_at, updated_at`

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Upsert inserts or fully refreshes a project snapshot keyed by full name.
func (r *ProjectRepository) Upsert(project *models.Project) error {
	existing, err := r.GetByFullName(project.FullName)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		project.ID = existing.ID
		project.CreatedAt = existing.CreatedAt
		return r.update(project)
	}

	if err := r.create(project); err != nil {
		if isUniqueConstraintErr(err) {
			existing, getErr := r.GetByFullName(project.FullName)
			if getErr != nil {
				return getErr
			}
			project.ID = existing.ID
			project.CreatedAt = existing.CreatedAt
			return r.update(project)
		}
		return err
	}
	return nil
}

func (r *ProjectRepository) create(project *models.Project) error {
	project.ID = uuid.New().String()
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		project.ID, project.FullName, project.Name, project.Description, project.URL,
		project.Language, project.Category, marshalList(project.Tags),
		project.Stars, project.Forks, project.OpenIssues, project.ContributorCount,
		project.IsActive, project.Rank, project.LastUpdated, project.CreatedAt, project.UpdatedAt,
	)
	return err
}

func (r *ProjectRepository) update(project *models.Project) error {
	project.UpdatedAt = time.Now()

	query := `
		UPDATE projects SET
			name = ?, description = ?, url = ?, language = ?, category = ?, tags = ?,
			stars = ?, forks = ?, open_issues = ?, contributor_count = ?, is_active = ?,
			rank = ?, last_updated = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		project.Name, project.Description, project.URL, project.Language, project.Category,
		marshalList(project.Tags), project.Stars, project.Forks, project.OpenIssues,
		project.ContributorCount, project.IsActive, project.Rank, project.LastUpdated,
		project.UpdatedAt, project.ID,
	)
	return err
}

// GetByFullName retrieves a project by its "owner/repo" full name.
func (r *ProjectRepository) GetByFullName(fullName string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE full_name = ?`
	return r.scanOne(r.db.QueryRow(query, fullName))
}

// List returns a filtered, paginated view over cached projects ordered by
// stars descending.
func (r *ProjectRepository) List(search, language string, limit, offset int) ([]*models.Project, int, error) {
	var conditions []string
	var args []interface{}

	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if language != "" {
		conditions = append(conditions, "LOWER(COALESCE(language, '')) = LOWER(?)")
		args = append(args, language)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + projectColumns + ` FROM projects` + where + ` ORDER BY stars DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, project)
	}
	return projects, total, rows.Err()
}

// DistinctLanguages returns all cached project languages.
func (r *ProjectRepository) DistinctLanguages() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT language FROM projects WHERE language IS NOT NULL AND language != '' ORDER BY language ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var languages []string
	for rows.Next() {
		var language string
		if err := rows.Scan(&language); err != nil {
			return nil, err
		}
		languages = append(languages, language)
	}
	return languages, rows.Err()
}

// DistinctCategories returns all cached project categories.
func (r *ProjectRepository) DistinctCategories() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT category FROM projects WHERE category IS NOT NULL AND category != '' ORDER BY category ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *ProjectRepository) scanOne(row *sql.Row) (*models.Project, error) {
	project := &models.Project{}
	var tags string

	err := row.Scan(
		&project.ID, &project.FullName, &project.Name, &project.Description, &project.URL,
		&project.Language, &project.Category, &tags,
		&project.Stars, &project.Forks, &project.OpenIssues, &project.ContributorCount,
		&project.IsActive, &project.Rank, &project.LastUpdated, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	project.Tags = unmarshalList(tags)
	return project, nil
}

func (r *ProjectRepository) scanRow(rows *sql.Rows) (*models.Project, error) {
	project := &models.Project{}
	var tags string

	err := rows.Scan(
		&project.ID, &project.FullName, &project.Name, &project.Description, &project.URL,
		&project.Language, &project.Category, &tags,
		&project.Stars, &project.Forks, &project.OpenIssues, &project.ContributorCount,
		&project.IsActive, &project.Rank, &project.LastUpdated, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	project.Tags = unmarshalList(tags)
	return project, nil
}
