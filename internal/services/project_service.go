package services

import (
	"context"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/internal/repositories"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
	"github.com/google/go-github/v57/github"
)

// ProjectService serves the project directory: live GitHub search with the
// local snapshot cache as a fallback when the upstream is rate limited.
type ProjectService struct {
	githubClient *GitHubClient
	projectRepo  *repositories.ProjectRepository
}

func NewProjectService(githubClient *GitHubClient, projectRepo *repositories.ProjectRepository) *ProjectService {
	return &ProjectService{
		githubClient: githubClient,
		projectRepo:  projectRepo,
	}
}

// List returns a filtered, sorted page of projects. The third return value
// reports whether the page was served from the local cache.
func (s *ProjectService) List(ctx context.Context, search, language, sort, order string, page, limit, minStars int) ([]*models.Project, int, bool, error) {
	if sort == "" {
		sort = "stars"
	}
	if order == "" {
		order = "desc"
	}

	result, err := s.githubClient.SearchRepositories(ctx, search, language, sort, order, limit, minStars)
	if err != nil {
		if IsRateLimited(err) {
			logger.Warn("project search rate limited, serving cached projects")
			projects, total, cacheErr := s.projectRepo.List(search, language, limit, (page-1)*limit)
			return projects, total, true, cacheErr
		}
		return nil, 0, false, err
	}

	offset := (page - 1) * limit
	projects := make([]*models.Project, 0, len(result.Repositories))
	for i, repo := range result.Repositories {
		project := projectFromRepo(repo)
		project.Rank = offset + i + 1
		projects = append(projects, project)

		// Refresh the snapshot cache opportunistically; a write failure
		// must not fail the read path.
		if err := s.projectRepo.Upsert(project); err != nil {
			logger.WithError(err).Warnf("failed to cache project %s", project.FullName)
		}
	}

	return projects, result.GetTotal(), false, nil
}

// Languages lists all languages seen in cached projects.
func (s *ProjectService) Languages() ([]string, error) {
	return s.projectRepo.DistinctLanguages()
}

// Categories lists all categories seen in cached projects.
func (s *ProjectService) Categories() ([]string, error) {
	return s.projectRepo.DistinctCategories()
}

func projectFromRepo(repo *github.Repository) *models.Project {
	project := &models.Project{
		FullName: repo.GetFullName(),
		Name:     repo.GetName(),
		Stars:    repo.GetStargazersCount(),
		Forks:    repo.GetForksCount(),
		Tags:     repo.Topics,
	}

	if description := repo.GetDescription(); description != "" {
		project.Description = &description
	}
	if url := repo.GetHTMLURL(); url != "" {
		project.URL = &url
	}
	if language := repo.GetLanguage(); language != "" {
		project.Language = &language
	}
	if len(repo.Topics) > 0 {
		category := repo.Topics[0]
		project.Category = &category
	}
	project.OpenIssues = repo.GetOpenIssuesCount()

	if updated := repo.GetUpdatedAt(); !updated.IsZero() {
		updatedAt := updated.Time
		project.LastUpdated = &updatedAt
		project.IsActive = time.Since(updatedAt) < models.ActivityWindowDays*24*time.Hour
	}

	return project
}
