package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/internal/repositories"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
)

const (
	// minCompanyMatches is the cached-result floor below which a
	// company-filtered ranking request triggers discovery synchronously.
	// Company views are expected to be sparse and the caller needs
	// immediate results.
	minCompanyMatches = 15

	// sparseViewThreshold is the floor below which any other ranking view
	// triggers discovery in the background.
	sparseViewThreshold = 30
)

// RankingsResult is a filtered, paginated, normalized ranking page.
type RankingsResult struct {
	Developers     []*models.Developer
	Total          int
	MaxScore       float64
	AutoDiscovered bool
}

// RankResult is a single developer's position under a filter set.
type RankResult struct {
	Status    string            `json:"status"`
	Rank      int               `json:"rank,omitempty"`
	Total     int               `json:"total,omitempty"`
	Developer *models.Developer `json:"developer,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// DeveloperService orchestrates the cache-first ranking flow: query the
// store, top up via discovery when sparse, and keep scores normalized per
// filtered view.
type DeveloperService struct {
	developerRepo      *repositories.DeveloperRepository
	jobRepo            *repositories.JobRepository
	eligibilityService *EligibilityService
	scoreService       *ScoreService
	discoveryService   *DiscoveryService
}

func NewDeveloperService(
	developerRepo *repositories.DeveloperRepository,
	jobRepo *repositories.JobRepository,
	eligibilityService *EligibilityService,
	scoreService *ScoreService,
	discoveryService *DiscoveryService,
) *DeveloperService {
	return &DeveloperService{
		developerRepo:      developerRepo,
		jobRepo:            jobRepo,
		eligibilityService: eligibilityService,
		scoreService:       scoreService,
		discoveryService:   discoveryService,
	}
}

// GetRankings serves a ranking page. A sparse company-filtered view blocks
// for a synchronous top-up; any other sparse view enqueues background
// discovery and returns the cached results immediately.
func (s *DeveloperService) GetRankings(ctx context.Context, page, limit int, filters models.RankingFilters, autoDiscover bool) (*RankingsResult, error) {
	offset := (page - 1) * limit

	developers, total, maxScore, err := s.developerRepo.GetRanked(limit, offset, filters)
	if err != nil {
		return nil, err
	}

	discovered := false
	if autoDiscover {
		if company := filters.CompanyFilter(); company != "" && total < minCompanyMatches {
			processed, derr := s.discoveryService.DiscoverByCompany(ctx, company, minCompanyMatches)
			if derr != nil {
				logger.WithError(derr).Warnf("synchronous company discovery failed for %s", company)
			}
			if processed > 0 {
				discovered = true
				developers, total, maxScore, err = s.developerRepo.GetRanked(limit, offset, filters)
				if err != nil {
					return nil, err
				}
			}
		} else if total < sparseViewThreshold {
			if err := s.enqueueDiscovery(filters); err != nil {
				logger.WithError(err).Warn("failed to enqueue background discovery")
			} else {
				discovered = true
			}
		}
	}

	for _, dev := range developers {
		dev.NormalizedScore = NormalizeScore(dev.FinalImpactScore, maxScore)
	}

	return &RankingsResult{
		Developers:     developers,
		Total:          total,
		MaxScore:       maxScore,
		AutoDiscovered: discovered,
	}, nil
}

// CheckRank returns a developer's rank, or schedules a background
// eligibility check and calculation when the username is not cached yet.
func (s *DeveloperService) CheckRank(ctx context.Context, username string, filters models.RankingFilters) (*RankResult, error) {
	rank, total, dev, err := s.developerRepo.GetRank(username, filters)
	if err == sql.ErrNoRows {
		if err := s.enqueueCalculate(username); err != nil {
			return nil, err
		}
		return &RankResult{
			Status:  "processing",
			Message: "developer is being evaluated; check back shortly",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	_, _, maxScore, err := s.developerRepo.GetRanked(1, 0, filters)
	if err != nil {
		return nil, err
	}
	dev.NormalizedScore = NormalizeScore(dev.FinalImpactScore, maxScore)

	return &RankResult{
		Status:    "ranked",
		Rank:      rank,
		Total:     total,
		Developer: dev,
	}, nil
}

// GetByUsername retrieves a cached developer. Returns sql.ErrNoRows when
// absent.
func (s *DeveloperService) GetByUsername(username string) (*models.Developer, error) {
	return s.developerRepo.GetByUsername(username)
}

// Calculate gates, fetches, scores and upserts a single username. The gate
// can be bypassed by trusted internal callers (background sweeps).
func (s *DeveloperService) Calculate(ctx context.Context, username string, bypassGate bool) (*models.Developer, bool, string, error) {
	if !bypassGate {
		eligible, reason := s.eligibilityService.Check(ctx, username)
		if !eligible {
			return nil, false, reason, nil
		}
	}

	dev, err := s.scoreService.FetchAndScore(ctx, username)
	if err != nil {
		return nil, true, "", err
	}
	if dev == nil {
		return nil, false, "user not found on GitHub", nil
	}

	if err := s.developerRepo.Upsert(dev); err != nil {
		return nil, true, "", fmt.Errorf("failed to store developer %s: %w", username, err)
	}
	return dev, true, "", nil
}

// Search matches against username or display name.
func (s *DeveloperService) Search(queryText string, limit int) ([]*models.Developer, error) {
	return s.developerRepo.Search(queryText, limit)
}

// Companies lists all known companies.
func (s *DeveloperService) Companies() ([]string, error) {
	return s.developerRepo.DistinctCompanies()
}

// Countries lists all known countries.
func (s *DeveloperService) Countries() ([]string, error) {
	return s.developerRepo.DistinctCountries()
}

// Cities lists all known cities, optionally within a country.
func (s *DeveloperService) Cities(country string) ([]string, error) {
	return s.developerRepo.DistinctCities(country)
}

// ProfileTypes lists all known profile types.
func (s *DeveloperService) ProfileTypes() ([]string, error) {
	types, err := s.developerRepo.DistinctProfileTypes()
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		types = []string{models.ProfileTypeDeveloper}
	}
	return types, nil
}

func (s *DeveloperService) enqueueCalculate(username string) error {
	pending, err := s.jobRepo.HasPendingForUsername(username)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	job := models.NewJob(models.JobTypeCalculate)
	if err := job.SetPayload(models.CalculatePayload{Username: username}); err != nil {
		return err
	}
	return s.jobRepo.Create(job)
}

func (s *DeveloperService) enqueueDiscovery(filters models.RankingFilters) error {
	job := models.NewJob(models.JobTypeDiscovery)
	payload := models.DiscoveryPayload{
		Company: filters.CompanyFilter(),
		Country: filters.Country,
		City:    filters.City,
	}
	if err := job.SetPayload(payload); err != nil {
		return err
	}
	return s.jobRepo.Create(job)
}

// EnqueueDiscovery schedules an ad hoc discovery job (manual trigger).
func (s *DeveloperService) EnqueueDiscovery(payload models.DiscoveryPayload) error {
	job := models.NewJob(models.JobTypeDiscovery)
	if err := job.SetPayload(payload); err != nil {
		return err
	}
	return s.jobRepo.Create(job)
}

// EnqueueSweep schedules a full company/location sweep job.
func (s *DeveloperService) EnqueueSweep() error {
	return s.jobRepo.Create(models.NewJob(models.JobTypeSweep))
}
