package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/internal/repositories"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
)

const (
	// discoveryBatchSize bounds concurrent fetch-and-calculate operations
	// within one discovery run.
	discoveryBatchSize = 3

	// discoveryBatchDelay is inserted between batches to smooth request rate.
	discoveryBatchDelay = 2 * time.Second

	// discoverySearchPerPage is how many candidates one search call yields.
	discoverySearchPerPage = 30

	// bucketFullThreshold: a company or location bucket with this many
	// cached developers is skipped by the sweep.
	bucketFullThreshold = 100

	defaultDiscoveryLimit = 10
)

// locationQueryTemplates maps known country/city combinations to the
// search-users query probing that bucket.
var locationQueryTemplates = map[string]string{
	"India|":                      "location:india type:user",
	"India|Bangalore":             "location:bengaluru type:user",
	"India|Pune":                  "location:pune type:user",
	"India|Ahmedabad":             "location:ahmedabad type:user",
	"United States|San Francisco": `location:"san francisco" type:user`,
}

// companyOrgAliases maps roster companies to GitHub organization logins that
// do not follow from the legal name.
var companyOrgAliases = map[string][]string{
	"Meta":           {"facebook"},
	"Google":         {"google", "googleapis"},
	"JPMorgan Chase": {"jpmorganchase"},
	"Goldman Sachs":  {"goldmansachs"},
	"Morgan Stanley": {"morganstanley"},
	"TCS":            {"tata-consultancy-services"},
	"CRED":           {"dreamplug"},
	"PhonePe":        {"phonepe"},
}

var companyLegalSuffixes = []string{" inc", " llc", " ltd", " corp", " corporation", " co", " technologies", " labs", " pvt"}

// DiscoveryService keeps the developer cache populated by searching GitHub
// for new eligible candidates, within rate-limit budget.
type DiscoveryService struct {
	githubClient       *GitHubClient
	developerRepo      *repositories.DeveloperRepository
	eligibilityService *EligibilityService
	scoreService       *ScoreService
	companiesPerSweep  int

	// running is the re-entrancy guard: at most one discovery run at a
	// time; a concurrent trigger is skipped, not queued.
	running atomic.Bool
}

func NewDiscoveryService(
	githubClient *GitHubClient,
	developerRepo *repositories.DeveloperRepository,
	eligibilityService *EligibilityService,
	scoreService *ScoreService,
	companiesPerSweep int,
) *DiscoveryService {
	return &DiscoveryService{
		githubClient:       githubClient,
		developerRepo:      developerRepo,
		eligibilityService: eligibilityService,
		scoreService:       scoreService,
		companiesPerSweep:  companiesPerSweep,
	}
}

// Discover dispatches a discovery payload to the company or location path.
// Returns the number of developers processed.
func (s *DiscoveryService) Discover(ctx context.Context, payload models.DiscoveryPayload) (int, error) {
	limit := payload.Limit
	if limit <= 0 {
		limit = defaultDiscoveryLimit
	}
	if payload.Company != "" {
		return s.DiscoverByCompany(ctx, payload.Company, limit)
	}
	return s.DiscoverByLocation(ctx, payload.Country, payload.City, limit)
}

// DiscoverByCompany searches users by company and, since organization logins
// rarely match legal company names, also tries org-member listing over
// derived name variants. Returns the number of developers processed before
// completion or rate-limit abort.
func (s *DiscoveryService) DiscoverByCompany(ctx context.Context, company string, limit int) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Infof("discovery already running, skipping company run for %s", company)
		return 0, nil
	}
	defer s.running.Store(false)

	var candidates []string

	users, err := s.githubClient.SearchUsersByCompany(ctx, company, discoverySearchPerPage)
	if err != nil {
		if IsRateLimited(err) {
			logger.Warnf("rate limited searching users for company %s, aborting run", company)
			return 0, nil
		}
		if !IsValidationFailed(err) {
			return 0, err
		}
		logger.Warnf("company query rejected for %s, continuing with org lookup", company)
	}
	for _, user := range users {
		candidates = append(candidates, user.GetLogin())
	}

	for _, org := range deriveOrgCandidates(company) {
		if len(candidates) >= limit*2 {
			break
		}
		members, err := s.githubClient.GetOrganizationMembers(ctx, org, discoverySearchPerPage, 1)
		if err != nil {
			if IsRateLimited(err) {
				logger.Warnf("rate limited listing members of %s, aborting candidate sourcing", org)
				break
			}
			if IsValidationFailed(err) {
				continue
			}
			logger.WithError(err).Warnf("failed to list members of org %s", org)
			continue
		}
		for _, member := range members {
			candidates = append(candidates, member.GetLogin())
		}
	}

	return s.processCandidates(ctx, candidates, limit, false)
}

// DiscoverByLocation probes a known country/city bucket. Unknown buckets
// are a no-op.
func (s *DiscoveryService) DiscoverByLocation(ctx context.Context, country, city string, limit int) (int, error) {
	query, ok := locationQueryTemplates[locationKey(country, city)]
	if !ok {
		logger.Infof("no discovery query template for %s/%s", country, city)
		return 0, nil
	}

	if !s.running.CompareAndSwap(false, true) {
		logger.Infof("discovery already running, skipping location run for %s/%s", country, city)
		return 0, nil
	}
	defer s.running.Store(false)

	users, err := s.githubClient.SearchUsers(ctx, query, discoverySearchPerPage)
	if err != nil {
		if IsRateLimited(err) {
			logger.Warnf("rate limited searching users for %s/%s, aborting run", country, city)
			return 0, nil
		}
		return 0, err
	}

	candidates := make([]string, 0, len(users))
	for _, user := range users {
		candidates = append(candidates, user.GetLogin())
	}

	return s.processCandidates(ctx, candidates, limit, false)
}

// RunSweep iterates all known companies (bounded per run) and all known
// location buckets, skipping any bucket already populated, to keep the long
// tail fresh without user-triggered load.
func (s *DiscoveryService) RunSweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Infof("discovery already running, skipping sweep")
		return
	}
	defer s.running.Store(false)

	for _, company := range s.sweepCompanies() {
		processed, err := s.sweepCompany(ctx, company)
		if err != nil {
			if IsRateLimited(err) {
				logger.Warnf("sweep aborted by rate limit at company %s", company)
				return
			}
			logger.WithError(err).Warnf("sweep: company %s failed", company)
			continue
		}
		logger.Infof("sweep processed %d developers for company %s", processed, company)
	}

	for key, query := range locationQueryTemplates {
		country, city := splitLocationKey(key)
		count, err := s.developerRepo.CountByFilters("", country, city)
		if err != nil {
			logger.WithError(err).Warnf("sweep: count failed for %s/%s", country, city)
			continue
		}
		if count >= bucketFullThreshold {
			continue
		}

		users, err := s.githubClient.SearchUsers(ctx, query, discoverySearchPerPage)
		if err != nil {
			if IsRateLimited(err) {
				logger.Warnf("sweep aborted by rate limit at location %s/%s", country, city)
				return
			}
			logger.WithError(err).Warnf("sweep: search failed for %s/%s", country, city)
			continue
		}

		candidates := make([]string, 0, len(users))
		for _, user := range users {
			candidates = append(candidates, user.GetLogin())
		}

		// Sweeps are a trusted internal caller; the gate is bypassed to
		// spend the budget on scoring rather than pre-checks.
		processed, err := s.processCandidates(ctx, candidates, defaultDiscoveryLimit, true)
		if err != nil {
			logger.WithError(err).Warnf("sweep: processing failed for %s/%s", country, city)
			continue
		}
		logger.Infof("sweep processed %d developers for %s/%s", processed, country, city)
	}
}

// StartScheduler runs the sweep once per day at the given hour.
func (s *DiscoveryService) StartScheduler(sweepHour int) {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), sweepHour, 0, 0, 0, now.Location())
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			time.Sleep(next.Sub(now))

			logger.Infof("starting scheduled discovery sweep")
			s.RunSweep(context.Background())
		}
	}()
}

func (s *DiscoveryService) sweepCompany(ctx context.Context, company string) (int, error) {
	var candidates []string

	users, err := s.githubClient.SearchUsersByCompany(ctx, company, discoverySearchPerPage)
	if err != nil {
		if IsValidationFailed(err) {
			logger.Warnf("sweep: company query rejected for %s, skipping", company)
			return 0, nil
		}
		return 0, err
	}
	for _, user := range users {
		candidates = append(candidates, user.GetLogin())
	}

	return s.processCandidates(ctx, candidates, defaultDiscoveryLimit, true)
}

// processCandidates runs eligibility + fetch-and-score for each username not
// already cached within the freshness window, with bounded concurrency and a
// delay between batches. A rate-limit signal aborts the remainder of the
// run; progress already upserted is kept and the processed count returned.
func (s *DiscoveryService) processCandidates(ctx context.Context, candidates []string, limit int, bypassGate bool) (int, error) {
	usernames := s.filterCandidates(candidates)
	if len(usernames) == 0 {
		return 0, nil
	}

	var processed int64
	var rateLimited atomic.Bool

	for start := 0; start < len(usernames) && int(processed) < limit; start += discoveryBatchSize {
		if rateLimited.Load() {
			break
		}

		end := start + discoveryBatchSize
		if end > len(usernames) {
			end = len(usernames)
		}

		var wg sync.WaitGroup
		for _, username := range usernames[start:end] {
			wg.Add(1)
			go func(username string) {
				defer wg.Done()
				// One failure never aborts the batch; errors are isolated
				// per username.
				if err := s.processOne(ctx, username, bypassGate); err != nil {
					if IsRateLimited(err) {
						rateLimited.Store(true)
						return
					}
					logger.WithError(err).Warnf("discovery: failed to process %s", username)
					return
				}
				atomic.AddInt64(&processed, 1)
			}(username)
		}
		wg.Wait()

		if rateLimited.Load() {
			logger.Warnf("discovery run aborted by rate limit after %d developers", processed)
			break
		}
		if end < len(usernames) && int(processed) < limit {
			time.Sleep(discoveryBatchDelay)
		}
	}

	return int(processed), nil
}

func (s *DiscoveryService) processOne(ctx context.Context, username string, bypassGate bool) error {
	if !bypassGate && !s.eligibilityService.IsEligible(ctx, username) {
		logger.Debugf("discovery: %s not eligible", username)
		return nil
	}

	dev, err := s.scoreService.FetchAndScore(ctx, username)
	if err != nil {
		return err
	}
	if dev == nil {
		return nil
	}
	return s.developerRepo.Upsert(dev)
}

// filterCandidates dedupes and drops usernames cached within the freshness
// window.
func (s *DiscoveryService) filterCandidates(candidates []string) []string {
	seen := make(map[string]bool)
	var usernames []string
	for _, username := range candidates {
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true

		existing, err := s.developerRepo.GetByUsername(username)
		if err == nil && existing.IsFresh() {
			continue
		}
		usernames = append(usernames, username)
	}
	return usernames
}

// sweepCompanies selects up to companiesPerSweep companies for one run.
// Buckets already at the fullness threshold are filtered out before the cap
// is applied, so a full roster entry never consumes a slot that a long-tail
// company behind it could use.
func (s *DiscoveryService) sweepCompanies() []string {
	companies := make([]string, 0, s.companiesPerSweep)
	seen := make(map[string]bool)

	consider := func(company string) {
		key := strings.ToLower(company)
		if seen[key] {
			return
		}
		seen[key] = true

		count, err := s.developerRepo.CountByFilters(company, "", "")
		if err != nil {
			logger.WithError(err).Warnf("sweep: count failed for company %s", company)
			return
		}
		if count >= bucketFullThreshold {
			return
		}
		companies = append(companies, company)
	}

	for _, company := range knownCompanies {
		if len(companies) >= s.companiesPerSweep {
			return companies
		}
		consider(company)
	}

	cached, err := s.developerRepo.DistinctCompanies()
	if err != nil {
		logger.WithError(err).Warn("sweep: failed to list cached companies")
		return companies
	}
	for _, company := range cached {
		if len(companies) >= s.companiesPerSweep {
			break
		}
		consider(company)
	}
	return companies
}

// deriveOrgCandidates produces GitHub organization login guesses for a
// company name: curated aliases, the lowercased name, a legal-suffix
// stripped form, and space-removed/hyphenated variants.
func deriveOrgCandidates(company string) []string {
	seen := make(map[string]bool)
	var candidates []string
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && !seen[candidate] {
			seen[candidate] = true
			candidates = append(candidates, candidate)
		}
	}

	for _, alias := range companyOrgAliases[company] {
		add(alias)
	}

	lower := strings.ToLower(company)
	add(lower)

	stripped := lower
	for _, suffix := range companyLegalSuffixes {
		stripped = strings.TrimSuffix(stripped, suffix)
	}
	add(stripped)
	add(strings.ReplaceAll(stripped, " ", ""))
	add(strings.ReplaceAll(stripped, " ", "-"))

	return candidates
}

func locationKey(country, city string) string {
	return country + "|" + city
}

func splitLocationKey(key string) (string, string) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return key, ""
	}
	return parts[0], parts[1]
}

// KnownLocationBuckets exposes the sweep's location combinations (used by
// the manual trigger endpoint to report coverage).
func KnownLocationBuckets() []models.DiscoveryPayload {
	buckets := make([]models.DiscoveryPayload, 0, len(locationQueryTemplates))
	for key := range locationQueryTemplates {
		country, city := splitLocationKey(key)
		buckets = append(buckets, models.DiscoveryPayload{Country: country, City: city})
	}
	return buckets
}
