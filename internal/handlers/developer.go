package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultRankingsLimit = 50
	maxRankingsLimit     = 100
	defaultSearchLimit   = 10
	maxExportRows        = 1000
)

// rankedDeveloper decorates a developer with its position in the current
// filtered view.
type rankedDeveloper struct {
	Rank int `json:"rank"`
	*models.Developer
}

type DeveloperHandler struct {
	developerService *services.DeveloperService
	exportService    *services.ExportService
}

func NewDeveloperHandler(developerService *services.DeveloperService, exportService *services.ExportService) *DeveloperHandler {
	return &DeveloperHandler{
		developerService: developerService,
		exportService:    exportService,
	}
}

// GetRankings returns a filtered, paginated ranking page
func (h *DeveloperHandler) GetRankings(c *gin.Context) {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultRankingsLimit)
	if limit > maxRankingsLimit {
		limit = maxRankingsLimit
	}

	filters := filtersFromQuery(c)
	autoDiscover := c.DefaultQuery("autoDiscover", "true") != "false"

	result, err := h.developerService.GetRankings(c.Request.Context(), page, limit, filters, autoDiscover)
	if err != nil {
		respondUpstreamError(c, "Failed to get rankings", err)
		return
	}

	developers := make([]rankedDeveloper, 0, len(result.Developers))
	for i, dev := range result.Developers {
		developers = append(developers, rankedDeveloper{
			Rank:      (page-1)*limit + i + 1,
			Developer: dev,
		})
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (result.Total + limit - 1) / limit
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"developers":     developers,
		"total":          result.Total,
		"page":           page,
		"limit":          limit,
		"totalPages":     totalPages,
		"maxScore":       result.MaxScore,
		"autoDiscovered": result.AutoDiscovered,
	})
}

// CheckRank returns a developer's rank under the given filters, scheduling a
// background evaluation when the developer is not cached yet
func (h *DeveloperHandler) CheckRank(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Username is required",
		})
		return
	}

	result, err := h.developerService.CheckRank(c.Request.Context(), username, filtersFromQuery(c))
	if err != nil {
		respondUpstreamError(c, "Failed to check rank", err)
		return
	}

	if result.Status == "processing" {
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"status":  result.Status,
			"message": result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    result.Status,
		"rank":      result.Rank,
		"total":     result.Total,
		"developer": result.Developer,
	})
}

// GetDeveloper returns a single cached developer profile
func (h *DeveloperHandler) GetDeveloper(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Username is required",
		})
		return
	}

	dev, err := h.developerService.GetByUsername(username)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Developer not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get developer: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"developer": dev,
	})
}

// Calculate evaluates a username synchronously: eligibility gate, metric
// fetch, scoring and storage
func (h *DeveloperHandler) Calculate(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Username is required",
		})
		return
	}

	dev, eligible, reason, err := h.developerService.Calculate(c.Request.Context(), username, false)
	if err != nil {
		respondUpstreamError(c, "Failed to calculate score", err)
		return
	}
	if !eligible {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":  false,
			"message":  reason,
			"criteria": services.EligibilityCriteria,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"developer": dev,
	})
}

// Search matches developers by username or display name
func (h *DeveloperHandler) Search(c *gin.Context) {
	queryText := strings.TrimSpace(c.Query("q"))
	if queryText == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Search query is required",
		})
		return
	}

	limit := parsePositiveInt(c.Query("limit"), defaultSearchLimit)
	developers, err := h.developerService.Search(queryText, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Search failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"developers": developers,
	})
}

// GetCompanies lists all known companies
func (h *DeveloperHandler) GetCompanies(c *gin.Context) {
	h.listStrings(c, "companies", func() ([]string, error) {
		return h.developerService.Companies()
	})
}

// GetCountries lists all known countries
func (h *DeveloperHandler) GetCountries(c *gin.Context) {
	h.listStrings(c, "countries", func() ([]string, error) {
		return h.developerService.Countries()
	})
}

// GetCities lists all known cities, optionally scoped to a country
func (h *DeveloperHandler) GetCities(c *gin.Context) {
	country := strings.TrimSpace(c.Query("country"))
	h.listStrings(c, "cities", func() ([]string, error) {
		return h.developerService.Cities(country)
	})
}

// GetProfileTypes lists all known profile types
func (h *DeveloperHandler) GetProfileTypes(c *gin.Context) {
	h.listStrings(c, "profileTypes", func() ([]string, error) {
		return h.developerService.ProfileTypes()
	})
}

// AutoDiscover schedules a discovery job for the requested company or
// location bucket. The bucket comes from the JSON body, or from query
// parameters when no body is sent.
func (h *DeveloperHandler) AutoDiscover(c *gin.Context) {
	var payload models.DiscoveryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		payload = models.DiscoveryPayload{
			Company: strings.TrimSpace(c.Query("company")),
			Country: strings.TrimSpace(c.Query("country")),
			City:    strings.TrimSpace(c.Query("city")),
			Limit:   parsePositiveInt(c.Query("limit"), 0),
		}
	}

	if payload.Company == "" && payload.Country == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "A company or country is required",
		})
		return
	}

	if err := h.developerService.EnqueueDiscovery(payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to schedule discovery: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Discovery scheduled",
	})
}

// TriggerDiscovery schedules a full company and location sweep
func (h *DeveloperHandler) TriggerDiscovery(c *gin.Context) {
	if err := h.developerService.EnqueueSweep(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to schedule sweep: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"message":   "Sweep scheduled",
		"locations": services.KnownLocationBuckets(),
	})
}

// ExportRankings streams the current filtered rankings as an XLSX workbook
func (h *DeveloperHandler) ExportRankings(c *gin.Context) {
	limit := parsePositiveInt(c.Query("limit"), maxExportRows)
	if limit > maxExportRows {
		limit = maxExportRows
	}

	buffer, err := h.exportService.ExportRankings(filtersFromQuery(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to export rankings: " + err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("rankings-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buffer.Bytes())
}

// respondUpstreamError maps a GitHub rate-limit error to 429 with guidance;
// anything else is an internal error.
func respondUpstreamError(c *gin.Context, action string, err error) {
	if services.IsRateLimited(err) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": "GitHub API rate limit reached. Configure GITHUB_TOKEN for a higher limit, or retry later.",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": action + ": " + err.Error(),
	})
}

func (h *DeveloperHandler) listStrings(c *gin.Context, key string, fetch func() ([]string, error)) {
	values, err := fetch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list " + key + ": " + err.Error(),
		})
		return
	}
	if values == nil {
		values = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		key:       values,
	})
}

func filtersFromQuery(c *gin.Context) models.RankingFilters {
	return models.RankingFilters{
		Country:     strings.TrimSpace(c.Query("country")),
		City:        strings.TrimSpace(c.Query("city")),
		Company:     strings.TrimSpace(c.Query("company")),
		ProfileType: strings.TrimSpace(c.Query("profileType")),
	}
}

func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
