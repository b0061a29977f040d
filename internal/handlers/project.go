package handlers

import (
	"net/http"
	"strings"

	"github.com/Jeelislive/openRank-Backend/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultProjectsLimit = 30
	maxProjectsLimit     = 100
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// ListProjects returns a filtered, sorted page of repositories, live from
// GitHub when possible and from the snapshot cache when rate limited
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultProjectsLimit)
	if limit > maxProjectsLimit {
		limit = maxProjectsLimit
	}

	minStars := parsePositiveInt(c.Query("minStars"), 0)

	projects, total, fromCache, err := h.projectService.List(
		c.Request.Context(),
		strings.TrimSpace(c.Query("search")),
		strings.TrimSpace(c.Query("language")),
		strings.TrimSpace(c.Query("sort")),
		strings.TrimSpace(c.Query("order")),
		page,
		limit,
		minStars,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list projects: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"projects":  projects,
		"total":     total,
		"page":      page,
		"limit":     limit,
		"fromCache": fromCache,
	})
}

// GetLanguages lists languages seen in cached projects
func (h *ProjectHandler) GetLanguages(c *gin.Context) {
	languages, err := h.projectService.Languages()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list languages: " + err.Error(),
		})
		return
	}
	if languages == nil {
		languages = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"languages": languages,
	})
}

// GetCategories lists categories seen in cached projects
func (h *ProjectHandler) GetCategories(c *gin.Context) {
	categories, err := h.projectService.Categories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list categories: " + err.Error(),
		})
		return
	}
	if categories == nil {
		categories = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": categories,
	})
}
