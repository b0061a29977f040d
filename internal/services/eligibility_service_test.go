package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCheckShortCircuitsOnMergedPRs(t *testing.T) {
	var searchCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searchCalls, 1)
		fmt.Fprint(w, `{"total_count": 25, "incomplete_results": false, "items": []}`)
	})
	service := NewEligibilityService(newFakeGitHub(t, mux))

	eligible, reason := service.Check(context.Background(), "octocat")
	assert.True(t, eligible)
	assert.Contains(t, reason, "merged pull requests")

	// The first criterion satisfied means no further checks run.
	assert.Equal(t, int32(1), atomic.LoadInt32(&searchCalls))
}

func TestCheckFallsThroughToReviews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		total := 0
		if strings.Contains(query, "reviewed-by:") {
			total = 4
		}
		fmt.Fprintf(w, `{"total_count": %d, "incomplete_results": false, "items": []}`, total)
	})
	service := NewEligibilityService(newFakeGitHub(t, mux))

	eligible, reason := service.Check(context.Background(), "octocat")
	assert.True(t, eligible)
	assert.Contains(t, reason, "reviews")
}

func TestCheckMaintainerOfActiveRepo(t *testing.T) {
	recentUpdate := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count": 0, "incomplete_results": false, "items": []}`)
	})
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"name": "tool", "fork": false, "stargazers_count": 12, "forks_count": 0, "updated_at": %q}]`, recentUpdate)
	})
	service := NewEligibilityService(newFakeGitHub(t, mux))

	eligible, reason := service.Check(context.Background(), "octocat")
	assert.True(t, eligible)
	assert.Contains(t, reason, "maintainer")
}

func TestCheckIneligibleWithNoActivity(t *testing.T) {
	staleUpdate := time.Now().AddDate(0, 0, -(models.ActivityWindowDays + 30))

	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count": 0, "incomplete_results": false, "items": []}`)
	})
	mux.HandleFunc("/users/dormant/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"name": "old", "fork": false, "stargazers_count": 3, "forks_count": 1, "updated_at": %q}]`,
			staleUpdate.UTC().Format(time.RFC3339))
	})
	service := NewEligibilityService(newFakeGitHub(t, mux))

	eligible, reason := service.Check(context.Background(), "dormant")
	assert.False(t, eligible)
	assert.Contains(t, reason, "no recent")
}

func TestCheckDegradesToFalseOnTotalFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	})
	service := NewEligibilityService(newFakeGitHub(t, mux))

	// Upstream failures fail individual checks, never raise.
	eligible := service.IsEligible(context.Background(), "octocat")
	assert.False(t, eligible)
}
