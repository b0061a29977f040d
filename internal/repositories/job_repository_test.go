package repositories

import (
	"testing"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNextPendingJobClaimsOldestFirst(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	first := models.NewJob(models.JobTypeCalculate)
	first.CreatedAt = time.Now().Add(-2 * time.Minute)
	require.NoError(t, repo.Create(first))

	second := models.NewJob(models.JobTypeCalculate)
	second.CreatedAt = time.Now().Add(-1 * time.Minute)
	require.NoError(t, repo.Create(second))

	claimed, err := repo.GetNextPendingJob(models.JobTypeCalculate, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, models.JobStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.WorkerID)
	assert.Equal(t, "worker-1", *claimed.WorkerID)
	assert.NotNil(t, claimed.StartedAt)

	// The claim is persisted; the same job is not handed out twice.
	next, err := repo.GetNextPendingJob(models.JobTypeCalculate, "worker-2")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, second.ID, next.ID)
}

func TestGetNextPendingJobEmptyQueue(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	job, err := repo.GetNextPendingJob(models.JobTypeCalculate, "worker-1")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestGetNextPendingJobFiltersByType(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	discovery := models.NewJob(models.JobTypeDiscovery)
	require.NoError(t, repo.Create(discovery))

	job, err := repo.GetNextPendingJob(models.JobTypeCalculate, "worker-1")
	require.NoError(t, err)
	assert.Nil(t, job)

	job, err = repo.GetNextPendingJob(models.JobTypeDiscovery, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, discovery.ID, job.ID)
}

func TestJobLifecycleUpdate(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	job := models.NewJob(models.JobTypeCalculate)
	require.NoError(t, job.SetPayload(models.CalculatePayload{Username: "octocat"}))
	require.NoError(t, repo.Create(job))

	claimed, err := repo.GetNextPendingJob(models.JobTypeCalculate, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	claimed.SetError("boom")
	claimed.MarkFailed()
	require.NoError(t, repo.Update(claimed))

	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)

	var payload models.CalculatePayload
	require.NoError(t, got.UnmarshalPayload(&payload))
	assert.Equal(t, "octocat", payload.Username)
}

func TestHasPendingForUsername(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	job := models.NewJob(models.JobTypeCalculate)
	require.NoError(t, job.SetPayload(models.CalculatePayload{Username: "octocat"}))
	require.NoError(t, repo.Create(job))

	pending, err := repo.HasPendingForUsername("octocat")
	require.NoError(t, err)
	assert.True(t, pending)

	pending, err = repo.HasPendingForUsername("someone-else")
	require.NoError(t, err)
	assert.False(t, pending)

	// A claimed job still counts until it completes.
	claimed, err := repo.GetNextPendingJob(models.JobTypeCalculate, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	pending, err = repo.HasPendingForUsername("octocat")
	require.NoError(t, err)
	assert.True(t, pending)

	claimed.MarkCompleted()
	require.NoError(t, repo.Update(claimed))

	pending, err = repo.HasPendingForUsername("octocat")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestHasPendingForUsernameMatchesExactly(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	job := models.NewJob(models.JobTypeCalculate)
	require.NoError(t, job.SetPayload(models.CalculatePayload{Username: "octocat-dev"}))
	require.NoError(t, repo.Create(job))

	// Neither prefixes nor wildcard characters in the lookup may match.
	for _, lookup := range []string{"octocat", "octocat%", "octo_at-dev", "%"} {
		pending, err := repo.HasPendingForUsername(lookup)
		require.NoError(t, err, lookup)
		assert.False(t, pending, lookup)
	}

	pending, err := repo.HasPendingForUsername("octocat-dev")
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestCountPending(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	require.NoError(t, repo.Create(models.NewJob(models.JobTypeCalculate)))
	require.NoError(t, repo.Create(models.NewJob(models.JobTypeCalculate)))
	require.NoError(t, repo.Create(models.NewJob(models.JobTypeDiscovery)))

	count, err := repo.CountPending(models.JobTypeCalculate)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountPending(models.JobTypeSweep)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
