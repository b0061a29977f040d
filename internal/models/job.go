package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of background job
type JobType string

const (
	// JobTypeCalculate fetches, gates, scores and upserts a single username.
	JobTypeCalculate JobType = "calculate"
	// JobTypeDiscovery runs a batch discovery pass for a company or location.
	JobTypeDiscovery JobType = "discovery"
	// JobTypeSweep runs the full company/location sweep.
	JobTypeSweep JobType = "sweep"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job queued for a worker
type Job struct {
	ID           string     `json:"id"`
	JobType      JobType    `json:"job_type"`
	Status       JobStatus  `json:"status"`
	Payload      *string    `json:"payload"`
	ErrorMessage *string    `json:"error_message"`
	WorkerID     *string    `json:"worker_id"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CalculatePayload is the payload of a calculate job
type CalculatePayload struct {
	Username string `json:"username"`
	// BypassGate skips the eligibility gate; reserved for trusted internal
	// callers such as the company/location sweeps.
	BypassGate bool `json:"bypass_gate"`
}

// DiscoveryPayload is the payload of a discovery job
type DiscoveryPayload struct {
	Company string `json:"company,omitempty"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// NewJob creates a new Job with a generated UUID
func NewJob(jobType JobType) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		JobType:   jobType,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetPayload marshals the given payload into the job
func (j *Job) SetPayload(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	str := string(data)
	j.Payload = &str
	return nil
}

// UnmarshalPayload unmarshals the job payload into the given value
func (j *Job) UnmarshalPayload(v interface{}) error {
	if j.Payload == nil {
		return nil
	}
	return json.Unmarshal([]byte(*j.Payload), v)
}

// IsPending checks if the job is pending
func (j *Job) IsPending() bool {
	return j.Status == JobStatusPending
}

// MarkStarted marks the job as started
func (j *Job) MarkStarted() {
	now := time.Now()
	j.Status = JobStatusInProgress
	j.StartedAt = &now
}

// MarkCompleted marks the job as completed
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
}

// MarkFailed marks the job as failed
func (j *Job) MarkFailed() {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
}

// SetError sets an error message for the job
func (j *Job) SetError(message string) {
	j.ErrorMessage = &message
}
