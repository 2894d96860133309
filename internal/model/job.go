package model

import "time"

// JobStatus is the lifecycle state of a queued seal job.
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

// SealJob is one queued seal operation. At most one non-terminal job may
// exist per document, enforced by a partial unique index.
type SealJob struct {
	ID          string
	DocumentID  string
	SendEmail   bool
	IsResealing bool
	// RequestMetadata carries caller context (source IP, user agent) into
	// the audit trail and completion email.
	RequestMetadata map[string]string
	Status          JobStatus
	Attempts        int
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
