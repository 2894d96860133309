package repository

import (
	"context"
	"time"

	"docseal/internal/model"
)

// DocumentRepository defines data access for documents and their sealing
// state transitions. No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// FindBundle loads a document together with its data row, recipients
	// and fields (fields carry their linked signature, if any). Returns
	// ErrNotFound when the document does not exist.
	FindBundle(ctx context.Context, documentID string) (*model.DocumentBundle, error)

	// AssignQRToken writes the token only when the document has none yet.
	// Calling it again for a document that already carries a token is a
	// no-op, the stored token is never overwritten.
	AssignQRToken(ctx context.Context, documentID, token string) error

	// CompleteSeal applies the terminal status transition in one
	// transaction: document status and completion timestamp, the document
	// data reference, and exactly one audit log entry. All three commit or
	// roll back together.
	CompleteSeal(ctx context.Context, p CompleteSealParams) error

	// FindWebhookBundle reloads the persisted state used to build webhook
	// payloads after a seal has committed.
	FindWebhookBundle(ctx context.Context, documentID string) (*model.DocumentBundle, error)
}

// CompleteSealParams carries every write of the terminal transition.
type CompleteSealParams struct {
	DocumentID     string
	DocumentDataID string
	// DataRef is the storage key of the freshly signed bytes.
	DataRef     string
	Status      model.DocumentStatus
	CompletedAt time.Time
	AuditLog    model.AuditLog
}

// JobRepository is the durable queue behind the seal job runner.
type JobRepository interface {
	// Enqueue inserts a new pending job. Returns ErrDuplicateJob when the
	// document already has a non-terminal job.
	Enqueue(ctx context.Context, job *model.SealJob) error

	// ClaimPending picks the oldest pending job, marks it running and
	// increments its attempt counter. Concurrent pollers never claim the
	// same job. Returns ErrNoPendingJobs when the queue is empty.
	ClaimPending(ctx context.Context) (*model.SealJob, error)

	// MarkDone finishes a job successfully.
	MarkDone(ctx context.Context, jobID string) error

	// MarkFailed records a failure. Permanent failures stay FAILED;
	// retryable ones go back to PENDING.
	MarkFailed(ctx context.Context, jobID, reason string, permanent bool) error

	// GetStepResult returns the cached result of a named step, if the step
	// already committed during a previous attempt.
	GetStepResult(ctx context.Context, jobID, step string) ([]byte, bool, error)

	// PutStepResult commits a step result. The first write wins; replays
	// of an already-committed step are ignored.
	PutStepResult(ctx context.Context, jobID, step string, result []byte) error
}
