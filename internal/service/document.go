package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docseal/internal/model"
	"docseal/internal/repository"
	"docseal/internal/storage"
)

var (
	ErrIDRequired     = errors.New("id is required")
	ErrNotFound       = errors.New("document not found")
	ErrSealInProgress = errors.New("a seal job for this document is already queued")
	ErrNotSealed      = errors.New("document has no sealed copy")
)

// SealOptions control how a queued seal job behaves.
type SealOptions struct {
	SendEmail       bool              `json:"sendEmail"`
	IsResealing     bool              `json:"isResealing"`
	RequestMetadata map[string]string `json:"requestMetadata,omitempty"`
}

// DocumentService defines the use cases for sealing documents.
type DocumentService interface {
	// Get returns a document with its data, recipients and fields.
	Get(ctx context.Context, id string) (*model.DocumentBundle, error)

	// RequestSeal queues a seal job for the document. At most one job per
	// document may be queued or running at a time.
	RequestSeal(ctx context.Context, id string, opts SealOptions) (*model.SealJob, error)

	// DownloadURL returns a presigned URL for the sealed document.
	DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	docs  repository.DocumentRepository
	jobs  repository.JobRepository
	store storage.Storage
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(docs repository.DocumentRepository, jobs repository.JobRepository, store storage.Storage) DocumentService {
	return &documentService{docs: docs, jobs: jobs, store: store}
}

// Get returns a document bundle by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.DocumentBundle, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	bundle, err := s.docs.FindBundle(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return bundle, nil
}

// RequestSeal validates that the document exists and queues a seal job.
func (s *documentService) RequestSeal(ctx context.Context, id string, opts SealOptions) (*model.SealJob, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if _, err := s.docs.FindBundle(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	job := &model.SealJob{
		ID:              uuid.New().String(),
		DocumentID:      id,
		SendEmail:       opts.SendEmail,
		IsResealing:     opts.IsResealing,
		RequestMetadata: opts.RequestMetadata,
		Status:          model.JobStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicateJob) {
			return nil, ErrSealInProgress
		}
		return nil, fmt.Errorf("enqueue seal job: %w", err)
	}
	return job, nil
}

// DownloadURL presigns a download for the document's current data. Only
// completed or rejected documents carry a sealed copy.
func (s *documentService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if id == "" {
		return "", ErrIDRequired
	}
	bundle, err := s.docs.FindBundle(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if bundle.Document.Status != model.DocumentStatusCompleted && bundle.Document.Status != model.DocumentStatusRejected {
		return "", ErrNotSealed
	}
	if bundle.Data.Data == "" {
		return "", ErrNotSealed
	}
	url, err := s.store.PresignGet(ctx, bundle.Data.Data, expiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}
