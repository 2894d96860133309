package sealing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docseal/internal/analytics"
	"docseal/internal/metrics"
	"docseal/internal/model"
	"docseal/internal/notify"
	"docseal/internal/pdf"
	"docseal/internal/repository"
	"docseal/internal/signing"
	"docseal/internal/storage"
	"docseal/internal/webhook"
)

// SealRequest is one seal invocation.
type SealRequest struct {
	DocumentID      string            `json:"documentId"`
	SendEmail       bool              `json:"sendEmail"`
	IsResealing     bool              `json:"isResealing"`
	RequestMetadata map[string]string `json:"requestMetadata,omitempty"`
}

// Plan is the resolved input state of one seal operation. It is built once
// by Prepare and carried through the remaining stages; being plain data it
// also serializes into the job runner's step cache.
type Plan struct {
	Document        model.Document     `json:"document"`
	Data            model.DocumentData `json:"data"`
	Recipients      []model.Recipient  `json:"recipients"`
	Fields          []model.Field      `json:"fields"`
	Rejected        bool               `json:"rejected"`
	RejectionReason string             `json:"rejectionReason,omitempty"`
	// SourceRef is the storage key the render starts from: the current
	// bytes, or the pristine initial bytes on a reseal.
	SourceRef string `json:"sourceRef"`
	// PriorStatus is the document status before this seal, used to decide
	// whether a reseal may send a completion email.
	PriorStatus model.DocumentStatus `json:"priorStatus"`
}

// PersistOutcome records what the terminal transaction committed.
type PersistOutcome struct {
	DataRef       string               `json:"dataRef"`
	TransactionID string               `json:"transactionId"`
	Status        model.DocumentStatus `json:"status"`
	CompletedAt   time.Time            `json:"completedAt"`
}

// Sealer orchestrates the sealing pipeline. All collaborators are injected;
// the sealer owns none of their lifecycles.
type Sealer struct {
	docs      repository.DocumentRepository
	store     storage.Storage
	signer    signing.Signer
	renderer  *Renderer
	certs     CertificateRenderer
	mailer    notify.Mailer
	webhooks  webhook.Dispatcher
	analytics analytics.Sink
	metrics   *metrics.Metrics
	log       *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewSealer wires the orchestrator.
func NewSealer(
	docs repository.DocumentRepository,
	store storage.Storage,
	signer signing.Signer,
	renderer *Renderer,
	certs CertificateRenderer,
	mailer notify.Mailer,
	webhooks webhook.Dispatcher,
	sink analytics.Sink,
	m *metrics.Metrics,
	log *zap.Logger,
) *Sealer {
	return &Sealer{
		docs:      docs,
		store:     store,
		signer:    signer,
		renderer:  renderer,
		certs:     certs,
		mailer:    mailer,
		webhooks:  webhooks,
		analytics: sink,
		metrics:   m,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Seal runs the full pipeline: resolve, render and sign, persist, notify.
func (s *Sealer) Seal(ctx context.Context, req SealRequest) error {
	start := s.now()
	defer func() {
		s.metrics.SealDuration.Observe(time.Since(start).Seconds())
	}()

	plan, err := s.Prepare(ctx, req)
	if err != nil {
		s.metrics.SealsTotal.WithLabelValues("failed").Inc()
		return err
	}
	signed, err := s.RenderAndSign(ctx, plan)
	if err != nil {
		s.metrics.SealsTotal.WithLabelValues("failed").Inc()
		return err
	}
	dataRef, err := s.StoreSigned(ctx, signed)
	if err != nil {
		s.metrics.SealsTotal.WithLabelValues("failed").Inc()
		return err
	}
	outcome, err := s.Persist(ctx, plan, dataRef)
	if err != nil {
		s.metrics.SealsTotal.WithLabelValues("failed").Inc()
		return err
	}
	s.Notify(ctx, req, plan, outcome)

	result := "completed"
	if plan.Rejected {
		result = "rejected"
	}
	s.metrics.SealsTotal.WithLabelValues(result).Inc()
	return nil
}

// Prepare loads the document aggregate, validates the sealing preconditions
// and resolves the byte source. It fails before any externally visible write,
// except the write-once QR token assignment.
func (s *Sealer) Prepare(ctx context.Context, req SealRequest) (*Plan, error) {
	bundle, err := s.docs.FindBundle(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", req.DocumentID, err)
	}

	rejected, reason := FirstRejection(bundle.Recipients)
	if !IsComplete(bundle.Recipients) {
		return nil, fmt.Errorf("document %s: %w", req.DocumentID, ErrDocumentNotComplete)
	}
	if !rejected && HasUnsignedRequiredFields(bundle.Fields) {
		return nil, fmt.Errorf("document %s: %w", req.DocumentID, ErrUnsignedRequiredFields)
	}

	sourceRef := bundle.Data.Data
	if req.IsResealing {
		// Resealing always renders onto the pristine bytes so overlays
		// never compound.
		sourceRef = bundle.Data.InitialData
	}
	if sourceRef == "" {
		return nil, fmt.Errorf("document %s: %w", req.DocumentID, ErrMissingDocumentData)
	}

	if bundle.Document.QRToken == "" {
		token := s.newID()
		if err := s.docs.AssignQRToken(ctx, req.DocumentID, token); err != nil {
			return nil, fmt.Errorf("assign qr token: %w", err)
		}
		bundle.Document.QRToken = token
	}

	return &Plan{
		Document:        bundle.Document,
		Data:            bundle.Data,
		Recipients:      bundle.Recipients,
		Fields:          bundle.Fields,
		Rejected:        rejected,
		RejectionReason: reason,
		SourceRef:       sourceRef,
		PriorStatus:     bundle.Document.Status,
	}, nil
}

// RenderAndSign produces the signed PDF bytes. Rendering is a pure function
// of the plan, so a crashed attempt can safely run it again.
func (s *Sealer) RenderAndSign(ctx context.Context, plan *Plan) ([]byte, error) {
	src, err := storage.GetBytes(ctx, s.store, plan.SourceRef)
	if err != nil {
		return nil, fmt.Errorf("load document bytes: %w", err)
	}
	doc, err := pdf.Load(src)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	doc.NormalizeSignatureAppearances()
	doc.FlattenForm()
	doc.FlattenAnnotations()

	if plan.Rejected && plan.RejectionReason != "" {
		DrawRejectionStamp(doc, plan.RejectionReason)
	}

	if err := s.renderer.RenderFields(ctx, doc, plan.Document, plan.Fields); err != nil {
		return nil, err
	}
	// Field insertion may synthesize interactive widgets for checkbox and
	// radio equivalents; flatten those too before signing.
	doc.FlattenForm()

	if plan.Document.IncludeCertificate && hasSignatureField(plan.Fields) {
		s.appendCertificate(ctx, doc, plan)
	}

	rendered, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	signed, err := s.signer.Sign(ctx, rendered)
	if err != nil {
		return nil, fmt.Errorf("sign document: %w", err)
	}
	return signed, nil
}

// appendCertificate fetches and grafts the certificate page set. Any failure
// here downgrades to "no certificate"; a rendering outage must never block
// sealing.
func (s *Sealer) appendCertificate(ctx context.Context, doc *pdf.Document, plan *Plan) {
	if s.certs == nil {
		return
	}
	certBytes, err := s.certs.Render(ctx, CertificateRequest{
		DocumentID: plan.Document.ID,
		Language:   plan.Document.Language,
	})
	if err == nil {
		var certDoc *pdf.Document
		if certDoc, err = pdf.Load(certBytes); err == nil {
			err = doc.AppendPagesFrom(certDoc)
		}
	}
	if err != nil {
		s.metrics.CertRenderFailures.Inc()
		s.log.Warn("sealing without certificate",
			zap.String("document_id", plan.Document.ID),
			zap.Error(err))
	}
}

// StoreSigned uploads the signed bytes under a fresh content key. The write
// happens outside the seal transaction: storage is content-addressed and
// immutable, an orphaned blob from a later transaction failure is harmless.
func (s *Sealer) StoreSigned(ctx context.Context, signed []byte) (string, error) {
	dataRef := "document-data/" + s.newID() + ".pdf"
	if err := storage.PutBytes(ctx, s.store, dataRef, signed, "application/pdf"); err != nil {
		return "", fmt.Errorf("store signed bytes: %w", err)
	}
	return dataRef, nil
}

// Persist commits the terminal transition referencing an already-stored blob.
func (s *Sealer) Persist(ctx context.Context, plan *Plan, dataRef string) (*PersistOutcome, error) {
	status := model.DocumentStatusCompleted
	if plan.Rejected {
		status = model.DocumentStatusRejected
	}
	completedAt := s.now().UTC()
	txID := s.newID()

	auditData := map[string]any{"transactionId": txID}
	if plan.Rejected {
		auditData["isRejected"] = true
		auditData["rejectionReason"] = plan.RejectionReason
	}

	err := s.docs.CompleteSeal(ctx, repository.CompleteSealParams{
		DocumentID:     plan.Document.ID,
		DocumentDataID: plan.Data.ID,
		DataRef:        dataRef,
		Status:         status,
		CompletedAt:    completedAt,
		AuditLog: model.AuditLog{
			ID:         s.newID(),
			DocumentID: plan.Document.ID,
			Type:       model.AuditLogTypeDocumentCompleted,
			Data:       auditData,
			CreatedAt:  completedAt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("persist seal: %w", err)
	}

	return &PersistOutcome{
		DataRef:       dataRef,
		TransactionID: txID,
		Status:        status,
		CompletedAt:   completedAt,
	}, nil
}

// Notify emits the best-effort side effects of a committed seal. Nothing here
// may fail the operation; the seal is already durable.
func (s *Sealer) Notify(ctx context.Context, req SealRequest, plan *Plan, outcome *PersistOutcome) {
	s.analytics.Capture("document_sealed", map[string]any{
		"documentId": plan.Document.ID,
		"status":     string(outcome.Status),
		"resealing":  req.IsResealing,
	})

	if s.shouldSendEmail(req, plan) {
		err := s.mailer.SendCompletedEmail(ctx, notify.CompletedEmail{
			DocumentID:      plan.Document.ID,
			RequestMetadata: req.RequestMetadata,
		})
		if err != nil {
			s.log.Warn("completion email failed",
				zap.String("document_id", plan.Document.ID),
				zap.Error(err))
		}
	}

	s.dispatchWebhook(ctx, plan, outcome)
}

// shouldSendEmail applies the completion email policy: only on request, never
// for rejections, and never again when a reseal re-runs an already-completed
// document.
func (s *Sealer) shouldSendEmail(req SealRequest, plan *Plan) bool {
	if !req.SendEmail || plan.Rejected {
		return false
	}
	if req.IsResealing && plan.PriorStatus == model.DocumentStatusCompleted {
		return false
	}
	return true
}

// dispatchWebhook reloads the persisted state and delivers the terminal
// event. The payload reflects what actually committed, not in-memory state.
func (s *Sealer) dispatchWebhook(ctx context.Context, plan *Plan, outcome *PersistOutcome) {
	event := webhook.EventDocumentCompleted
	if outcome.Status == model.DocumentStatusRejected {
		event = webhook.EventDocumentRejected
	}

	bundle, err := s.docs.FindWebhookBundle(ctx, plan.Document.ID)
	if err != nil {
		s.metrics.WebhookDispatchErrors.Inc()
		s.log.Warn("webhook payload reload failed",
			zap.String("document_id", plan.Document.ID),
			zap.Error(err))
		return
	}

	err = s.webhooks.Trigger(ctx, webhook.Event{
		Event:      event,
		DocumentID: bundle.Document.ID,
		UserID:     bundle.Document.UserID,
		TeamID:     bundle.Document.TeamID,
		Payload: map[string]any{
			"document":   bundle.Document,
			"recipients": bundle.Recipients,
			"data":       bundle.Data,
		},
	})
	if err != nil {
		s.metrics.WebhookDispatchErrors.Inc()
		s.log.Warn("webhook dispatch failed",
			zap.String("document_id", plan.Document.ID),
			zap.String("event", event),
			zap.Error(err))
	}
}

func hasSignatureField(fields []model.Field) bool {
	for _, f := range fields {
		if f.Type.IsSignature() {
			return true
		}
	}
	return false
}
