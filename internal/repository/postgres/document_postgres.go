package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docseal/internal/model"
	"docseal/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. It uses database/sql with parameterized
// queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// FindBundle loads the document aggregate in three queries. Recipients are
// ordered by insertion so "first rejected recipient" is deterministic.
func (r *DocumentPostgres) FindBundle(ctx context.Context, documentID string) (*model.DocumentBundle, error) {
	const qDoc = `
		SELECT d.id, d.title, d.status, d.document_data_id, d.user_id,
		       COALESCE(d.team_id, ''), COALESCE(d.qr_token, ''),
		       d.use_legacy_field_insertion, d.include_certificate,
		       d.language, d.created_at, d.completed_at,
		       dd.id, dd.data, dd.initial_data
		FROM documents d
		JOIN document_data dd ON dd.id = d.document_data_id
		WHERE d.id = $1
	`
	var b model.DocumentBundle
	row := r.db.QueryRowContext(ctx, qDoc, documentID)
	if err := row.Scan(
		&b.Document.ID,
		&b.Document.Title,
		&b.Document.Status,
		&b.Document.DocumentDataID,
		&b.Document.UserID,
		&b.Document.TeamID,
		&b.Document.QRToken,
		&b.Document.UseLegacyFieldInsertion,
		&b.Document.IncludeCertificate,
		&b.Document.Language,
		&b.Document.CreatedAt,
		&b.Document.CompletedAt,
		&b.Data.ID,
		&b.Data.Data,
		&b.Data.InitialData,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}

	recipients, err := r.findRecipients(ctx, documentID)
	if err != nil {
		return nil, err
	}
	b.Recipients = recipients

	fields, err := r.findFields(ctx, documentID)
	if err != nil {
		return nil, err
	}
	b.Fields = fields

	return &b, nil
}

func (r *DocumentPostgres) findRecipients(ctx context.Context, documentID string) ([]model.Recipient, error) {
	const q = `
		SELECT id, document_id, email, name, role, signing_status,
		       COALESCE(rejection_reason, ''), signed_at
		FROM recipients
		WHERE document_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, fmt.Errorf("find recipients: %w", err)
	}
	defer rows.Close()

	recipients := make([]model.Recipient, 0)
	for rows.Next() {
		var rec model.Recipient
		if err := rows.Scan(
			&rec.ID,
			&rec.DocumentID,
			&rec.Email,
			&rec.Name,
			&rec.Role,
			&rec.SigningStatus,
			&rec.RejectionReason,
			&rec.SignedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *DocumentPostgres) findFields(ctx context.Context, documentID string) ([]model.Field, error) {
	const q = `
		SELECT f.id, f.document_id, f.recipient_id, f.type, f.page,
		       f.position_x, f.position_y, f.width, f.height,
		       f.inserted, f.required, COALESCE(f.custom_text, ''),
		       s.id, s.recipient_id, s.typed_signature, s.image_png
		FROM fields f
		LEFT JOIN signatures s ON s.field_id = f.id
		WHERE f.document_id = $1
		ORDER BY f.page, f.id
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, fmt.Errorf("find fields: %w", err)
	}
	defer rows.Close()

	fields := make([]model.Field, 0)
	for rows.Next() {
		var f model.Field
		var sigID, sigRecipient, sigTyped sql.NullString
		var sigImage []byte
		if err := rows.Scan(
			&f.ID,
			&f.DocumentID,
			&f.RecipientID,
			&f.Type,
			&f.Page,
			&f.PositionX,
			&f.PositionY,
			&f.Width,
			&f.Height,
			&f.Inserted,
			&f.Required,
			&f.CustomText,
			&sigID,
			&sigRecipient,
			&sigTyped,
			&sigImage,
		); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		if sigID.Valid {
			f.Signature = &model.Signature{
				ID:             sigID.String,
				RecipientID:    sigRecipient.String,
				TypedSignature: sigTyped.String,
				ImagePNG:       sigImage,
			}
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// AssignQRToken writes the token only for documents that have none. The
// qr_token IS NULL guard makes concurrent assigns first-write-wins.
func (r *DocumentPostgres) AssignQRToken(ctx context.Context, documentID, token string) error {
	const q = `UPDATE documents SET qr_token = $2 WHERE id = $1 AND qr_token IS NULL`
	if _, err := r.db.ExecContext(ctx, q, documentID, token); err != nil {
		return fmt.Errorf("assign qr token: %w", err)
	}
	return nil
}

// CompleteSeal performs the terminal status transition in one transaction.
func (r *DocumentPostgres) CompleteSeal(ctx context.Context, p repository.CompleteSealParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seal transaction: %w", err)
	}
	defer tx.Rollback()

	const qDoc = `UPDATE documents SET status = $2, completed_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, qDoc, p.DocumentID, p.Status, p.CompletedAt); err != nil {
		return fmt.Errorf("update document status: %w", err)
	}

	const qData = `UPDATE document_data SET data = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, qData, p.DocumentDataID, p.DataRef); err != nil {
		return fmt.Errorf("update document data: %w", err)
	}

	payload, err := json.Marshal(p.AuditLog.Data)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	const qAudit = `
		INSERT INTO audit_logs (id, document_id, type, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, qAudit,
		p.AuditLog.ID,
		p.AuditLog.DocumentID,
		p.AuditLog.Type,
		payload,
		p.AuditLog.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seal transaction: %w", err)
	}
	return nil
}

// FindWebhookBundle reloads the document aggregate after a committed seal.
func (r *DocumentPostgres) FindWebhookBundle(ctx context.Context, documentID string) (*model.DocumentBundle, error) {
	return r.FindBundle(ctx, documentID)
}
