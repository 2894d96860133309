package model

import "time"

// Document is a signable document moving through the drafting, signing and
// sealing workflow. The sealing pipeline is its terminal mutator.
type Document struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Status         DocumentStatus `json:"status"`
	DocumentDataID string         `json:"document_data_id"`
	UserID         string         `json:"user_id"`
	TeamID         string         `json:"team_id,omitempty"`

	// QRToken is assigned lazily the first time the document is sealed and
	// never rewritten afterwards.
	QRToken string `json:"qr_token,omitempty"`

	// UseLegacyFieldInsertion selects the legacy signature-insertion strategy
	// for documents created before the current renderer shipped.
	UseLegacyFieldInsertion bool `json:"use_legacy_field_insertion"`

	// IncludeCertificate mirrors the owning team's preference for appending a
	// signing-certificate page set. Defaults to true.
	IncludeCertificate bool `json:"include_certificate"`

	Language    string     `json:"language"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DocumentData is the content-addressed storage reference pair for a document.
// Data points at the currently rendered bytes; InitialData points at the
// pristine upload. Resealing always renders onto InitialData so overlays never
// compound.
type DocumentData struct {
	ID          string `json:"id"`
	Data        string `json:"data"`
	InitialData string `json:"initial_data"`
}

// Recipient is a participant of one document's signing workflow.
type Recipient struct {
	ID              string        `json:"id"`
	DocumentID      string        `json:"document_id"`
	Email           string        `json:"email"`
	Name            string        `json:"name"`
	Role            RecipientRole `json:"role"`
	SigningStatus   SigningStatus `json:"signing_status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	SignedAt        *time.Time    `json:"signed_at,omitempty"`
}

// Gates reports whether this recipient's action gates document completion.
func (r Recipient) Gates() bool {
	return r.Role != RecipientRoleCC
}

// Signature holds the value a recipient provided for a signature-bearing
// field: either typed text or an uploaded PNG image.
type Signature struct {
	ID             string `json:"id"`
	RecipientID    string `json:"recipient_id"`
	TypedSignature string `json:"typed_signature,omitempty"`
	ImagePNG       []byte `json:"image_png,omitempty"`
}

// Field is a positioned, typed placeholder on a document page. Position and
// size are fractions of the page on a 0-100 scale, anchored top-left.
type Field struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	RecipientID string    `json:"recipient_id"`
	Type        FieldType `json:"type"`

	// Page is 1-based. Fields referencing pruned pages are tolerated and
	// skipped at render time.
	Page int `json:"page"`

	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`

	Inserted   bool       `json:"inserted"`
	Required   bool       `json:"required"`
	CustomText string     `json:"custom_text,omitempty"`
	Signature  *Signature `json:"signature,omitempty"`
}

// AuditLog is an immutable append-only record tied to a document.
type AuditLog struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Type       string         `json:"type"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditLogTypeDocumentCompleted tags the single audit entry appended by a
// successful seal.
const AuditLogTypeDocumentCompleted = "DOCUMENT_COMPLETED"

// DocumentBundle is the fully loaded aggregate the sealing pipeline operates
// on: the document with its recipients (in defined order), fields with linked
// signatures, and the document data pair.
type DocumentBundle struct {
	Document   Document
	Data       DocumentData
	Recipients []Recipient
	Fields     []Field
}
