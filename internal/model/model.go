package model

// Package model contains the domain types shared across the sealing pipeline.
// These are pure data structures: no database-specific dependencies or tags,
// and no business logic beyond small predicates that belong to the type itself.

// DocumentStatus is the lifecycle status of a document.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusPending   DocumentStatus = "PENDING"
	DocumentStatusCompleted DocumentStatus = "COMPLETED"
	DocumentStatusRejected  DocumentStatus = "REJECTED"
)

// RecipientRole describes how a recipient participates in the signing workflow.
type RecipientRole string

const (
	RecipientRoleSigner   RecipientRole = "SIGNER"
	RecipientRoleApprover RecipientRole = "APPROVER"
	RecipientRoleViewer   RecipientRole = "VIEWER"
	// RecipientRoleCC marks copy-only observers whose action never gates completion.
	RecipientRoleCC RecipientRole = "CC"
)

// SigningStatus is the per-recipient signing state.
type SigningStatus string

const (
	SigningStatusPending  SigningStatus = "PENDING"
	SigningStatusSigned   SigningStatus = "SIGNED"
	SigningStatusRejected SigningStatus = "REJECTED"
)

// FieldType identifies the kind of input a field collects.
type FieldType string

const (
	FieldTypeSignature     FieldType = "SIGNATURE"
	FieldTypeFreeSignature FieldType = "FREE_SIGNATURE"
	FieldTypeInitials      FieldType = "INITIALS"
	FieldTypeName          FieldType = "NAME"
	FieldTypeEmail         FieldType = "EMAIL"
	FieldTypeDate          FieldType = "DATE"
	FieldTypeText          FieldType = "TEXT"
	FieldTypeNumber        FieldType = "NUMBER"
	FieldTypeCheckbox      FieldType = "CHECKBOX"
	FieldTypeRadio         FieldType = "RADIO"
	FieldTypeDropdown      FieldType = "DROPDOWN"
)

// IsSignature reports whether the field type carries signature artwork rather
// than plain text content.
func (t FieldType) IsSignature() bool {
	return t == FieldTypeSignature || t == FieldTypeFreeSignature
}
