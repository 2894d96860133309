package sealing

import "docseal/internal/model"

// IsComplete reports whether the document's signing workflow has concluded:
// at least one gating recipient rejected, or every gating recipient signed.
func IsComplete(recipients []model.Recipient) bool {
	if rejected, _ := FirstRejection(recipients); rejected {
		return true
	}
	for _, r := range recipients {
		if r.Gates() && r.SigningStatus != model.SigningStatusSigned {
			return false
		}
	}
	return true
}

// FirstRejection returns whether any gating recipient rejected, and the
// rejection reason of the first such recipient in iteration order. A rejected
// recipient without a recorded reason yields the empty string, which is a
// defined fallback, not an error.
func FirstRejection(recipients []model.Recipient) (bool, string) {
	for _, r := range recipients {
		if r.Gates() && r.SigningStatus == model.SigningStatusRejected {
			return true, r.RejectionReason
		}
	}
	return false, ""
}

// HasUnsignedRequiredFields reports whether any required field is still
// missing its value. Skipped for rejected documents, where unsigned fields
// are expected.
func HasUnsignedRequiredFields(fields []model.Field) bool {
	for _, f := range fields {
		if f.Required && !f.Inserted {
			return true
		}
	}
	return false
}
