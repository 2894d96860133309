package sealing

import "errors"

// Precondition errors. These indicate the caller invoked sealing before the
// signing workflow actually concluded; retrying without fixing upstream state
// fails identically.
var (
	ErrDocumentNotComplete    = errors.New("document is not complete")
	ErrUnsignedRequiredFields = errors.New("document has unsigned required fields")
	ErrMissingDocumentData    = errors.New("document data not found")
)

// IsPrecondition reports whether err is a sealing precondition failure, as
// opposed to a transient collaborator or infrastructure error.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrDocumentNotComplete) ||
		errors.Is(err, ErrUnsignedRequiredFields) ||
		errors.Is(err, ErrMissingDocumentData)
}
