package signing

import "context"

// Signer turns rendered PDF bytes into digitally signed PDF bytes. A failure
// here is fatal for the seal operation.
type Signer interface {
	Sign(ctx context.Context, pdfBytes []byte) ([]byte, error)
}
