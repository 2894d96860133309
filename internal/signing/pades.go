package signing

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	pdflib "github.com/digitorus/pdf"
	"github.com/digitorus/pdfsign"
)

// Credential errors.
var (
	ErrNoPEMData      = errors.New("no PEM data found")
	ErrNotSigner      = errors.New("private key does not implement crypto.Signer")
	ErrEmptyDocument  = errors.New("document has no pages")
	ErrMissingKeyPair = errors.New("certificate and key are required")
)

// PAdESSigner signs PDFs with a PAdES-compatible embedded signature.
type PAdESSigner struct {
	key           crypto.Signer
	cert          *x509.Certificate
	intermediates []*x509.Certificate
	reason        string
	location      string
}

// NewPAdESSigner builds a signer from an already-parsed key pair.
func NewPAdESSigner(key crypto.Signer, cert *x509.Certificate, intermediates []*x509.Certificate, reason, location string) (*PAdESSigner, error) {
	if key == nil || cert == nil {
		return nil, ErrMissingKeyPair
	}
	return &PAdESSigner{
		key:           key,
		cert:          cert,
		intermediates: intermediates,
		reason:        reason,
		location:      location,
	}, nil
}

// NewPAdESSignerFromFiles loads PEM-encoded key and certificate chain files.
// The certificate file may carry intermediates after the leaf.
func NewPAdESSignerFromFiles(keyPath, certPath, reason, location string) (*PAdESSigner, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read signing certificate: %w", err)
	}
	certs, err := parseCertificates(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse signing certificate: %w", err)
	}

	return NewPAdESSigner(key, certs[0], certs[1:], reason, location)
}

var _ Signer = (*PAdESSigner)(nil)

// Sign embeds a digital signature into the PDF and returns the new bytes.
func (s *PAdESSigner) Sign(ctx context.Context, pdfBytes []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A quick structural check up front gives a clearer error than a
	// failure deep inside signature placement.
	reader, err := pdflib.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("open document for signing: %w", err)
	}
	if reader.NumPage() == 0 {
		return nil, ErrEmptyDocument
	}

	doc, err := pdfsign.Open(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("open document for signing: %w", err)
	}
	doc.Sign(s.key, s.cert, s.intermediates...).
		Reason(s.reason).
		Location(s.location)

	var buf bytes.Buffer
	if _, err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("write signed document: %w", err)
	}
	return buf.Bytes(), nil
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrNoPEMData
	}
	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrNotSigner
	}
	return signer, nil
}

func parseCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for rest := pemData; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, ErrNoPEMData
	}
	return certs, nil
}
