package pipeline

import (
	"context"

	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/ocr"
)

// TextExtractor is stage 1: file -> cleaned text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// QRExtractor is stage 2: image -> raw QR payloads.
type QRExtractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// EvidenceParser is stage 3: text -> URLs, ID tokens, holder names.
type EvidenceParser interface {
	Parse(text string) entity.ExtractionResult
}

// LinkChecker is stage 4: probe URLs for name/ID corroboration.
type LinkChecker interface {
	CheckAll(ctx context.Context, urls, names, ids []string) ([]entity.LinkCheckResult, error)
}

// HashGate is the fingerprint fast-path.
type HashGate interface {
	Fingerprint(path string) (string, error)
	Lookup(ctx context.Context, hash string) (*entity.SubmissionRecord, error)
	LookupRejected(ctx context.Context, hash string) (*entity.SubmissionRecord, error)
}
