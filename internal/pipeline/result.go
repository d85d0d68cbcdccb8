package pipeline

import (
	"time"

	"github.com/joseph-ayodele/cert-verifier/internal/decision"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

const (
	MessageVerified = "Certificate verified."
	MessageQueued   = "Certificate queued for review."
)

// Result is everything a caller persists for one verification run.
type Result struct {
	RunID             string                  `json:"run_id"`
	Path              string                  `json:"path"`
	Fingerprint       string                  `json:"fingerprint,omitempty"`
	Verdict           entity.Verdict          `json:"verdict"`
	Evidence          entity.ExtractionResult `json:"evidence"`
	QRPayloads        []string                `json:"qr_payloads"`
	PriorRejection    *entity.PriorSubmission `json:"prior_rejection,omitempty"`
	VerificationToken string                  `json:"verification_token,omitempty"`
	Duration          time.Duration           `json:"duration_ns"`
}

// AuditJSON is the serialized audit trail stored verbatim for reviewers.
func (r Result) AuditJSON() ([]byte, error) {
	return decision.MarshalAudit(r.Verdict.Audit)
}

// PublicMessage is the only outcome text shown to the uploader; diagnostics
// stay in the audit trail.
func (r Result) PublicMessage() string {
	if r.Verdict.AutoVerified() {
		return MessageVerified
	}
	return MessageQueued
}
