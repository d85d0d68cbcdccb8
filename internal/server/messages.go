package server

import (
	"encoding/json"

	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

type VerifyRequest struct {
	Path string `json:"path"`
}

type VerifyResponse struct {
	RunID             string          `json:"run_id"`
	Status            string          `json:"status"`
	Mode              string          `json:"mode"`
	Reason            string          `json:"reason"`
	MatchedURL        *string         `json:"matched_url"`
	Fingerprint       string          `json:"fingerprint,omitempty"`
	VerificationToken string          `json:"verification_token,omitempty"`
	Message           string          `json:"message"` // safe to show the uploader
	AuditTrail        json.RawMessage `json:"audit_trail"`
	DurationMs        int64           `json:"duration_ms"`
}

type FingerprintRequest struct {
	Path string `json:"path"`
}

type FingerprintResponse struct {
	Fingerprint string                  `json:"fingerprint"`
	Approved    *entity.PriorSubmission `json:"approved,omitempty"`
	Rejected    *entity.PriorSubmission `json:"rejected,omitempty"`
}
