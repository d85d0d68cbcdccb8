package entity

import (
	"github.com/joseph-ayodele/cert-verifier/constants"
)

// Verdict is the terminal output of a verification run.
type Verdict struct {
	Status     constants.VerdictStatus    `json:"status"`
	Mode       constants.VerificationMode `json:"mode"`
	Reason     string                     `json:"reason"`
	MatchedURL *string                    `json:"matched_url"`
	Audit      AuditTrail                 `json:"audit_trail"`
}

// AutoVerified reports whether the verdict accepted the document.
func (v Verdict) AutoVerified() bool {
	return v.Status == constants.VerdictAutoVerified
}

// AuditTrail is retained verbatim for reviewers, including on accepted verdicts.
type AuditTrail struct {
	Reason         string            `json:"reason"`
	QRFound        bool              `json:"qr_found"`
	CheckedURLs    []string          `json:"checked_urls"`
	StrongMatchURL *string           `json:"strong_match_url"`
	LinkChecks     []LinkCheckResult `json:"link_checks"`
	QRValues       []string          `json:"qr_values"`

	HashMatch      *PriorSubmission `json:"hash_match,omitempty"`
	PriorRejection *PriorSubmission `json:"prior_rejection,omitempty"`
	Diagnostics    []string         `json:"diagnostics,omitempty"`
}

// PriorSubmission identifies an earlier submission with identical bytes.
type PriorSubmission struct {
	SubmissionID int64  `json:"submission_id"`
	OwnerID      string `json:"owner_id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	ReviewerID   string `json:"reviewer_id,omitempty"`
	Fingerprint  string `json:"fingerprint"`
}
