package entity

import (
	"github.com/joseph-ayodele/cert-verifier/constants"
)

// SubmissionRecord is the slice of an external submission row the hash gate
// reads. Writes belong to the review workflow.
type SubmissionRecord struct {
	ID          int64                      `json:"id"`
	OwnerID     string                     `json:"owner_id"`
	Filename    string                     `json:"filename"`
	ContentHash string                     `json:"content_hash"`
	Status      constants.SubmissionStatus `json:"status"`
	ReviewerID  *string                    `json:"reviewer_id,omitempty"`
}

// AsPrior converts the record into the audit-trail form.
func (r *SubmissionRecord) AsPrior() *PriorSubmission {
	if r == nil {
		return nil
	}
	p := &PriorSubmission{
		SubmissionID: r.ID,
		OwnerID:      r.OwnerID,
		Filename:     r.Filename,
		Status:       string(r.Status),
		Fingerprint:  r.ContentHash,
	}
	if r.ReviewerID != nil {
		p.ReviewerID = *r.ReviewerID
	}
	return p
}
