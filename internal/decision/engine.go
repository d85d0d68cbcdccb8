// Package decision turns link-check results and QR payloads into a verdict.
// Everything here is a pure function of its inputs.
package decision

import (
	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

const (
	ReasonQRPlusLink     = "QR code URL reached issuer site and matched name/ID."
	ReasonQRPlusTextLink = "Text/URL and QR evidence: issuer site reachable with matching name/ID."
	ReasonLinkOnly       = "Issuer link from certificate text matched name/ID."
)

// Evaluate scans checks in the order given and accepts on the first strong
// one. qrValues are the cleaned QR payloads of the document; the verdict mode
// records whether the accepting URL came from a QR code.
func Evaluate(checks []entity.LinkCheckResult, qrValues []string) entity.Verdict {
	v := entity.Verdict{
		Status: constants.VerdictPending,
		Mode:   constants.ModeTextOnly,
		Reason: constants.NoSignalReason,
	}
	if len(qrValues) > 0 {
		v.Mode = constants.ModeQROnly
	}

	if strong, ok := firstStrong(checks); ok {
		url := strong.URL
		v.Status = constants.VerdictAutoVerified
		v.MatchedURL = &url
		switch {
		case fromQR(url, qrValues):
			v.Mode = constants.ModeQRPlusLink
			v.Reason = ReasonQRPlusLink
		case len(qrValues) > 0:
			v.Mode = constants.ModeQRPlusTextLink
			v.Reason = ReasonQRPlusTextLink
		default:
			v.Mode = constants.ModeLinkOnly
			v.Reason = ReasonLinkOnly
		}
	}

	v.Audit = buildAudit(v, checks, qrValues)
	return v
}

// HashMatch is the fast-path verdict for a byte-identical copy of an already
// approved submission.
func HashMatch(prior *entity.SubmissionRecord) entity.Verdict {
	v := entity.Verdict{
		Status: constants.VerdictAutoVerified,
		Mode:   constants.ModeHashMatch,
		Reason: constants.HashMatchReason,
	}
	v.Audit = buildAudit(v, nil, nil)
	v.Audit.HashMatch = prior.AsPrior()
	return v
}

func firstStrong(checks []entity.LinkCheckResult) (entity.LinkCheckResult, bool) {
	for _, c := range checks {
		if c.Strong() {
			return c, true
		}
	}
	return entity.LinkCheckResult{}, false
}

// fromQR compares in normalized form so a bare www. payload matches the
// https:// URL that was probed for it.
func fromQR(url string, qrValues []string) bool {
	want := utils.NormalizeURL(url)
	for _, q := range qrValues {
		if utils.NormalizeURL(q) == want {
			return true
		}
	}
	return false
}

func buildAudit(v entity.Verdict, checks []entity.LinkCheckResult, qrValues []string) entity.AuditTrail {
	a := entity.AuditTrail{
		Reason:      v.Reason,
		QRFound:     len(qrValues) > 0,
		CheckedURLs: make([]string, 0, len(checks)),
		LinkChecks:  make([]entity.LinkCheckResult, 0, len(checks)),
		QRValues:    make([]string, 0, len(qrValues)),
	}
	for _, c := range checks {
		a.CheckedURLs = append(a.CheckedURLs, c.URL)
		a.LinkChecks = append(a.LinkChecks, c)
	}
	a.QRValues = append(a.QRValues, qrValues...)
	if v.MatchedURL != nil {
		u := *v.MatchedURL
		a.StrongMatchURL = &u
	}
	return a
}
