package constants

// VerificationMode is the evidentiary class of a verdict.
type VerificationMode string

const (
	ModeTextOnly       VerificationMode = "text_only"
	ModeQROnly         VerificationMode = "qr_only"
	ModeLinkOnly       VerificationMode = "link_only"
	ModeQRPlusLink     VerificationMode = "qr_plus_link"
	ModeQRPlusTextLink VerificationMode = "qr_plus_text_link"
	ModeHashMatch      VerificationMode = "hash_match" // fast-path, no heuristics ran
)

var allModes = []VerificationMode{
	ModeTextOnly,
	ModeQROnly,
	ModeLinkOnly,
	ModeQRPlusLink,
	ModeQRPlusTextLink,
	ModeHashMatch,
}

// ModesAsStrings returns every mode as a plain string, in declaration order.
func ModesAsStrings() []string {
	out := make([]string, len(allModes))
	for i, m := range allModes {
		out[i] = string(m)
	}
	return out
}
