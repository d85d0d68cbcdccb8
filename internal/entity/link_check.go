package entity

// LinkCheckResult is the outcome of probing one candidate URL.
type LinkCheckResult struct {
	URL        string  `json:"url"`
	Reachable  bool    `json:"reachable"`
	StatusCode *int    `json:"status_code"`
	NameMatch  bool    `json:"name_match"`
	IDMatch    bool    `json:"id_match"`
	Error      *string `json:"error"`
}

// Strong reports whether the check corroborates the document: the page was
// reachable and mentioned the holder's name or an extracted ID.
func (r LinkCheckResult) Strong() bool {
	return r.Reachable && (r.NameMatch || r.IDMatch)
}
