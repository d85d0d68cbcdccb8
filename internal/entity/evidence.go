package entity

// ExtractionResult is the evidence derived from one document. It is built once
// per verification run and not mutated afterwards.
type ExtractionResult struct {
	Text           string   `json:"text"`
	URLCandidates  []string `json:"url_candidates"`  // deduplicated, first occurrence wins
	IDTokens       []string `json:"id_tokens"`
	CandidateNames []string `json:"candidate_names"` // at most 3
}
