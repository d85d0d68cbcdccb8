// Package evidence derives candidate URLs, ID tokens and holder names from
// extracted certificate text.
package evidence

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

// DefaultMaxNames is the number of name candidates kept per document.
const DefaultMaxNames = 3

var (
	urlRe = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	idRe  = regexp.MustCompile(`\b[A-Za-z0-9\-]{10,40}\b`)
)

// Parser extracts evidence from text. It is safe for concurrent use.
type Parser struct {
	blocklist []blockTerm
	maxNames  int
}

type blockTerm struct {
	upper string
	word  bool // short terms only match whole words
}

// NewParser builds a parser over the given institutional blocklist. An empty
// list falls back to constants.DefaultNameBlocklist.
func NewParser(blocklist []string, maxNames int) *Parser {
	if len(blocklist) == 0 {
		blocklist = constants.DefaultNameBlocklist
	}
	if maxNames <= 0 {
		maxNames = DefaultMaxNames
	}
	terms := make([]blockTerm, 0, len(blocklist))
	for _, t := range blocklist {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		terms = append(terms, blockTerm{upper: t, word: len([]rune(t)) < 4})
	}
	return &Parser{blocklist: terms, maxNames: maxNames}
}

// Parse runs the URL, ID and name extractions over text. QR-derived URLs are
// merged by the caller.
func (p *Parser) Parse(text string) entity.ExtractionResult {
	return entity.ExtractionResult{
		Text:           text,
		URLCandidates:  utils.DedupeStrings(ExtractURLs(text)),
		IDTokens:       utils.DedupeStrings(ExtractIDs(text)),
		CandidateNames: p.CandidateNames(text),
	}
}

// ExtractURLs returns every http(s):// or www. token in text, cleaned with
// utils.CleanURL. Order follows the text; duplicates are kept.
func ExtractURLs(text string) []string {
	raw := urlRe.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		if c := utils.CleanURL(u); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ExtractIDs returns alphanumeric/hyphen runs of 10 to 40 characters.
func ExtractIDs(text string) []string {
	raw := idRe.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		if c := utils.CleanText(id); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// CandidateNames returns up to maxNames lines that look like a person's name:
// 2 to 4 words, all Title-case or the whole line upper-case, and free of
// blocklisted terms.
func (p *Parser) CandidateNames(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if p.blocked(line, words) {
			continue
		}
		if !allTitle(words) && !isUpper(line) {
			continue
		}
		names = append(names, utils.CleanText(line))
		if len(names) == p.maxNames {
			break
		}
	}
	return names
}

func (p *Parser) blocked(line string, words []string) bool {
	upper := strings.ToUpper(line)
	for _, t := range p.blocklist {
		if !t.word {
			if strings.Contains(upper, t.upper) {
				return true
			}
			continue
		}
		for _, w := range words {
			if strings.ToUpper(strings.Trim(w, ".,;:!?\"'()")) == t.upper {
				return true
			}
		}
	}
	return false
}

// allTitle: every word longer than one rune starts upper-case and its remaining
// cased runes are lower-case.
func allTitle(words []string) bool {
	for _, w := range words {
		rs := []rune(w)
		if len(rs) <= 1 {
			continue
		}
		if !unicode.IsUpper(rs[0]) || !isLower(rs[1:]) {
			return false
		}
	}
	return true
}

func isLower(rs []rune) bool {
	cased := false
	for _, r := range rs {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
