package utils

import (
	"strings"
	"unicode"
)

// CleanText drops non-printable runes and trims surrounding whitespace.
// Newlines survive so callers can still split the text into lines; tabs become
// spaces.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == '\t':
			b.WriteRune(' ')
		case unicode.IsPrint(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanURL is CleanText followed by removing every whitespace rune, so spaces
// inserted by OCR inside a link collapse away. QR payloads and text-derived
// URLs both go through here; equal inputs must give equal outputs.
func CleanURL(raw string) string {
	s := CleanText(raw)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// DedupeStrings removes exact duplicates, keeping first occurrences in order.
// Empty strings are dropped.
func DedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Truncate caps s at max bytes, marking the cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// NormalizeURL trims trailing punctuation picked up from prose and gives bare
// www. hosts an https scheme. It is idempotent.
func NormalizeURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), ".,;)")
	if strings.HasPrefix(u, "www.") {
		u = "https://" + u
	}
	return u
}
