package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "hello world", CleanText("  hello\x00 world\x07 "))
	assert.Equal(t, "line one\nline two", CleanText("line one\nline two\n"))
	assert.Equal(t, "a b", CleanText("a\tb"))
	assert.Equal(t, "", CleanText(""))
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://example.com/", CleanURL(" https://example.com/  "))
	assert.Equal(t, "https://example.com", CleanURL("https:// ex ample .com"))
	assert.Equal(t, "https://issuer.edu/v/1", CleanURL("https://issuer.edu/v/1\u200b"))
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"b", "a", "b", "", "A", "a"})
	assert.Equal(t, []string{"b", "a", "A"}, got)
	assert.Empty(t, DedupeStrings(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...(truncated)", Truncate("abcdef", 2))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/page", NormalizeURL("https://example.com/page."))
	assert.Equal(t, "https://www.test.org", NormalizeURL("www.test.org),"))
	assert.Equal(t, "https://www.test.org", NormalizeURL(NormalizeURL("www.test.org")))
	assert.Equal(t, "ID-123", NormalizeURL("ID-123"))
}
