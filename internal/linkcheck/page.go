package linkcheck

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// readPage returns the lower-cased body, decoded to UTF-8 and capped at max
// bytes. For HTML the visible text is appended so names split across markup
// or written with entities still match.
func readPage(resp *http.Response, max int64) (string, error) {
	ct := resp.Header.Get("Content-Type")
	body, err := charset.NewReader(io.LimitReader(resp.Body, max), ct)
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(string(raw)))
	if isHTML(ct, raw) {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw)); err == nil {
			doc.Find("script,style,noscript").Remove()
			b.WriteByte('\n')
			b.WriteString(strings.ToLower(strings.Join(strings.Fields(doc.Text()), " ")))
		}
	}
	return b.String(), nil
}

func isHTML(contentType string, raw []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt == "text/html" || mt == "application/xhtml+xml"
	}
	return strings.HasPrefix(http.DetectContentType(raw), "text/html")
}
