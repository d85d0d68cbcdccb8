package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cert-verifier/internal/common"
)

type stubCall struct {
	name string
	args []string
}

type stubRunner struct {
	mu    sync.Mutex
	calls []stubCall
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{name: name, args: args})
	s.mu.Unlock()
	return s.fn(name, args)
}

func (s *stubRunner) called(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestExtractPDFJoinsNonEmptyPages(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "cert.pdf", "%PDF-1.4\n1 0 obj << /Type /Annot /A << /S /URI /URI (https://issuer.edu/verify/\\(1\\)) >> >> endobj\n")
	r := &stubRunner{fn: func(name string, _ []string) ([]byte, []byte, error) {
		require.Equal(t, "pdftotext", name)
		return []byte("Certificate   of Completion\n\n\f\f   \fJane Doe\f"), nil, nil
	}}
	ex := NewExtractorWithRunner(Config{}, r, nil)

	res, err := ex.Extract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "Certificate of Completion\nJane Doe", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, []string{"https://issuer.edu/verify/(1)"}, res.LinkURIs)
}

func TestExtractPDFWithoutTextLayer(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "scan.pdf", "%PDF-1.4\n")
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("\f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			require.NoError(t, os.WriteFile(prefix+"-1.png", []byte("png"), 0o644))
			return nil, nil, nil
		case "tesseract":
			return []byte("JANE DOE\n"), nil, nil
		}
		return nil, nil, errors.New("unexpected command")
	}}

	res, err := NewExtractorWithRunner(Config{}, r, nil).Extract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, 0, r.called("pdftoppm"))

	res, err = NewExtractorWithRunner(Config{ScannedPDFFallback: true}, r, nil).Extract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "JANE DOE", res.Text)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 1, r.called("pdftoppm"))
}

func TestExtractImage(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "cert.png", "png")
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		assert.Equal(t, img, args[0])
		return []byte("  Awarded to\r\nAda   Lovelace \n-----\n"), nil, nil
	}}

	res, err := NewExtractorWithRunner(Config{}, r, nil).Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "Awarded to\nAda Lovelace", res.Text)
	assert.Equal(t, "image-ocr", res.Method)
}

func TestExtractImageOCRFailureUsesPlaceholder(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "cert.jpg", "jpg")
	r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("tesseract: not found"), errors.New("exec: not found")
	}}

	res, err := NewExtractorWithRunner(Config{}, r, nil).Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, Placeholder, res.Text)
	assert.Equal(t, "placeholder", res.Method)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtractMissingAndUnsupported(t *testing.T) {
	r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	ex := NewExtractorWithRunner(Config{}, r, nil)

	res, err := ex.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, common.ErrUnreadable)
	assert.Empty(t, res.Text)

	txt := writeFile(t, t.TempDir(), "notes.txt", "hello")
	res, err = ex.Extract(context.Background(), txt)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Empty(t, res.Text)
	assert.Empty(t, r.calls)
}

func TestExtractHEICCachesConversion(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "cache")
	heic := writeFile(t, dir, "cert.heic", "heic")
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "magick":
			require.NoError(t, os.WriteFile(args[1], []byte("png"), 0o644))
			return nil, nil, nil
		case "tesseract":
			return []byte("Grace Hopper"), nil, nil
		}
		return nil, nil, errors.New("unexpected command")
	}}
	ex := NewExtractorWithRunner(Config{HeicConverter: "magick", ArtifactCacheDir: cache}, r, nil)
	ctx := WithContentHash(context.Background(), "abc123")

	res, err := ex.Extract(ctx, heic)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", res.Text)
	assert.FileExists(t, filepath.Join(cache, "abc123.png"))

	_, err = ex.Extract(ctx, heic)
	require.NoError(t, err)
	assert.Equal(t, 1, r.called("magick"))
	assert.Equal(t, 2, r.called("tesseract"))
}

func TestCopyIntoPlaceLeavesNoTempFiles(t *testing.T) {
	src := writeFile(t, t.TempDir(), "page.png", "png-bytes")
	cache := t.TempDir()
	dst := filepath.Join(cache, "abc123.png")

	require.NoError(t, copyIntoPlace(src, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc123.png", entries[0].Name())

	err = copyIntoPlace(filepath.Join(cache, "missing.png"), filepath.Join(cache, "other.png"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(cache, "other.png"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "a b\n\nc", Normalize("a\t\tb  \n\n\n\n  c  "))
}
