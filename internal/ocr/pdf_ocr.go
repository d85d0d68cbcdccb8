package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

// maxAnnotScanBytes bounds how much of a PDF is scanned for link annotations.
const maxAnnotScanBytes = 32 << 20

var reURIAnnot = regexp.MustCompile(`/URI\s*\(((?:\\.|[^\\)])*)\)`)

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	res := Result{SourceType: constants.PDF, Method: "pdf-text"}

	uris, err := linkAnnotations(path)
	if err != nil {
		res.Warnings = append(res.Warnings, "link annotations: "+err.Error())
	}
	res.LinkURIs = uris

	text, pages, warns, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		e.logger.Warn("pdftotext failed", "path", path, "error", err)
		res.Warnings = append(res.Warnings, "pdftotext: "+err.Error())
	}
	res.Text = text
	res.Pages = pages

	if strings.TrimSpace(text) == "" && e.cfg.ScannedPDFFallback {
		e.logger.Info("pdf has no text layer, trying ocr", "path", path)
		otext, opages, owarns, oerr := e.pdfToOCR(ctx, path)
		res.Warnings = append(res.Warnings, owarns...)
		if oerr != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Warnings = append(res.Warnings, "pdf ocr: "+oerr.Error())
			return res, nil
		}
		res.Text = otext
		res.Pages = opages
		res.Method = "pdf-ocr"
	}
	return res, nil
}

// pdfToText returns the non-empty pages joined by newlines.
func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, nonEmpty(string(errb)), err
	}
	// A form-feed \f is used as page separator by default
	raw := strings.Split(string(out), "\f")
	kept := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = Normalize(p); p != "" {
			kept = append(kept, p)
		}
	}
	if e.cfg.MaxPages > 0 && len(kept) > e.cfg.MaxPages {
		kept = kept[:e.cfg.MaxPages]
	}
	return strings.Join(kept, "\n"), len(kept), nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "cv-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, nonEmpty(string(errb)), err
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	kept := make([]string, 0, len(matches))
	var warns []string
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		warns = append(warns, w...)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if txt = Normalize(txt); txt != "" {
			kept = append(kept, txt)
		}
	}
	return strings.Join(kept, "\n"), len(matches), warns, nil
}

// linkAnnotations scans the raw PDF bytes for /URI (...) action targets.
// Annotations inside compressed object streams are not seen.
func linkAnnotations(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxAnnotScanBytes))
	if err != nil {
		return nil, err
	}
	if !bytes.Contains(raw, []byte("/URI")) {
		return nil, nil
	}
	var out []string
	for _, m := range reURIAnnot.FindAllSubmatch(raw, -1) {
		if u := utils.CleanURL(unescapePDFString(string(m[1]))); u != "" {
			out = append(out, u)
		}
	}
	return utils.DedupeStrings(out), nil
}

func unescapePDFString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}
