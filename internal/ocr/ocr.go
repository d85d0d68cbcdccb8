// Package ocr turns a stored certificate (PDF or raster image) into cleaned
// text using poppler's pdftotext/pdftoppm and tesseract.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

// Placeholder is returned as the text of an image whose OCR failed, so later
// stages still see deterministic input. It never parses as a holder name.
const Placeholder = "ocr unavailable: image text could not be extracted"

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir   string
	HeicConverter string // heif-convert | magick | sips

	// ScannedPDFFallback rasterizes and OCRs a PDF with no text layer.
	ScannedPDFFallback bool

	ArtifactCacheDir string
}

// Result is the text extracted from one document.
type Result struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "placeholder"
	Duration   time.Duration
	Warnings   []string
	LinkURIs   []string // PDF link annotation targets, cleaned
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, execRunner{}, logger)
}

// NewExtractorWithRunner is NewExtractor with an explicit command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = "./tmp"
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract picks a strategy based on file extension. A missing file or an
// unsupported extension returns an empty Result and an error; OCR failures on
// images return the Placeholder text and no error.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting text extraction", "path", path, "ext", ext)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", common.ErrUnreadable, path)
		}
		return Result{}, fmt.Errorf("%w: %v", common.ErrUnreadable, err)
	}

	var (
		res Result
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImageFile(ctx, path, ext)
	default:
		e.logger.Warn("unsupported document extension", "path", path, "extension", ext)
		return Result{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}
	res.Text = utils.CleanText(res.Text)
	res.Duration = time.Since(start)
	e.logger.Debug("text extraction done",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, err
}

func (e *Extractor) extractImageFile(ctx context.Context, path, ext string) (Result, error) {
	var warns []string
	if constants.IsHEICExt(ext) {
		hashHex, _ := ContentHashFromContext(ctx)
		out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
		warns = append(warns, w...)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			e.logger.Warn("heic conversion failed", "path", path, "error", err)
			if ctx.Err() != nil {
				return Result{SourceType: constants.IMAGE, Warnings: warns}, ctx.Err()
			}
			warns = append(warns, err.Error())
			return placeholderResult(warns), nil
		}
		path = out
	}
	res, err := e.extractImage(ctx, path)
	res.Warnings = append(warns, res.Warnings...)
	return res, err
}
