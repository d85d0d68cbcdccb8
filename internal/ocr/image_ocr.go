package ocr

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/cert-verifier/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	txt, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return Result{SourceType: constants.IMAGE, Warnings: warn}, ctx.Err()
		}
		e.logger.Warn("image ocr failed, using placeholder text", "path", path, "error", err)
		return placeholderResult(append(warn, err.Error())), nil
	}
	return Result{
		Text:       Normalize(txt),
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Warnings:   warn,
	}, nil
}

func placeholderResult(warns []string) Result {
	return Result{
		Text:       Placeholder,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "placeholder",
		Warnings:   warns,
	}
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		var warns []string
		if len(errb) > 0 {
			warns = append(warns, string(errb))
		}
		return "", warns, fmt.Errorf("tesseract: %w", err)
	}

	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}
