package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey string

const (
	ctxKeyContentHash ctxKey = "ocr.content_hash_hex"
)

// WithContentHash stores the document fingerprint so converted artifacts can
// be cached under it.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

// ContentHashFromContext returns the fingerprint stored by WithContentHash.
func ContentHashFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// ConvertHEIC converts a HEIC/HEIF image to PNG for consumers outside OCR (the
// QR decoder). Returned cleanup may be nil.
func (e *Extractor) ConvertHEIC(ctx context.Context, in string) (string, func(), error) {
	hashHex, _ := ContentHashFromContext(ctx)
	out, _, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, in, e.cfg.ArtifactCacheDir, hashHex)
	return out, cleanup, err
}

// convertHEICtoPNG converts a HEIC/HEIF file to PNG.
// If cacheDir and hashHex are non-empty, it will persist (and reuse) the PNG at
//
//	{cacheDir}/{hashHex}.png
//
// Returns (outPath, warnings, cleanup, err). cleanup is nil when the cached
// artifact is returned.
func convertHEICtoPNG(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	in string,
	cacheDir string,
	hashHex string,
) (string, []string, func(), error) {
	useCache := cacheDir != "" && hashHex != ""
	cached := ""
	if useCache {
		cached = filepath.Join(cacheDir, hashHex+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "cv-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	var errb []byte
	switch converter {
	case "heif-convert":
		_, errb, err = r.Run(ctx, "heif-convert", logger, in, out)
	case "magick":
		_, errb, err = r.Run(ctx, "magick", logger, in, out)
	case "sips":
		_, errb, err = r.Run(ctx, "sips", logger, "-s", "format", "png", in, "--out", out)
	default:
		return "", nil, cleanup, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if err != nil {
		return "", nonEmpty(string(errb)), cleanup, fmt.Errorf("%s failed: %w", converter, err)
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	if !useCache {
		return out, nil, cleanup, nil
	}

	// try atomic rename; if it fails (e.g., EXDEV), copy next to the cache
	// entry and rename that into place
	if err := os.Rename(out, cached); err != nil {
		if st, statErr := os.Stat(cached); statErr == nil && !st.IsDir() {
			cleanup()
			return cached, nil, nil, nil
		}
		if err := copyIntoPlace(out, cached); err != nil {
			cleanup()
			return "", nil, nil, err
		}
	}
	cleanup()
	logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil, nil
}

// copyIntoPlace copies src to a temp file in dst's directory and renames it
// to dst, so readers never see a partial file at dst.
func copyIntoPlace(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
