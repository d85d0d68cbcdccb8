// Package qr decodes QR payloads from raster certificate images.
package qr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

// minDecodeWidth is the width small images are upscaled to on retry.
const minDecodeWidth = 1200

var urlPrefix = regexp.MustCompile(`^(?:https?://|www\.)`)

// HEICConverter turns a HEIC/HEIF image into a decodable PNG.
type HEICConverter interface {
	ConvertHEIC(ctx context.Context, in string) (out string, cleanup func(), err error)
}

type Extractor struct {
	heic   HEICConverter
	logger *slog.Logger
}

// NewExtractor builds a QR extractor. heic may be nil, in which case HEIC
// images yield no payloads.
func NewExtractor(heic HEICConverter, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{heic: heic, logger: logger}
}

// Extract returns the payloads found in the image at path, in detector order,
// with empty payloads dropped. PDFs and unreadable images yield no payloads;
// the error is informational only.
func (e *Extractor) Extract(ctx context.Context, path string) ([]string, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsRasterExt(ext) && !constants.IsHEICExt(ext) {
		return nil, nil
	}
	if constants.IsHEICExt(ext) {
		if e.heic == nil {
			return nil, errors.New("qr: no HEIC converter configured")
		}
		out, cleanup, err := e.heic.ConvertHEIC(ctx, path)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return nil, fmt.Errorf("qr: convert heic: %w", err)
		}
		path = out
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		e.logger.Debug("qr decode skipped, image unreadable", "path", path, "error", err)
		return nil, fmt.Errorf("qr: open image: %w", err)
	}

	payloads := Decode(img)
	e.logger.Debug("qr decode done", "path", path, "payloads", len(payloads))
	return payloads, nil
}

// Decode runs the multi-code detector over img, retrying on a grayscale and
// an upscaled copy when nothing is found.
func Decode(img image.Image) []string {
	attempts := []func() image.Image{
		func() image.Image { return img },
		func() image.Image { return imaging.Grayscale(img) },
		func() image.Image {
			if img.Bounds().Dx() >= minDecodeWidth {
				return nil
			}
			return imaging.Resize(imaging.Grayscale(img), minDecodeWidth, 0, imaging.Lanczos)
		},
	}
	for _, attempt := range attempts {
		candidate := attempt()
		if candidate == nil {
			continue
		}
		if out := decodeOnce(candidate); len(out) > 0 {
			return out
		}
	}
	return nil
}

func decodeOnce(img image.Image) (out []string) {
	// gozxing panics on some degenerate bitmaps
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	results, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, hints)
	if err != nil || len(results) == 0 {
		single, serr := qrcode.NewQRCodeReader().Decode(bmp, hints)
		if serr != nil || single == nil {
			return nil
		}
		results = []*gozxing.Result{single}
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		if txt := r.GetText(); txt != "" {
			out = append(out, txt)
		}
	}
	return out
}

// FilterURLs keeps payloads that, after utils.CleanURL, start with http://,
// https:// or www. The cleaned form is returned.
func FilterURLs(payloads []string) []string {
	var out []string
	for _, p := range payloads {
		c := utils.CleanURL(p)
		if urlPrefix.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

// CleanPayloads applies utils.CleanURL to every payload and drops empties.
func CleanPayloads(payloads []string) []string {
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		if c := utils.CleanURL(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}
