package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/ingest"
	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
)

// Verifier runs one verification; *pipeline.Processor satisfies it.
type Verifier interface {
	Verify(ctx context.Context, path string) (pipeline.Result, error)
}

// Fingerprinter is the subset of the hash gate the Fingerprint call needs.
type Fingerprinter interface {
	Fingerprint(path string) (string, error)
	Lookup(ctx context.Context, hash string) (*entity.SubmissionRecord, error)
	LookupRejected(ctx context.Context, hash string) (*entity.SubmissionRecord, error)
}

// VerifierService implements VerifierServer. When Roots is non-empty, request
// paths must resolve inside one of them.
type VerifierService struct {
	verifier Verifier
	gate     Fingerprinter
	roots    []string
	logger   *slog.Logger
}

func NewVerifierService(v Verifier, gate Fingerprinter, roots []string, logger *slog.Logger) *VerifierService {
	if logger == nil {
		logger = slog.Default()
	}
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			clean = append(clean, abs)
		}
	}
	return &VerifierService{verifier: v, gate: gate, roots: clean, logger: logger}
}

func (s *VerifierService) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error) {
	path, err := s.checkPath(req.Path)
	if err != nil {
		s.logger.Error("verify request rejected", "path", req.Path, "error", err)
		return nil, common.ToStatus(err)
	}

	res, err := s.verifier.Verify(ctx, path)
	if err != nil {
		s.logger.Warn("verify failed", "path", path, "error", err)
		return nil, common.ToStatus(err)
	}
	audit, err := res.AuditJSON()
	if err != nil {
		s.logger.Error("audit serialization failed", "run_id", res.RunID, "error", err)
		return nil, common.InternalError("audit serialization failed")
	}

	return &VerifyResponse{
		RunID:             res.RunID,
		Status:            string(res.Verdict.Status),
		Mode:              string(res.Verdict.Mode),
		Reason:            res.Verdict.Reason,
		MatchedURL:        res.Verdict.MatchedURL,
		Fingerprint:       res.Fingerprint,
		VerificationToken: res.VerificationToken,
		Message:           res.PublicMessage(),
		AuditTrail:        audit,
		DurationMs:        res.Duration.Milliseconds(),
	}, nil
}

func (s *VerifierService) Fingerprint(ctx context.Context, req *FingerprintRequest) (*FingerprintResponse, error) {
	path, err := s.checkPath(req.Path)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	hash, err := s.gate.Fingerprint(path)
	if err != nil {
		return nil, common.ToStatus(err)
	}

	out := &FingerprintResponse{Fingerprint: hash}
	approved, err := s.gate.Lookup(ctx, hash)
	if err != nil {
		s.logger.Warn("fingerprint lookup failed", "fingerprint", hash, "error", err)
		return nil, common.ToStatus(err)
	}
	out.Approved = approved.AsPrior()
	if approved == nil {
		rejected, err := s.gate.LookupRejected(ctx, hash)
		if err != nil {
			return nil, common.ToStatus(err)
		}
		out.Rejected = rejected.AsPrior()
	}
	return out, nil
}

// checkPath validates a request path: present, an allowed document type,
// inside the configured roots and an existing regular file.
func (s *VerifierService) checkPath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", fmt.Errorf("path is required: %w", common.ErrInvalidInput)
	}
	if !ingest.AllowedExt(filepath.Ext(p)) {
		return "", fmt.Errorf("%s: %w", filepath.Ext(p), common.ErrUnsupportedFormat)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", common.ErrInvalidInput)
	}
	if len(s.roots) > 0 && !within(abs, s.roots) {
		return "", fmt.Errorf("path outside allowed roots: %w", common.ErrInvalidInput)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", p, common.ErrNotFound)
		}
		return "", fmt.Errorf("stat: %w", common.ErrUnreadable)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %w", common.ErrInvalidInput)
	}
	return abs, nil
}

func within(path string, roots []string) bool {
	for _, r := range roots {
		rel, err := filepath.Rel(r, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
