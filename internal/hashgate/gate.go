// Package hashgate fingerprints uploaded documents and looks the fingerprint
// up among previously reviewed submissions.
package hashgate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

// Store is the read side of the external submission-record store.
type Store interface {
	// FindByHash returns the most recent submission with the given content
	// hash and one of statuses, or (nil, nil) when there is none.
	FindByHash(ctx context.Context, hash string, statuses ...constants.SubmissionStatus) (*entity.SubmissionRecord, error)
}

type Gate struct {
	store  Store
	logger *slog.Logger
}

// New builds a gate over store. A nil store disables lookups; every
// fingerprint is then a miss.
func New(store Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, logger: logger}
}

// Fingerprint is the hex SHA-256 of the file's raw bytes, streamed.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUnreadable, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hash %s: %v", common.ErrUnreadable, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint is the package-level Fingerprint.
func (g *Gate) Fingerprint(path string) (string, error) {
	return Fingerprint(path)
}

// Lookup returns a prior approved submission with this fingerprint.
func (g *Gate) Lookup(ctx context.Context, hash string) (*entity.SubmissionRecord, error) {
	return g.find(ctx, hash, constants.ApprovedStatuses)
}

// LookupRejected returns a prior rejected submission with this fingerprint.
func (g *Gate) LookupRejected(ctx context.Context, hash string) (*entity.SubmissionRecord, error) {
	return g.find(ctx, hash, constants.RejectedStatuses)
}

func (g *Gate) find(ctx context.Context, hash string, statuses []constants.SubmissionStatus) (*entity.SubmissionRecord, error) {
	if g.store == nil {
		return nil, nil
	}
	if !validHash(hash) {
		return nil, fmt.Errorf("%w: fingerprint must be 64 lowercase hex chars", common.ErrInvalidInput)
	}
	rec, err := g.store.FindByHash(ctx, hash, statuses...)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	if rec != nil {
		g.logger.Info("hashgate.hit", "hash", hash, "submission_id", rec.ID, "status", rec.Status)
	}
	return rec, nil
}

func validHash(h string) bool {
	if len(h) != sha256.Size*2 {
		return false
	}
	for _, c := range h {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
