package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

// sha256("Hello World")
const helloHash = "a591a6d40bf420404a011733cfb7b190d62c65bf0bcda32b57b277d9ad9f146e"

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	v := viper.New()
	v.Set("database.dsn", filepath.Join(dir, "certverify.db"))
	v.Set("ocr.artifact_cache_dir", dir)
	cfg, err := common.LoadConfig(v)
	require.NoError(t, err)
	return cfg
}

func TestBuildHashFastPath(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	a, err := Build(ctx, testConfig(t), reg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Submissions.Insert(ctx, entity.SubmissionRecord{
		OwnerID: "student-1", Filename: "first.pdf", ContentHash: helloHash, Status: constants.SubmissionAutoVerified,
	}))

	doc := filepath.Join(t.TempDir(), "copy.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("Hello World"), 0o644))

	res, err := a.Processor.Verify(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, constants.VerdictAutoVerified, res.Verdict.Status)
	assert.Equal(t, constants.ModeHashMatch, res.Verdict.Mode)
	assert.Equal(t, constants.HashMatchReason, res.Verdict.Reason)
	require.NotNil(t, res.Verdict.Audit.HashMatch)
	assert.Equal(t, "student-1", res.Verdict.Audit.HashMatch.OwnerID)

	expected := `
# HELP certverify_hashgate_lookups_total Fingerprint lookups by result (hit, miss, error).
# TYPE certverify_hashgate_lookups_total counter
certverify_hashgate_lookups_total{result="hit"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "certverify_hashgate_lookups_total"))
}

func TestBuildUnsupportedDocumentIsPending(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t), nil, nil)
	require.NoError(t, err)
	defer a.Close()

	doc := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Certificate of Completion"), 0o644))

	res, err := a.Processor.Verify(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, constants.VerdictPending, res.Verdict.Status)
	assert.Equal(t, constants.ModeTextOnly, res.Verdict.Mode)
	assert.Nil(t, res.Verdict.MatchedURL)
	assert.NotEmpty(t, res.Verdict.Audit.Diagnostics)
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.LinkCheck.Workers = 0
	_, err := Build(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfig)
}
