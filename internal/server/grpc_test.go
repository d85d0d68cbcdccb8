package server

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/decision"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/hashgate"
	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
)

// sha256("Hello World")
const helloHash = "a591a6d40bf420404a011733cfb7b190d62c65bf0bcda32b57b277d9ad9f146e"

type fakeVerifier struct {
	calls []string
	err   error
}

func (f *fakeVerifier) Verify(_ context.Context, path string) (pipeline.Result, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	code := 200
	return pipeline.Result{
		RunID:       "run-1",
		Path:        path,
		Fingerprint: helloHash,
		Verdict: decision.Evaluate([]entity.LinkCheckResult{{
			URL: "https://issuer.edu/verify/123", Reachable: true, NameMatch: true, StatusCode: &code,
		}}, nil),
		VerificationToken: "tok",
	}, nil
}

type memStore map[string]*entity.SubmissionRecord

func (m memStore) FindByHash(_ context.Context, hash string, statuses ...constants.SubmissionStatus) (*entity.SubmissionRecord, error) {
	rec, ok := m[hash]
	if !ok {
		return nil, nil
	}
	for _, s := range statuses {
		if rec.Status == s {
			return rec, nil
		}
	}
	return nil, nil
}

func startServer(t *testing.T, svc VerifierServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGRPCServer(svc, nil)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeDoc(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("Hello World"), 0o644))
	return p
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "cert.pdf")
	fv := &fakeVerifier{}
	svc := NewVerifierService(fv, hashgate.New(nil, nil), nil, nil)
	client := NewVerifierClient(startServer(t, svc))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Verify(ctx, &VerifyRequest{Path: doc})
	require.NoError(t, err)
	assert.Equal(t, []string{doc}, fv.calls)
	assert.Equal(t, "auto_verified", resp.Status)
	assert.Equal(t, "link_only", resp.Mode)
	require.NotNil(t, resp.MatchedURL)
	assert.Equal(t, "https://issuer.edu/verify/123", *resp.MatchedURL)
	assert.Equal(t, pipeline.MessageVerified, resp.Message)
	assert.Equal(t, "tok", resp.VerificationToken)

	var audit entity.AuditTrail
	require.NoError(t, json.Unmarshal(resp.AuditTrail, &audit))
	assert.Equal(t, []string{"https://issuer.edu/verify/123"}, audit.CheckedURLs)
}

func TestVerifyRejectsBadPaths(t *testing.T) {
	dir := t.TempDir()
	outside := writeDoc(t, t.TempDir(), "other.pdf")
	fv := &fakeVerifier{}
	svc := NewVerifierService(fv, hashgate.New(nil, nil), []string{dir}, nil)
	client := NewVerifierClient(startServer(t, svc))
	ctx := context.Background()

	cases := []struct {
		path string
		code codes.Code
	}{
		{"", codes.InvalidArgument},
		{filepath.Join(dir, "notes.txt"), codes.InvalidArgument},
		{outside, codes.InvalidArgument},
		{filepath.Join(dir, "missing.pdf"), codes.NotFound},
	}
	for _, tc := range cases {
		_, err := client.Verify(ctx, &VerifyRequest{Path: tc.path})
		require.Error(t, err, tc.path)
		assert.Equal(t, tc.code, status.Code(err), tc.path)
	}
	assert.Empty(t, fv.calls)
}

func TestVerifyCanceled(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "cert.png")
	svc := NewVerifierService(&fakeVerifier{err: context.Canceled}, hashgate.New(nil, nil), nil, nil)
	client := NewVerifierClient(startServer(t, svc))

	_, err := client.Verify(context.Background(), &VerifyRequest{Path: doc})
	require.Error(t, err)
	assert.Equal(t, codes.Canceled, status.Code(err))
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "cert.jpg")
	reviewer := "prof-1"
	store := memStore{helloHash: {
		ID: 7, OwnerID: "student-1", Filename: "first.jpg", ContentHash: helloHash,
		Status: constants.SubmissionFacultyVerified, ReviewerID: &reviewer,
	}}
	svc := NewVerifierService(&fakeVerifier{}, hashgate.New(store, nil), nil, nil)
	client := NewVerifierClient(startServer(t, svc))

	resp, err := client.Fingerprint(context.Background(), &FingerprintRequest{Path: doc})
	require.NoError(t, err)
	assert.Equal(t, helloHash, resp.Fingerprint)
	require.NotNil(t, resp.Approved)
	assert.Equal(t, "student-1", resp.Approved.OwnerID)
	assert.Equal(t, "prof-1", resp.Approved.ReviewerID)
	assert.Nil(t, resp.Rejected)

	store[helloHash].Status = constants.SubmissionRejected
	resp, err = client.Fingerprint(context.Background(), &FingerprintRequest{Path: doc})
	require.NoError(t, err)
	assert.Nil(t, resp.Approved)
	require.NotNil(t, resp.Rejected)
	assert.Equal(t, "rejected", resp.Rejected.Status)
}

func TestHealth(t *testing.T) {
	conn := startServer(t, NewVerifierService(&fakeVerifier{}, hashgate.New(nil, nil), nil, nil))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
