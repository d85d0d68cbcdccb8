package hashgate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

const helloWorldSHA = "a591a6d40bf420404a011733cfb7b190d62c65bf0bcda32b57b277d9ad9f146e"

type memStore struct {
	records []entity.SubmissionRecord
	calls   int
	err     error
}

func (m *memStore) FindByHash(_ context.Context, hash string, statuses ...constants.SubmissionStatus) (*entity.SubmissionRecord, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.ContentHash != hash {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				return &r, nil
			}
		}
	}
	return nil, nil
}

func TestFingerprint(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(p, []byte("Hello World"), 0o644))

	got, err := Fingerprint(p)
	require.NoError(t, err)
	assert.Equal(t, helloWorldSHA, got)

	again, err := Fingerprint(p)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFingerprintMissingFile(t *testing.T) {
	got, err := Fingerprint(filepath.Join(t.TempDir(), "non_existent_file_12345.txt"))
	assert.ErrorIs(t, err, common.ErrUnreadable)
	assert.Empty(t, got)
}

func TestLookup(t *testing.T) {
	store := &memStore{records: []entity.SubmissionRecord{
		{ID: 1, OwnerID: "s1", ContentHash: helloWorldSHA, Status: constants.SubmissionRejected},
		{ID: 2, OwnerID: "s1", ContentHash: helloWorldSHA, Status: constants.SubmissionFacultyVerified},
		{ID: 3, OwnerID: "s2", ContentHash: helloWorldSHA, Status: constants.SubmissionPending},
	}}
	g := New(store, nil)

	rec, err := g.Lookup(context.Background(), helloWorldSHA)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.EqualValues(t, 2, rec.ID)

	rec, err = g.LookupRejected(context.Background(), helloWorldSHA)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.EqualValues(t, 1, rec.ID)

	rec, err = g.Lookup(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLookupPendingIsNotApproval(t *testing.T) {
	store := &memStore{records: []entity.SubmissionRecord{
		{ID: 3, ContentHash: helloWorldSHA, Status: constants.SubmissionPending},
	}}
	rec, err := New(store, nil).Lookup(context.Background(), helloWorldSHA)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLookupErrors(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	g := New(store, nil)

	_, err := g.Lookup(context.Background(), helloWorldSHA)
	assert.ErrorContains(t, err, "db down")

	_, err = g.Lookup(context.Background(), "not-a-hash")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, 1, store.calls)

	store.err = common.ErrNotFound
	rec, err := g.Lookup(context.Background(), helloWorldSHA)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNilStoreAlwaysMisses(t *testing.T) {
	rec, err := New(nil, nil).Lookup(context.Background(), helloWorldSHA)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}
