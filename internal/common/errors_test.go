package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	assert.NoError(t, ToStatus(nil))

	cases := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("path is required: %w", ErrInvalidInput), codes.InvalidArgument},
		{fmt.Errorf(".docx: %w", ErrUnsupportedFormat), codes.InvalidArgument},
		{fmt.Errorf("a.pdf: %w", ErrNotFound), codes.NotFound},
		{fmt.Errorf("%w: permission denied", ErrUnreadable), codes.NotFound},
		{fmt.Errorf("verify: %w", context.Canceled), codes.Canceled},
		{errors.New("boom"), codes.Internal},
		{NewAppError("CONFIG_ERROR", "bad", ErrConfig), codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, status.Code(ToStatus(tc.err)), tc.err.Error())
	}
}

func TestAppError(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "read blocklist file", ErrNotFound)
	assert.Equal(t, "CONFIG_ERROR: read blocklist file: resource not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, "X: y", NewAppError("X", "y", nil).Error())
	assert.Nil(t, WrapError(nil, "ignored"))
	assert.True(t, errors.Is(WrapError(ErrInternal, "step"), ErrInternal))
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRequestID(context.Background(), "run-1")
	assert.Equal(t, "run-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	c, cancel := WithTimeout(ctx, 0)
	_, has := c.Deadline()
	assert.False(t, has)
	cancel()
	assert.Error(t, c.Err())

	c, cancel = WithTimeout(ctx, time.Minute)
	defer cancel()
	_, has = c.Deadline()
	assert.True(t, has)
	assert.Equal(t, "run-1", RequestIDFromContext(c))
}
