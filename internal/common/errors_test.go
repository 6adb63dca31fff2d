package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestValidationErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("apply pricing: %w", NewValidationError("lineHours", nil, "provide hours for every labor line item"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "provide hours for every labor line item", UserMessage(err))
}

func TestModelOutputErrorKeepsCause(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewModelOutputError("could not read the drafted invoice", cause)
	assert.ErrorIs(t, err, ErrModelOutput)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not read the drafted invoice", UserMessage(err))
}

func TestToGRPCError(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{NewInputError("source text is required"), codes.InvalidArgument},
		{NewValidationError("x", nil, "bad"), codes.InvalidArgument},
		{NewNotFoundError("invoice not found"), codes.NotFound},
		{NewModelOutputError("bad json", nil), codes.Unavailable},
		{NewTimeoutError("parse: completion service timed out", context.DeadlineExceeded), codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, c := range cases {
		st, ok := status.FromError(ToGRPCError(c.err))
		assert.True(t, ok)
		assert.Equal(t, c.code, st.Code(), c.err.Error())
	}
	assert.NoError(t, ToGRPCError(nil))
}

func TestTimeoutErrorKeepsCause(t *testing.T) {
	err := NewTimeoutError("audit", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "audit", UserMessage(err))

	assert.ErrorIs(t, NewTimeoutError("audit", nil), ErrTimeout)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "save"))
	err := WrapError(ErrDatabase, "save")
	assert.ErrorIs(t, err, ErrDatabase)
	assert.Equal(t, "save: database error", err.Error())
}
