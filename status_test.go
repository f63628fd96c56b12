package vkf

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusStartsOK(t *testing.T) {
	s := NewStatus()
	assert.True(t, s.OK())
	assert.NoError(t, s.Err())
	assert.Equal(t, "OK", s.String())
}

func TestStatusFirstErrorSticks(t *testing.T) {
	s := NewStatus()
	first := errors.New("first failure")
	second := errors.New("second failure")

	require.Equal(t, first, s.fail(first))
	s.fail(second)

	assert.False(t, s.OK())
	assert.Equal(t, first, s.Err())
}

func TestStatusFailf(t *testing.T) {
	s := NewStatus()
	err := s.failf("bad size %d", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad size 7")
	assert.Equal(t, err, s.Err())
}

func TestStatusValidationErrorFlag(t *testing.T) {
	s := NewStatus()
	s.setValidationError()

	assert.False(t, s.OK())
	assert.True(t, s.ValidationErrorSeen())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "validation")
}

func TestStatusDirectErrorWinsOverValidation(t *testing.T) {
	s := NewStatus()
	direct := errors.New("direct failure")
	s.fail(direct)
	s.setValidationError()

	assert.Equal(t, direct, s.Err())
	assert.True(t, s.ValidationErrorSeen())
}
