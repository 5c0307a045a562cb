package token

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaque_LengthAndUniqueness(t *testing.T) {
	a, err := NewOpaque(20)
	require.NoError(t, err)
	b, err := NewOpaque(20)
	require.NoError(t, err)
	assert.Len(t, a, 40)
	assert.NotEqual(t, a, b)
}

func TestNewNumericCode_Shape(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 200; i++ {
		code, err := NewNumericCode(6)
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestNewNumericCode_RejectsNonPositive(t *testing.T) {
	_, err := NewNumericCode(0)
	assert.Error(t, err)
}

func TestDigest_Deterministic(t *testing.T) {
	assert.Equal(t, Digest("123456"), Digest("123456"))
	assert.NotEqual(t, Digest("123456"), Digest("123457"))
	assert.Len(t, Digest("x"), 64)
}
