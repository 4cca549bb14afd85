// ABOUTME: This file tests error kind classification and diagnostic body truncation
package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	apiErr := NewAPIError(ErrKindRateLimited, "list_products", 429, "rate limited", "")
	assert.Equal(t, ErrKindRateLimited, KindOf(apiErr))
	assert.Equal(t, ErrKindRateLimited, KindOf(fmt.Errorf("wrapped: %w", apiErr)))
	assert.Equal(t, ErrKindTransport, KindOf(errors.New("plain")))

	assert.True(t, IsKind(apiErr, ErrKindRateLimited))
	assert.False(t, IsKind(nil, ErrKindRateLimited))
}

func TestTruncateBody(t *testing.T) {
	short := strings.Repeat("a", maxErrorBodyBytes)
	assert.Equal(t, short, TruncateBody(short))

	long := strings.Repeat("b", maxErrorBodyBytes+100)
	assert.Len(t, TruncateBody(long), maxErrorBodyBytes)
}

func TestTruncateBody_NeverSplitsRunes(t *testing.T) {
	// 167 three-byte hangul runes make 501 bytes; a byte-wise cut at 500
	// would land mid-rune.
	body := strings.Repeat("가", 167)
	got := TruncateBody(body)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("가", 166), got)
}
