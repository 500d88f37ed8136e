package xidentity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	_, err := NewToken("", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewToken("abc", time.Now().Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidToken)

	exp := time.Now().Add(time.Hour)
	tok, err := NewToken("abc", exp)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.Value())
	assert.Equal(t, exp, tok.ExpiresAt())
	assert.False(t, tok.IssuedAt().IsZero())
	assert.False(t, tok.IsZero())
}

func TestToken_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	tok, err := newTokenAt("abc", now.Add(time.Minute), time.Time{}, now)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		skew time.Duration
		want bool
	}{
		{"well before", now, 30 * time.Second, false},
		{"inside skew", now.Add(31 * time.Second), 30 * time.Second, true},
		{"boundary is expired", now.Add(30 * time.Second), 30 * time.Second, true},
		{"just before boundary", now.Add(29 * time.Second), 30 * time.Second, false},
		{"after expiry", now.Add(2 * time.Minute), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.ExpiredAt(tt.at, tt.skew))
		})
	}

	assert.Equal(t, time.Minute, tok.TTL(now))
}

func TestToken_ZeroNeverExpires(t *testing.T) {
	var tok Token
	assert.True(t, tok.IsZero())
	assert.False(t, tok.ExpiredAt(time.Now().Add(1000*time.Hour), time.Hour))
	assert.Equal(t, time.Duration(0), tok.TTL(time.Now()))
	assert.Equal(t, "Token(none)", tok.String())
}

func TestToken_StringRedacts(t *testing.T) {
	tok, err := NewToken("super-secret-value", time.Now().Add(time.Hour))
	require.NoError(t, err)

	for _, s := range []string{tok.String(), fmt.Sprintf("%v", tok), fmt.Sprintf("%#v", tok), fmt.Sprintf("%s", tok)} {
		assert.NotContains(t, s, "super-secret-value")
	}
}
