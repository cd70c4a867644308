package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinter_RoundTrip(t *testing.T) {
	m, err := NewMinter("secret", time.Hour)
	require.NoError(t, err)

	a, err := m.Mint("u1")
	require.NoError(t, err)
	b, err := m.Mint("u1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "tokens carry a unique jti")

	uid, err := m.parse(a)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestMinter_Rejects(t *testing.T) {
	m, err := NewMinter("secret", time.Hour)
	require.NoError(t, err)
	tok, err := m.Mint("u1")
	require.NoError(t, err)

	other, err := NewMinter("other-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.parse(tok)
	assert.Error(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.parse(tok)
	assert.Error(t, err)

	_, err = m.Mint("")
	assert.Error(t, err)
}

func TestNewMinter_RandomSecret(t *testing.T) {
	a, err := NewMinter("", 0)
	require.NoError(t, err)
	b, err := NewMinter("", 0)
	require.NoError(t, err)
	assert.Len(t, a.secret, 32)
	assert.NotEqual(t, a.secret, b.secret)
	assert.Equal(t, DefaultTTL, a.ttl)
}
