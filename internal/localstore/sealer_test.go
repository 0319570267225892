package localstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer(t *testing.T) {
	s, err := NewSealer([]byte("secret"))
	require.NoError(t, err)

	plaintext := []byte(`{"content":"call Sam"}`)
	sealed, err := s.Seal("safety_plan", plaintext)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("call Sam")))

	got, err := s.Open("safety_plan", sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	again, err := s.Seal("safety_plan", plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")
}

func TestSealer_OpenFailures(t *testing.T) {
	s, err := NewSealer([]byte("secret"))
	require.NoError(t, err)
	sealed, err := s.Seal("safety_plan", []byte("plan"))
	require.NoError(t, err)

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xff

	tests := []struct {
		name   string
		key    string
		sealed []byte
	}{
		{"wrong key binding", "user_profile", sealed},
		{"tampered", "safety_plan", tampered},
		{"truncated", "safety_plan", sealed[:4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Open(tt.key, tt.sealed)
			assert.ErrorIs(t, err, ErrUnseal)
		})
	}
}

func TestNewSealer_EmptySecret(t *testing.T) {
	_, err := NewSealer(nil)
	assert.Error(t, err)
}
