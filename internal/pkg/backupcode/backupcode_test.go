package backupcode

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeFormat = regexp.MustCompile(`^[` + alphabet + `]{5}-[` + alphabet + `]{5}$`)

func TestGenerate(t *testing.T) {
	codes, err := Generate(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Regexp(t, codeFormat, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical", "ABCDE-23456", "ABCDE23456"},
		{"lowercase", "abcde-23456", "ABCDE23456"},
		{"spaces", " ABCDE 23456 ", "ABCDE23456"},
		{"no separator", "ABCDE23456", "ABCDE23456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestHashAllAndMatch(t *testing.T) {
	codes, err := Generate(3)
	require.NoError(t, err)

	hashes, err := HashAll(codes)
	require.NoError(t, err)
	require.Len(t, hashes, 3)

	for i, code := range codes {
		assert.True(t, Match(code, hashes[i]))
	}

	corrupted := "X" + codes[0]
	assert.False(t, Match(corrupted, hashes[0]))
}

func TestConsume(t *testing.T) {
	codes, err := Generate(3)
	require.NoError(t, err)
	hashes, err := HashAll(codes)
	require.NoError(t, err)

	idx := Consume(codes[1], hashes)
	assert.Equal(t, 1, idx)

	// Removing the matched hash simulates marking it used; the same code
	// must never consume again.
	remaining := append(hashes[:idx:idx], hashes[idx+1:]...)
	assert.Equal(t, -1, Consume(codes[1], remaining))

	assert.Equal(t, -1, Consume("NOTAC-ODE99", hashes))
}
