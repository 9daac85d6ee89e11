package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePassphrase(t *testing.T) {
	gen := NewPassphraseGenerator(testPolicy())

	for i := 0; i < 50; i++ {
		passphrase, err := gen.Generate()
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(passphrase), passphraseMinLen)
		assert.LessOrEqual(t, len(passphrase), passphraseMaxLen)
		assert.LessOrEqual(t, longestRepeatRun(passphrase), 2)

		result := testPolicy().EvaluateMandatory(passphrase)
		assert.True(t, result.OK, "violations: %v", result.Violations)
	}
}

func TestGenerateUsesUnambiguousAlphabet(t *testing.T) {
	gen := NewPassphraseGenerator(testPolicy())

	passphrase, err := gen.Generate()
	require.NoError(t, err)

	for _, c := range passphrase {
		assert.True(t, strings.ContainsRune(passphraseAlphabet, c), "unexpected character %q", c)
	}
	for _, banned := range "0O1lI" {
		assert.NotContains(t, passphrase, string(banned))
	}
}

func TestGenerateIsRandom(t *testing.T) {
	gen := NewPassphraseGenerator(testPolicy())

	first, err := gen.Generate()
	require.NoError(t, err)
	second, err := gen.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStripRepeats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"aabbcc", "aabbcc"},
		{"aaabbbccc", "aabbcc"},
		{"aaaaa", "aa"},
		{"xyzzzy", "xyzzy"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripRepeats(tt.in, 2), "input %q", tt.in)
	}
}
