package utils

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewBookingReference(t *testing.T) {
    seen := make(map[string]bool)
    for i := 0; i < 100; i++ {
        ref, err := NewBookingReference()
        require.NoError(t, err)
        require.Len(t, ref, len("TKT-")+8)
        assert.True(t, strings.HasPrefix(ref, "TKT-"), "reference %q", ref)
        for _, c := range ref[4:] {
            assert.Contains(t, referenceAlphabet, string(c), "reference %q", ref)
        }
        assert.False(t, seen[ref], "duplicate reference %q in 100 draws", ref)
        seen[ref] = true
    }
}

func TestNewInviteCode(t *testing.T) {
    code, err := NewInviteCode()
    require.NoError(t, err)
    require.Len(t, code, len("GRP-")+6)
    assert.True(t, strings.HasPrefix(code, "GRP-"), "code %q", code)
    for _, c := range code[4:] {
        assert.Contains(t, referenceAlphabet, string(c), "code %q", code)
    }
}

func TestReferenceAlphabetHasNoAmbiguousCharacters(t *testing.T) {
    for _, c := range "01OIL" {
        assert.NotContains(t, referenceAlphabet, string(c))
    }
}
