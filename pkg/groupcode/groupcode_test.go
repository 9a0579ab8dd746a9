package groupcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextShapes(t *testing.T) {
	cases := []struct {
		sequence int
		want     string
	}{
		{1, "A1"},
		{2, "B2"},
		{9, "I9"},
		{10, "A10"},
		{35, "A35"},
		{36, "B10"},
		{61, "B35"},
		{62, "C10"},
		{1000, "AA01"},
		{1001, "AA02"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Next(tc.sequence), "sequence %d", tc.sequence)
	}
}

func TestNextDeterministic(t *testing.T) {
	for seq := 1; seq <= 2000; seq++ {
		require.Equal(t, Next(seq), Next(seq))
	}
}

func TestNextUniqueOverRange(t *testing.T) {
	seen := make(map[string]int)
	for seq := 1; seq <= 5000; seq++ {
		code := Next(seq)
		require.NotEmpty(t, code)
		if prev, ok := seen[code]; ok {
			t.Fatalf("code %q issued for both sequence %d and %d", code, prev, seq)
		}
		seen[code] = seq
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "A10", Normalize(" a10 "))
	assert.Equal(t, "B2", Normalize("b2"))
}

func TestNextClampsBelowOne(t *testing.T) {
	assert.Equal(t, "A1", Next(0))
	assert.Equal(t, "A1", Next(-5))
}
