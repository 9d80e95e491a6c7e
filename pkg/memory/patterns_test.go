package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPatterns(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{"fire keyword", "the flame would not go out", []string{"fire"}},
		{"stemmed match", "everything is shifting toward clarity", []string{"transformation", "insight"}},
		{"multiple families", "burning water under a clear sky", []string{"fire", "water", "air"}},
		{"case insensitive", "RIVER and STONE", []string{"water", "earth"}},
		{"word boundary", "confirewall setting", nil},
		{"no match", "bought groceries and paid rent", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detectPatterns(tc.content))
		})
	}
}

func TestMergePatterns(t *testing.T) {
	t.Run("appends new labels in order", func(t *testing.T) {
		got := mergePatterns([]string{"fire"}, []string{"water", "air"})
		assert.Equal(t, []string{"fire", "water", "air"}, got)
	})

	t.Run("duplicates are not reinserted or reordered", func(t *testing.T) {
		got := mergePatterns([]string{"fire", "water"}, []string{"water", "fire", "earth"})
		assert.Equal(t, []string{"fire", "water", "earth"}, got)
	})

	t.Run("overflow evicts the oldest", func(t *testing.T) {
		existing := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
		got := mergePatterns(existing, []string{"k"})
		assert.Len(t, got, maxRecentPatterns)
		assert.Equal(t, "b", got[0])
		assert.Equal(t, "k", got[maxRecentPatterns-1])
	})
}
