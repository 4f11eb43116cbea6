package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAnalyzer() *Analyzer {
	return &Analyzer{matcher: NewKeywordMatcher(), maxImages: 2}
}

func TestAnalyzeNoReferenceImages(t *testing.T) {
	specs := map[string]string{
		"Finish": "Matte Black",
		"Grip":   "Textured",
	}

	set := testAnalyzer().AnalyzeReferenceImages(context.Background(), nil, specs)

	assert.True(t, set.NoImages)
	assert.Empty(t, set.Visible)
	require.Len(t, set.Unverified, 2)
	for _, feat := range set.Unverified {
		assert.Equal(t, UnverifiedReason, feat.Reason)
	}
}

func TestPartitionTotalAndDisjoint(t *testing.T) {
	specs := map[string]string{
		"Finish":        "Matte Black",
		"Grip":          "Textured",
		"Barrel Length": "4.02 in",
		"Caliber":       "9mm Luger",
	}

	set := &VerifiedFeatureSet{
		Analyses: []ImageAnalysis{
			{URL: "a.jpg", RawAnalysis: "Matte BLACK slide, heavily textured grip panels"},
		},
	}
	testAnalyzer().partition(set, specs)

	seen := map[string]int{}
	for _, feat := range set.Visible {
		seen[feat.Attribute]++
		assert.True(t, feat.Verified)
	}
	for _, feat := range set.Unverified {
		seen[feat.Attribute]++
		assert.Equal(t, UnverifiedReason, feat.Reason)
	}

	// Every attribute classified exactly once.
	require.Len(t, seen, len(specs))
	for attr, count := range seen {
		assert.Equalf(t, 1, count, "attribute %s classified %d times", attr, count)
	}

	// Evidence matching is case-folded.
	assert.Len(t, set.Visible, 2)
	assert.Len(t, set.Unverified, 2)
}

func TestExtractJSON(t *testing.T) {
	text := "Here is the verdict:\n```json\n{\"safe\": true}\n```"
	assert.Equal(t, `{"safe": true}`, extractJSON(text))

	assert.Equal(t, `{"a":1}`, extractJSON(`prefix {"a":1} suffix`))
	// No braces: the text passes through for the caller's parser to reject.
	assert.Equal(t, "no json here", extractJSON("no json here"))
}
