package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordMatcherTable(t *testing.T) {
	m := NewKeywordMatcher()

	corpus := "the slide has a matte black finish with a textured polymer grip, " +
		"front and rear sight posts visible, optic cut on the slide"

	assert.True(t, m.Matches("Finish", "Matte Black", corpus))
	assert.True(t, m.Matches("Grip", "Textured Polymer", corpus))
	assert.True(t, m.Matches("Frame Material", "Polymer", corpus))
	assert.True(t, m.Matches("Sights", "3-Dot Night Sights", corpus))
	assert.True(t, m.Matches("Optic Ready", "Yes", corpus))

	assert.False(t, m.Matches("Barrel Length", "4.02 in", "a product shot from the side"))
}

func TestKeywordMatcherValuePrefixFallback(t *testing.T) {
	m := NewKeywordMatcher()

	// No table entry: a short prefix of the value is the keyword.
	assert.True(t, m.Matches("Caliber", "9mm Luger", "chambered in 9mm luger"))
	assert.False(t, m.Matches("Caliber", "9mm Luger", "no mention of ammunition"))
	assert.False(t, m.Matches("Caliber", "", "anything"))
}
