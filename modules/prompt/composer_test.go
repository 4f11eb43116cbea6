package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-imagery-server/modules/catalog"
	"product-imagery-server/modules/governance"
	"product-imagery-server/modules/vision"
)

func testFeatures() *catalog.Features {
	return &catalog.Features{
		ProductName:      "Glock 19X: 9MM Luger",
		Brand:            "GLOCK",
		ClassDescription: "Handguns",
		Specifications: map[string]string{
			"Finish": "Coyote Tan",
			"Grip":   "Textured Polymer",
		},
	}
}

func testConstraints() *governance.ConstraintSet {
	return &governance.ConstraintSet{
		NegativePrompts:  []string{"no children or minors", "blurry"},
		RequiredElements: []string{"product in focus", "product fully visible and unobstructed"},
		FacePolicy:       "avoid_compositionally",
		HumanPresence: governance.HumanPresencePolicy{
			Allowed:  "none",
			Guidance: "",
		},
	}
}

func splitFeatures() *vision.VerifiedFeatureSet {
	return &vision.VerifiedFeatureSet{
		Visible: []vision.VerifiedFeature{
			{Attribute: "Finish", Value: "Coyote Tan", Verified: true},
		},
		Unverified: []vision.UnverifiedFeature{
			{Attribute: "Grip", Value: "Textured Polymer", Reason: vision.UnverifiedReason},
		},
		ImagesAnalyzed: 1,
	}
}

func TestUnverifiedValuesNeverInPositivePrompt(t *testing.T) {
	for _, profile := range []*StyleProfile{BaselineProfile(), EnhancedProfile()} {
		c := NewComposer(profile)
		p := c.Compose(testFeatures(), splitFeatures(), testConstraints(), SceneTemplate{Text: "on a workbench"}, 1)

		assert.NotContains(t, p.Positive, "Textured Polymer", profile.Name)
		assert.NotContains(t, strings.ToLower(p.Positive), "textured polymer", profile.Name)
		assert.Contains(t, strings.ToLower(p.Positive), "coyote tan", profile.Name)
	}
}

func TestBaselineDescription(t *testing.T) {
	c := NewComposer(BaselineProfile())
	p := c.Compose(testFeatures(), splitFeatures(), testConstraints(), SceneTemplate{Text: "on a workbench"}, 1)

	assert.Contains(t, p.Positive, "GLOCK Glock 19X with coyote tan")
	// Caliber suffix after the colon is dropped from the name.
	assert.NotContains(t, p.Positive, "9MM Luger")
	assert.NotContains(t, p.Positive, "IDENTITY LOCK")
	assert.Contains(t, p.Positive, "square format 1:1 aspect ratio")
	assert.Equal(t, "Glock 19X: 9MM Luger", p.ProductName)
}

func TestEnhancedIdentityLock(t *testing.T) {
	c := NewComposer(EnhancedProfile())
	p := c.Compose(testFeatures(), splitFeatures(), testConstraints(), SceneTemplate{Text: "on a workbench"}, 1)

	assert.Contains(t, p.Positive, "featuring coyote tan (as visible in reference)")
	assert.Contains(t, p.Positive, "IDENTITY LOCK")
	assert.Contains(t, p.Positive, "Grip", "unverified attribute named in the lock")
	assert.Contains(t, p.Positive, "The product has mass and weight")
	// Unverified attribute names fold into the negatives.
	assert.Contains(t, p.Negative, "invented grip")
}

func TestFaceAvoidanceSelection(t *testing.T) {
	constraints := testConstraints()
	constraints.HumanPresence = governance.HumanPresencePolicy{
		Allowed:  "hands_only",
		Guidance: "adult hands only, wrists down",
	}

	// Baseline prefers free-text policy guidance for hands_only.
	p := NewComposer(BaselineProfile()).Compose(testFeatures(), splitFeatures(), constraints, SceneTemplate{Text: "scene"}, 1)
	assert.Contains(t, p.Positive, "adult hands only, wrists down")

	// Enhanced always uses its phrase table.
	p = NewComposer(EnhancedProfile()).Compose(testFeatures(), splitFeatures(), constraints, SceneTemplate{Text: "scene"}, 1)
	assert.Contains(t, p.Positive, "Show only adult hands interacting with product")

	// Unknown policy falls back.
	constraints.HumanPresence = governance.HumanPresencePolicy{Allowed: "crowd"}
	p = NewComposer(BaselineProfile()).Compose(testFeatures(), splitFeatures(), constraints, SceneTemplate{Text: "scene"}, 1)
	assert.Contains(t, p.Positive, "compositionally avoiding face")
}

func TestContextualSceneEmbedding(t *testing.T) {
	options := []string{"heritage hunting cabin", "modern tactical range"}

	// Enhanced embeds the reasoning task with the option list.
	p := NewComposer(EnhancedProfile()).Compose(testFeatures(), splitFeatures(), testConstraints(), SceneTemplate{Options: options}, 1)
	assert.Contains(t, p.Positive, "CONTEXTUAL REASONING TASK")
	assert.Contains(t, p.Positive, "- heritage hunting cabin")
	assert.Contains(t, p.Positive, "Finish: Coyote Tan")

	// Baseline ignores options and uses the resolved text.
	p = NewComposer(BaselineProfile()).Compose(testFeatures(), splitFeatures(), testConstraints(), SceneTemplate{Text: "on a workbench", Options: options}, 1)
	assert.NotContains(t, p.Positive, "CONTEXTUAL REASONING TASK")
	assert.Contains(t, p.Positive, "on a workbench")
}

func TestSceneContextHints(t *testing.T) {
	constraints := testConstraints()
	constraints.SceneContext = []string{"scene staged at a scale that suits a compact handgun"}

	p := NewComposer(BaselineProfile()).Compose(testFeatures(), splitFeatures(), constraints, SceneTemplate{Text: "scene"}, 1)
	assert.Contains(t, p.Positive, "scene staged at a scale that suits a compact handgun")
}

func TestEmptySceneLeavesNoStraySeparators(t *testing.T) {
	for _, profile := range []*StyleProfile{BaselineProfile(), EnhancedProfile()} {
		c := NewComposer(profile)
		p := c.Compose(testFeatures(), splitFeatures(), testConstraints(), SceneTemplate{}, 1)

		assert.NotContains(t, p.Positive, ", ,", profile.Name)
		assert.NotContains(t, p.Positive, ",,", profile.Name)
	}
}

func TestNegativePromptDedupe(t *testing.T) {
	// "blurry" arrives from both governance and the standard list.
	p := NewComposer(BaselineProfile()).Compose(testFeatures(), splitFeatures(), testConstraints(), SceneTemplate{Text: "scene"}, 1)

	assert.Equal(t, 1, strings.Count(p.Negative, "blurry"))
	assert.Contains(t, p.Negative, "no children or minors")
	assert.Contains(t, p.Negative, "watermark")
}

func TestComposeBatch(t *testing.T) {
	scenes := map[string]SceneTemplate{
		"lifestyle_1": {Text: "workbench scene"},
		"lifestyle_2": {Text: "home safe scene"},
	}

	prompts := NewComposer(BaselineProfile()).ComposeBatch(testFeatures(), splitFeatures(), testConstraints(), scenes)
	require.Len(t, prompts, 2)
	assert.Equal(t, 1, prompts[0].Variation)
	assert.Equal(t, 2, prompts[1].Variation)
	assert.Contains(t, prompts[0].Positive, "workbench scene")
	assert.Contains(t, prompts[1].Positive, "home safe scene")
}

func TestRequiredElementsSelection(t *testing.T) {
	constraints := testConstraints()
	constraints.RequiredElements = []string{
		"secure storage context", // no product/focus keyword, skipped
		"product in focus",
		"product fully visible and unobstructed",
		"product is the hero of the image",
		"entire product visible in frame", // over the cap
	}

	p := NewComposer(BaselineProfile()).Compose(testFeatures(), splitFeatures(), constraints, SceneTemplate{Text: "scene"}, 1)
	assert.Contains(t, p.Positive, "product in focus")
	assert.Contains(t, p.Positive, "product fully visible and unobstructed")
	assert.Contains(t, p.Positive, "product is the hero of the image")
	assert.NotContains(t, p.Positive, "entire product visible in frame")
	assert.NotContains(t, p.Positive, "secure storage context")
}

func TestProfileFor(t *testing.T) {
	assert.Equal(t, "baseline", ProfileFor("v1").Name)
	assert.Equal(t, "enhanced", ProfileFor("v2").Name)
	assert.Equal(t, "baseline", ProfileFor("").Name)
}
