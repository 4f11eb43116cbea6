package prompt

import (
	"fmt"
	"strings"

	"product-imagery-server/modules/catalog"
	"product-imagery-server/modules/governance"
	"product-imagery-server/modules/vision"
)

// describableAttributes - the attribute subset allowed into the product
// description. Everything else stays in the audit trail only.
var describableAttributes = map[string]bool{
	"Finish":         true,
	"Grip":           true,
	"Frame Material": true,
}

const (
	maxDescribedAttributes = 5
	maxRequiredElements    = 3
	maxLockedAttributes    = 5
	maxContextAttributes   = 8
)

// Composer - synthesizes positive/negative prompt pairs from verified
// features, compiled constraints, and a scene template. Behavior is driven
// entirely by the style profile.
type Composer struct {
	profile *StyleProfile
}

// NewComposer - composer for a style profile.
func NewComposer(profile *StyleProfile) *Composer {
	return &Composer{profile: profile}
}

// Profile - the active style profile.
func (c *Composer) Profile() *StyleProfile {
	return c.profile
}

// Compose - build one prompt pair. The positive prompt mentions only
// verified-visible attribute values; unverified values never appear in it.
func (c *Composer) Compose(
	features *catalog.Features,
	featureSet *vision.VerifiedFeatureSet,
	constraints *governance.ConstraintSet,
	scene SceneTemplate,
	variation int,
) *Prompt {
	productDesc := c.buildProductDescription(features, featureSet)
	faceStrategy := c.selectFaceAvoidance(constraints)
	sceneText := c.resolveScene(scene, features, featureSet)

	components := []string{
		c.profile.StylePrefix,
		"of " + productDesc,
		sceneText,
	}

	if len(constraints.SceneContext) > 0 {
		components = append(components, strings.Join(constraints.SceneContext, ", "))
	}

	if c.profile.PhysicsBlock != "" {
		components = append(components, c.profile.PhysicsBlock)
	}

	components = append(components, faceStrategy)

	if c.profile.IdentityLock {
		if lock := buildIdentityLock(featureSet); lock != "" {
			components = append(components, lock)
		}
	}

	if key := keyRequiredElements(constraints.RequiredElements); len(key) > 0 {
		components = append(components, strings.Join(key, ", "))
	}

	components = append(components, c.profile.QualitySuffix)

	// An absent scene or face phrase must not leave stray separators.
	filled := components[:0]
	for _, component := range components {
		if strings.TrimSpace(component) != "" {
			filled = append(filled, component)
		}
	}

	positive := strings.Join(filled, ", ") + ", square format 1:1 aspect ratio"

	return &Prompt{
		Positive:    positive,
		Negative:    c.buildNegativePrompt(constraints, featureSet),
		ProductName: productName(features),
		Variation:   variation,
	}
}

// ComposeBatch - exactly two prompts, one per lifestyle variation, from a
// {lifestyle_1, lifestyle_2} scene mapping.
func (c *Composer) ComposeBatch(
	features *catalog.Features,
	featureSet *vision.VerifiedFeatureSet,
	constraints *governance.ConstraintSet,
	scenes map[string]SceneTemplate,
) []*Prompt {
	prompts := make([]*Prompt, 0, 2)
	for variation := 1; variation <= 2; variation++ {
		scene := scenes[fmt.Sprintf("lifestyle_%d", variation)]
		prompts = append(prompts, c.Compose(features, featureSet, constraints, scene, variation))
	}
	return prompts
}

// buildProductDescription - brand + cleaned name + up to five visible
// attributes from the describable subset.
func (c *Composer) buildProductDescription(features *catalog.Features, featureSet *vision.VerifiedFeatureSet) string {
	var parts []string

	if features.Brand != "" && features.Brand != "Unknown" {
		parts = append(parts, features.Brand)
	}

	if name := features.ProductName; name != "" {
		// Drop the caliber suffix after the colon.
		parts = append(parts, strings.SplitN(name, ":", 2)[0])
	}

	var visibleAttrs []string
	for _, feat := range featureSet.Visible {
		if len(visibleAttrs) >= maxDescribedAttributes {
			break
		}
		if describableAttributes[feat.Attribute] && feat.Value != "" {
			visibleAttrs = append(visibleAttrs, strings.ToLower(feat.Value))
		}
	}

	if len(visibleAttrs) > 0 {
		joined := strings.Join(visibleAttrs, ", ")
		if c.profile.IdentityLock {
			parts = append(parts, fmt.Sprintf("featuring %s (as visible in reference)", joined))
		} else {
			parts = append(parts, "with "+joined)
		}
	}

	return strings.Join(parts, " ")
}

// selectFaceAvoidance - policy-driven compositional phrasing.
func (c *Composer) selectFaceAvoidance(constraints *governance.ConstraintSet) string {
	allowed := constraints.HumanPresence.Allowed
	if allowed == "" {
		allowed = "none"
	}

	if c.profile.PreferPolicyGuidance && allowed == "hands_only" && constraints.HumanPresence.Guidance != "" {
		return constraints.HumanPresence.Guidance
	}

	if phrase, ok := c.profile.FacePhrases[allowed]; ok {
		return phrase
	}
	return c.profile.FallbackFacePhrase
}

// resolveScene - scene text for the positive prompt. An option list is
// embedded as a contextual reasoning task when the profile supports it;
// otherwise the pre-resolved text is used as-is.
func (c *Composer) resolveScene(scene SceneTemplate, features *catalog.Features, featureSet *vision.VerifiedFeatureSet) string {
	if !c.profile.ContextualScenes || len(scene.Options) == 0 {
		return scene.Text
	}

	var optionLines []string
	for _, opt := range scene.Options {
		optionLines = append(optionLines, "- "+opt)
	}

	var attrSummary []string
	for _, feat := range featureSet.Visible {
		if len(attrSummary) >= maxContextAttributes {
			break
		}
		if feat.Attribute != "" && feat.Value != "" {
			attrSummary = append(attrSummary, fmt.Sprintf("%s: %s", feat.Attribute, feat.Value))
		}
	}
	attrsText := "standard product"
	if len(attrSummary) > 0 {
		attrsText = strings.Join(attrSummary, ", ")
	}

	return fmt.Sprintf(`
CONTEXTUAL REASONING TASK:
Product Attributes: %s
Product Class: %s
Brand: %s

Based on these attributes, select the SINGLE most appropriate setting from the following options:
%s

Example reasoning:
- If wood stock/heritage finish -> select Heritage/Western context
- If polymer/tactical -> select Tactical/Modern context
- If competition-grade -> select Range/Sport context

Render the scene using the context that best matches this product's aesthetic and intended use case.
`, attrsText, features.ClassDescription, features.Brand, strings.Join(optionLines, "\n"))
}

// buildNegativePrompt - deduplicated union of governance negatives and the
// profile's standard quality negatives. The enhanced profile additionally
// folds unverified attribute names in as implicit negatives.
func (c *Composer) buildNegativePrompt(constraints *governance.ConstraintSet, featureSet *vision.VerifiedFeatureSet) string {
	negatives := append([]string(nil), constraints.NegativePrompts...)
	negatives = append(negatives, c.profile.StandardNegatives...)

	if c.profile.IdentityLock {
		for _, feat := range featureSet.Unverified {
			if feat.Attribute != "" {
				negatives = append(negatives, "invented "+strings.ToLower(feat.Attribute))
			}
		}
	}

	seen := make(map[string]struct{}, len(negatives))
	out := negatives[:0]
	for _, n := range negatives {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	return strings.Join(out, ", ")
}

// buildIdentityLock - explicit instruction not to render attributes that
// lack image evidence.
func buildIdentityLock(featureSet *vision.VerifiedFeatureSet) string {
	var attrs []string
	for _, feat := range featureSet.Unverified {
		if len(attrs) >= maxLockedAttributes {
			break
		}
		if feat.Attribute != "" {
			attrs = append(attrs, feat.Attribute)
		}
	}
	if len(attrs) == 0 {
		return ""
	}
	return fmt.Sprintf(
		"IDENTITY LOCK: The following features from product specs are NOT visible in the reference images and MUST NOT be hallucinated: %s. Render only what is visible in the provided reference.",
		strings.Join(attrs, ", "))
}

// keyRequiredElements - the required phrases worth prompt space: those
// mentioning the product or focus, capped to avoid prompt bloat.
func keyRequiredElements(required []string) []string {
	var key []string
	for _, r := range required {
		if len(key) >= maxRequiredElements {
			break
		}
		lower := strings.ToLower(r)
		if strings.Contains(lower, "product") || strings.Contains(lower, "focus") {
			key = append(key, r)
		}
	}
	return key
}

// productName - display name for the prompt record.
func productName(features *catalog.Features) string {
	if features.ProductName != "" {
		return features.ProductName
	}
	return "Product"
}
