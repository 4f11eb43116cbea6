package prompt

// Prompt - one composed positive/negative pair for a generation attempt.
// Immutable once returned.
type Prompt struct {
	Positive    string `json:"positive_prompt"`
	Negative    string `json:"negative_prompt"`
	ProductName string `json:"product_name"`
	Variation   int    `json:"variation"`
}

// SceneTemplate - scene input for composition. Either a single resolved
// text, or a set of options the enhanced profile hands to the generator
// for contextual selection.
type SceneTemplate struct {
	Text    string
	Options []string
}

// StyleProfile - phrase tables and behavior switches distinguishing the
// baseline and enhanced composition strategies. Variant dispatch by data,
// not by parallel composer implementations.
type StyleProfile struct {
	Name string

	StylePrefix   string
	QualitySuffix string

	// PhysicsBlock grounds the product physically (contact shadows, single
	// light source, no floating). Empty for the baseline profile.
	PhysicsBlock string

	// FacePhrases keys the human-presence policy ("none", "hands_only",
	// "silhouette") to compositional avoidance phrasing. Unknown policies
	// use FallbackFacePhrase.
	FacePhrases        map[string]string
	FallbackFacePhrase string

	// PreferPolicyGuidance lets free-text guidance from the constraint set
	// override the hands_only table entry (baseline behavior).
	PreferPolicyGuidance bool

	// IdentityLock adds an explicit instruction not to render unverified
	// attributes, and folds their names into the negative prompt.
	IdentityLock bool

	// ContextualScenes embeds a scene option list into the prompt and asks
	// the generator itself to pick the best match.
	ContextualScenes bool

	StandardNegatives []string

	// Generation-side behavior carried with the composition strategy.
	ReferenceImageCap      int
	SeparateNegativePrompt bool
	UseSystemInstruction   bool
}

// BaselineProfile - the v1 composition strategy: concise commercial
// photography phrasing, two reference images, separate negative prompt.
func BaselineProfile() *StyleProfile {
	return &StyleProfile{
		Name:          "baseline",
		StylePrefix:   "Professional commercial product photography",
		QualitySuffix: "ultra high resolution, photorealistic, studio quality, sharp focus on product",
		FacePhrases: map[string]string{
			"none":       "product displayed without human presence, static presentation",
			"hands_only": "hands interacting with product, never above wrist, no distinctive features",
			"silhouette": "silhouette of person in background, face not visible, backlighting",
		},
		FallbackFacePhrase:   "product as primary focus, any human elements compositionally avoiding face",
		PreferPolicyGuidance: true,
		StandardNegatives: []string{
			"blurry",
			"low resolution",
			"watermark",
			"text overlay",
			"logo overlay",
			"artificial looking",
			"CGI render",
			"floating product",
			"incorrect proportions",
			"distorted",
		},
		ReferenceImageCap:      2,
		SeparateNegativePrompt: true,
	}
}

// EnhancedProfile - richer photographic language, identity locking,
// physics grounding, contextual scene selection, negatives embedded in the
// main prompt, up to 14 reference images, system instruction enabled.
func EnhancedProfile() *StyleProfile {
	return &StyleProfile{
		Name:          "enhanced",
		StylePrefix:   "Ultra-high-end commercial product photography, captured with a 100mm f/2.8 macro lens",
		QualitySuffix: "sharp focus on product, shallow depth of field with bokeh background, " +
			"professional studio lighting with softbox key light at 45 degrees, " +
			"subtle fill light, photorealistic rendering, 8K resolution quality, " +
			"slight film grain for authenticity, no plastic or CGI look",
		PhysicsBlock: "The product has mass and weight. " +
			"Render realistic contact shadows where the product meets the surface. " +
			"The bottom of the product should interact with the surface texture naturally. " +
			"The product must be grounded, not floating. " +
			"Lighting and shadows must be consistent with a single light source.",
		FacePhrases: map[string]string{
			"none":       "product displayed without human presence, static presentation",
			"hands_only": "Show only adult hands interacting with product if needed, never above wrist, no jewelry or distinctive features, no fingernails visible",
			"silhouette": "silhouette of adult person in background, face completely hidden, backlighting only",
		},
		FallbackFacePhrase: "product as primary focus, any human elements compositionally avoiding face",
		IdentityLock:       true,
		ContextualScenes:   true,
		StandardNegatives: []string{
			"blurry",
			"low resolution",
			"watermark",
			"text overlay",
			"logo overlay",
			"artificial looking",
			"CGI render",
			"floating product",
			"incorrect proportions",
			"distorted",
			"plastic looking",
			"oversaturated",
			"unnatural lighting",
		},
		ReferenceImageCap:      14,
		SeparateNegativePrompt: false,
		UseSystemInstruction:   true,
	}
}

// ProfileFor - profile for a configured engine version.
func ProfileFor(engineVersion string) *StyleProfile {
	if engineVersion == "v2" {
		return EnhancedProfile()
	}
	return BaselineProfile()
}
