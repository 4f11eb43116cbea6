package vision

// UnverifiedReason - reason attached to attributes with no image evidence.
const UnverifiedReason = "not visible in analyzed images"

// VerifiedFeature - a specification attribute with image evidence.
type VerifiedFeature struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Verified  bool   `json:"verified"`
}

// UnverifiedFeature - a specification attribute with no image evidence.
// These must never be rendered; they are the anti-hallucination set.
type UnverifiedFeature struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Reason    string `json:"reason"`
}

// ImageAnalysis - raw vision output for one reference image.
type ImageAnalysis struct {
	URL         string `json:"url"`
	RawAnalysis string `json:"raw_analysis"`
}

// VerifiedFeatureSet - total, disjoint partition of a product's
// specification attributes into visible and unverified.
type VerifiedFeatureSet struct {
	Visible        []VerifiedFeature   `json:"visible_features"`
	Unverified     []UnverifiedFeature `json:"unverified_features"`
	Analyses       []ImageAnalysis     `json:"analyses,omitempty"`
	ImagesAnalyzed int                 `json:"image_count_analyzed"`
	NoImages       bool                `json:"no_images_available"`
}

// AuditVerdict - post-generation safety/physics checklist result.
type AuditVerdict struct {
	Safe      bool     `json:"safe"`
	PhysicsOK bool     `json:"physics_ok"`
	Issues    []string `json:"issues,omitempty"`
	// AssumedSafe marks a fail-open verdict: the audit call failed and the
	// image was waved through. Deliberate, but flagged for the audit trail.
	AssumedSafe bool `json:"assumed_safe,omitempty"`
}
