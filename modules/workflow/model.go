package workflow

import (
	"context"

	"product-imagery-server/modules/prompt"
	"product-imagery-server/modules/vision"
)

// Generator - image generation capability. Satisfied by generate.Client in
// production and by fakes in tests.
type Generator interface {
	Generate(ctx context.Context, positive, negative string, referenceImages [][]byte) ([]byte, error)
}

// Options - per-run switches.
type Options struct {
	// SkipVerification trusts catalog specifications instead of gating them
	// through vision analysis. All attributes are treated as visible.
	SkipVerification bool
	// SkipAudit disables the post-generation safety check.
	SkipAudit bool
}

// GeneratedImage - one saved artifact within a run.
type GeneratedImage struct {
	Variation    int                  `json:"variation"`
	Counter      int                  `json:"counter"`
	ImagePath    string               `json:"image_path"`
	MetadataPath string               `json:"metadata_path"`
	PreviewPath  string               `json:"preview_path,omitempty"`
	Audit        *vision.AuditVerdict `json:"audit,omitempty"`
}

// RunResult - outcome of a single-product pipeline run. A run succeeds when
// at least one variation produced a saved image.
type RunResult struct {
	ProductID   string                     `json:"product_id"`
	ProductName string                     `json:"product_name"`
	Tranche     string                     `json:"tranche"`
	Images      []GeneratedImage           `json:"images"`
	Prompts     []*prompt.Prompt           `json:"prompts"`
	Errors      []string                   `json:"errors,omitempty"`
	Identity    *vision.VerifiedFeatureSet `json:"identity,omitempty"`
}

// Success - at least one variation was saved.
func (r *RunResult) Success() bool {
	return len(r.Images) > 0
}

// BatchResult - tallies for a multi-product run.
type BatchResult struct {
	Requested int          `json:"requested"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []*RunResult `json:"results"`
	Errors    []string     `json:"errors,omitempty"`
}
