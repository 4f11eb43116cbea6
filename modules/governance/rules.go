package governance

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategory - fallback scene category when a class label is absent
// from class_mapping. The miss is always surfaced to callers: it indicates
// a governance gap, not a safe default.
const DefaultCategory = "handguns"

// Engine - compiles governance constraints per product class.
type Engine struct {
	rules rulesFile
}

// NewEngine - load the governance rules document. A missing or unreadable
// rules file is fatal: the pipeline must not generate without governance.
func NewEngine(rulesPath string) (*Engine, error) {
	data, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("governance rules not found: %w", err)
	}

	e := &Engine{}
	if err := yaml.Unmarshal(data, &e.rules); err != nil {
		return nil, fmt.Errorf("failed to parse governance rules: %w", err)
	}
	return e, nil
}

// SceneCategory - map a free-text class label to a scene-category key.
// Returns missing=true when the class has no mapping; callers must log it.
func (e *Engine) SceneCategory(classDescription string) (category string, missing bool) {
	if cat, ok := e.rules.ClassMapping[classDescription]; ok {
		return cat, false
	}
	if cat, ok := e.rules.ClassMapping[strings.ToLower(classDescription)]; ok {
		return cat, false
	}
	return DefaultCategory, true
}

// SceneTemplate - scene description for a class and variation (1 or 2).
// Categories with an options list pick uniformly at random; categories on
// the legacy schema fall back to the fixed lifestyle_{variation} pair.
func (e *Engine) SceneTemplate(classDescription string, variation int) string {
	category, _ := e.SceneCategory(classDescription)
	spec, ok := e.rules.SceneTemplates[category]
	if !ok || spec == nil {
		return ""
	}
	if spec.HasOptions() {
		return spec.Options[rand.Intn(len(spec.Options))]
	}
	return spec.Legacy(variation)
}

// SceneOptions - all scene options for a class, plus the class-missing flag.
// Empty when the category is on the legacy schema.
func (e *Engine) SceneOptions(classDescription string) ([]string, bool) {
	category, missing := e.SceneCategory(classDescription)
	spec, ok := e.rules.SceneTemplates[category]
	if !ok || spec == nil {
		return nil, missing
	}
	return spec.Options, missing
}

// CompileConstraints - merge universal rules, class overrides, and feedback
// refinements into a fresh ConstraintSet. Precedence: universal first, then
// class overrides (preferred elements fold into required), then refinements
// for the class's scene category. Lists are deduplicated by full phrase while
// preserving first-seen order.
func (e *Engine) CompileConstraints(classDescription string, refinements map[string]Refinement) *ConstraintSet {
	universal := e.rules.Universal

	cs := &ConstraintSet{
		NegativePrompts:  append([]string(nil), universal.NegativePrompts...),
		RequiredElements: append([]string(nil), universal.RequiredElements...),
		FacePolicy:       universal.FacePolicy,
		HumanPresence:    universal.HumanPresence,
		QualityStandards: append([]string(nil), e.rules.QualityStandards...),
	}
	if cs.FacePolicy == "" {
		cs.FacePolicy = "avoid_compositionally"
	}

	if override, ok := e.rules.ClassOverrides[classDescription]; ok {
		cs.NegativePrompts = append(cs.NegativePrompts, override.AdditionalNegativePrompts...)
		cs.RequiredElements = append(cs.RequiredElements, override.AdditionalRequiredElements...)
		cs.RequiredElements = append(cs.RequiredElements, override.PreferredElements...)
	}

	if len(refinements) > 0 {
		category, _ := e.SceneCategory(classDescription)
		if r, ok := refinements[category]; ok {
			cs.RequiredElements = append(cs.RequiredElements, r.AddToRequired...)
			cs.NegativePrompts = append(cs.NegativePrompts, r.AddToNegative...)
		}
		// The global bucket holds feedback from classes with no category
		// mapping; it applies to every product.
		if r, ok := refinements["global"]; ok && category != "global" {
			cs.RequiredElements = append(cs.RequiredElements, r.AddToRequired...)
			cs.NegativePrompts = append(cs.NegativePrompts, r.AddToNegative...)
		}
	}

	cs.NegativePrompts = dedupe(cs.NegativePrompts)
	cs.RequiredElements = dedupe(cs.RequiredElements)

	return cs
}

// ClassMapping - copy of the class label to category mapping.
func (e *Engine) ClassMapping() map[string]string {
	out := make(map[string]string, len(e.rules.ClassMapping))
	for k, v := range e.rules.ClassMapping {
		out[k] = v
	}
	return out
}

// FormatNegativePrompt - negative prompt string for the generation API.
func FormatNegativePrompt(cs *ConstraintSet) string {
	return strings.Join(cs.NegativePrompts, ", ")
}

// dedupe - remove exact duplicate phrases, keeping first-seen order.
// Comparison is on the full phrase string: "no human face" and
// "no human faces" are distinct rules.
func dedupe(phrases []string) []string {
	seen := make(map[string]struct{}, len(phrases))
	out := phrases[:0]
	for _, p := range phrases {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
