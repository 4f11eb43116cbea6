package governance

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// HumanPresencePolicy - who may appear in generated imagery.
// Allowed is one of "none", "hands_only", "silhouette", or a free-form value;
// Guidance carries optional free-text direction for the composer.
type HumanPresencePolicy struct {
	Allowed  string `yaml:"allowed"`
	Guidance string `yaml:"guidance"`
}

// UniversalRules - base layer applied to every product class.
type UniversalRules struct {
	NegativePrompts  []string            `yaml:"negative_prompts"`
	RequiredElements []string            `yaml:"required_elements"`
	FacePolicy       string              `yaml:"face_policy"`
	HumanPresence    HumanPresencePolicy `yaml:"human_presence"`
}

// ClassOverride - per-class extensions. Overrides extend, never remove.
type ClassOverride struct {
	AdditionalNegativePrompts  []string `yaml:"additional_negative_prompts"`
	AdditionalRequiredElements []string `yaml:"additional_required_elements"`
	PreferredElements          []string `yaml:"preferred_elements"`
}

// SceneTemplateSpec - scene templates for one category. Rule files come in
// two shapes: a legacy fixed lifestyle_1/lifestyle_2 pair, or a newer
// free-form options list. The shape is resolved once at load time.
type SceneTemplateSpec struct {
	Options    []string
	Lifestyle1 string
	Lifestyle2 string
}

// HasOptions - whether this category uses the option-list schema.
func (s *SceneTemplateSpec) HasOptions() bool {
	return len(s.Options) > 0
}

// Legacy - template for a variation under the old schema.
func (s *SceneTemplateSpec) Legacy(variation int) string {
	if variation == 2 {
		return s.Lifestyle2
	}
	return s.Lifestyle1
}

// UnmarshalYAML - resolve the template shape at load time instead of probing
// document structure on every call.
func (s *SceneTemplateSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Options    []string `yaml:"options"`
		Lifestyle1 string   `yaml:"lifestyle_1"`
		Lifestyle2 string   `yaml:"lifestyle_2"`
	}
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid scene template: %w", err)
	}
	s.Options = raw.Options
	s.Lifestyle1 = raw.Lifestyle1
	s.Lifestyle2 = raw.Lifestyle2
	return nil
}

// rulesFile - on-disk governance document.
type rulesFile struct {
	Universal        UniversalRules                `yaml:"universal"`
	ClassMapping     map[string]string             `yaml:"class_mapping"`
	SceneTemplates   map[string]*SceneTemplateSpec `yaml:"scene_templates"`
	ClassOverrides   map[string]ClassOverride      `yaml:"class_overrides"`
	QualityStandards []string                      `yaml:"quality_standards"`
}

// Refinement - feedback-driven additions for one scene category.
type Refinement struct {
	AddToRequired []string `yaml:"add_to_required"`
	AddToNegative []string `yaml:"add_to_negative"`
}

// ConstraintSet - compiled constraints for one product class.
// Recomputed on every request so feedback refinements are never stale.
type ConstraintSet struct {
	NegativePrompts  []string
	RequiredElements []string
	FacePolicy       string
	HumanPresence    HumanPresencePolicy
	QualityStandards []string

	// Downstream annotations, set by the orchestrator.
	SceneContext         []string
	SemanticRequirements map[string]bool
}
