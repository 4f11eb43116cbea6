package feedback

// Entry - one human review of a generated artifact, keyed by the artifact
// base name (e.g. "PROD123_l101").
type Entry struct {
	ArtifactID    string   `yaml:"artifact_id" json:"artifact_id"`
	ProductID     string   `yaml:"product_id" json:"product_id"`
	ClassName     string   `yaml:"class_name,omitempty" json:"class_name,omitempty"`
	Rating        int      `yaml:"rating" json:"rating"`
	Approved      bool     `yaml:"approved" json:"approved"`
	Regenerate    bool     `yaml:"regenerate" json:"regenerate"`
	Issues        []string `yaml:"issues,omitempty" json:"issues,omitempty"`
	Suggestions   []string `yaml:"suggestions,omitempty" json:"suggestions,omitempty"`
	Notes         string   `yaml:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     string   `yaml:"created_at" json:"created_at"`
	RegeneratedAt string   `yaml:"regenerated_at,omitempty" json:"regenerated_at,omitempty"`
}

// Stats - aggregate counters over all feedback entries.
type Stats struct {
	Total         int     `yaml:"total" json:"total"`
	Approved      int     `yaml:"approved" json:"approved"`
	PendingRegen  int     `yaml:"pending_regen" json:"pending_regen"`
	Regenerated   int     `yaml:"regenerated" json:"regenerated"`
	AverageRating float64 `yaml:"average_rating" json:"average_rating"`
}
