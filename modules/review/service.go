package review

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact - one generated image and its companion files.
type Artifact struct {
	ID           string `json:"id"`
	ImagePath    string `json:"image_path"`
	MetadataPath string `json:"metadata_path,omitempty"`
	PreviewPath  string `json:"preview_path,omitempty"`
}

// listArtifacts - scan a tranche directory for generated images and pair
// each with its audit sidecar and webp preview when they exist.
func listArtifacts(outputBase, tranche string) ([]Artifact, error) {
	trancheDir := filepath.Join(outputBase, tranche)
	entries, err := os.ReadDir(trancheDir)
	if os.IsNotExist(err) {
		return []Artifact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tranche directory: %w", err)
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".jpg")

		artifact := Artifact{
			ID:        base,
			ImagePath: filepath.Join(trancheDir, entry.Name()),
		}

		metadataPath := filepath.Join(outputBase, "logs", tranche, base+".json")
		if _, err := os.Stat(metadataPath); err == nil {
			artifact.MetadataPath = metadataPath
		}
		previewPath := filepath.Join(outputBase, "previews", tranche, base+".webp")
		if _, err := os.Stat(previewPath); err == nil {
			artifact.PreviewPath = previewPath
		}

		artifacts = append(artifacts, artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].ID < artifacts[j].ID
	})
	return artifacts, nil
}
