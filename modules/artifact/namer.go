package artifact

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"product-imagery-server/modules/common/config"
)

// Writer - persists generated artifacts under a collision-free identity.
// Images land in {outputBase}/{tranche}/; audit sidecars mirror the same
// relative path under {outputBase}/logs/ so batch directories stay
// uncluttered while tooling can correlate the two by filename stem.
type Writer struct {
	outputBase    string
	model         string
	engineVersion string
	aspectRatio   string
	imageSize     string
	counterStart  int
	counterMax    int

	mirror *Mirror
}

// SaveResult - where one artifact and its audit twin were written.
type SaveResult struct {
	ImagePath    string
	MetadataPath string
	PreviewPath  string
	Counter      int
}

// NewWriter - artifact writer for the configured output tree.
func NewWriter(cfg *config.Config, engineVersion string) *Writer {
	w := &Writer{
		outputBase:    cfg.OutputBase,
		model:         cfg.ImageModel,
		engineVersion: engineVersion,
		aspectRatio:   cfg.AspectRatio,
		imageSize:     cfg.ImageSize,
		counterStart:  cfg.CounterStart,
		counterMax:    cfg.CounterMax,
	}
	if cfg.MirrorEnabled() {
		w.mirror = NewMirror(cfg)
	}
	return w
}

// NextCounter - smallest unused counter in the configured window for a
// product within a batch directory. Recomputed from the directory listing
// on every call so concurrent writers (a review UI regenerating while a
// batch runs) cannot collide. When the window is exhausted the counter
// overflows to max(existing)+1; the scan covers every existing counter,
// not just the window, so overflow never lands on a taken name. The
// filename stays collision-free either way; never overwriting an existing
// artifact is the hard invariant.
func (w *Writer) NextCounter(batchDir, productID string) int {
	existing := w.existingCounters(batchDir, productID)

	for counter := w.counterStart; counter <= w.counterMax; counter++ {
		if _, taken := existing[counter]; !taken {
			return counter
		}
	}

	maxSeen := 0
	for counter := range existing {
		if counter > maxSeen {
			maxSeen = counter
		}
	}
	if maxSeen == 0 {
		return w.counterStart
	}
	return maxSeen + 1
}

// existingCounters - counters already used by {productID}_l{N}.jpg files.
func (w *Writer) existingCounters(batchDir, productID string) map[int]struct{} {
	existing := map[int]struct{}{}

	entries, err := os.ReadDir(batchDir)
	if err != nil {
		return existing
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(productID) + `_l(\d+)\.jpg$`)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		existing[n] = struct{}{}
	}
	return existing
}

// Save - persist the image and its JSON audit sidecar. An artifact only
// counts as generated once both files are durably written; a sidecar write
// failure removes the image again so there are no silent partial writes.
func (w *Writer) Save(
	imageBytes []byte,
	tranche string,
	productID string,
	positivePrompt string,
	negativePrompt string,
	metadata map[string]any,
) (*SaveResult, error) {
	trancheDir := filepath.Join(w.outputBase, tranche)
	if err := os.MkdirAll(trancheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	logsDir := filepath.Join(w.outputBase, "logs", tranche)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	counter := w.NextCounter(trancheDir, productID)

	baseFilename := fmt.Sprintf("%s_l%d", productID, counter)
	imagePath := filepath.Join(trancheDir, baseFilename+".jpg")
	metadataPath := filepath.Join(logsDir, baseFilename+".json")

	if err := os.WriteFile(imagePath, imageBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	auditData := map[string]any{
		"cupid_name":     productID,
		"tranche":        tranche,
		"counter":        counter,
		"image_file":     baseFilename + ".jpg",
		"generated_at":   time.Now().Format(time.RFC3339),
		"model":          w.model,
		"engine_version": w.engineVersion,
		"aspect_ratio":   w.aspectRatio,
		"image_size":     w.imageSize,
		"prompts": map[string]string{
			"positive": positivePrompt,
			"negative": negativePrompt,
		},
	}
	for k, v := range metadata {
		auditData[k] = v
	}

	sidecar, err := json.MarshalIndent(auditData, "", "  ")
	if err != nil {
		os.Remove(imagePath)
		return nil, fmt.Errorf("failed to encode audit metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, sidecar, 0o644); err != nil {
		os.Remove(imagePath)
		return nil, fmt.Errorf("failed to write audit metadata: %w", err)
	}

	result := &SaveResult{
		ImagePath:    imagePath,
		MetadataPath: metadataPath,
		Counter:      counter,
	}

	// Preview and mirror are best-effort extras for the review surface;
	// their failures never undo a completed save.
	if previewPath, err := w.writePreview(imageBytes, tranche, baseFilename); err != nil {
		log.Printf("⚠️  Preview generation failed for %s: %v", baseFilename, err)
	} else {
		result.PreviewPath = previewPath
	}

	if w.mirror != nil {
		if err := w.mirror.Upload(imagePath, tranche, productID, counter, sidecar); err != nil {
			log.Printf("⚠️  Artifact mirror upload failed for %s: %v", baseFilename, err)
		}
	}

	log.Printf("✅ Saved artifact: %s (audit: %s)", imagePath, metadataPath)
	return result, nil
}
