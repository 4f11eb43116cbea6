package artifact

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"os"
	"path/filepath"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// previewQuality - lossy WebP quality for review thumbnails.
const previewQuality = 80.0

// writePreview - encode a WebP copy of the artifact under
// {outputBase}/previews/{tranche}/ for the review surface. Best-effort;
// the JPEG artifact is the source of truth.
func (w *Writer) writePreview(imageBytes []byte, tranche, baseFilename string) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, previewQuality)
	if err != nil {
		return "", fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return "", fmt.Errorf("failed to encode WebP: %w", err)
	}

	previewDir := filepath.Join(w.outputBase, "previews", tranche)
	if err := os.MkdirAll(previewDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}

	previewPath := filepath.Join(previewDir, baseFilename+".webp")
	if err := os.WriteFile(previewPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write preview: %w", err)
	}

	return previewPath, nil
}
