package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/supabase-community/supabase-go"

	"product-imagery-server/modules/common/config"
)

// Mirror - optional off-box copy of generated artifacts. Uploads the JPEG
// to Supabase storage and records an index row so remote reviewers can
// browse a batch without filesystem access. A mirror failure never fails
// a save; the local tree remains the source of truth.
type Mirror struct {
	client     *supabase.Client
	baseURL    string
	serviceKey string
	bucket     string
}

// NewMirror - mirror client from config; nil when the client cannot be built.
func NewMirror(cfg *config.Config) *Mirror {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("⚠️  Failed to create Supabase client, mirror disabled: %v", err)
		return nil
	}

	log.Printf("✅ Artifact mirror enabled (bucket: %s)", cfg.MirrorBucket)
	return &Mirror{
		client:     client,
		baseURL:    cfg.SupabaseURL,
		serviceKey: cfg.SupabaseServiceKey,
		bucket:     cfg.MirrorBucket,
	}
}

// Upload - push one artifact and its audit sidecar, then index the pair.
func (m *Mirror) Upload(imagePath, tranche, productID string, counter int, sidecar []byte) error {
	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read artifact for mirroring: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	remoteImage := fmt.Sprintf("%s/%s_l%d.jpg", tranche, productID, counter)
	if err := m.uploadObject(ctx, remoteImage, "image/jpeg", imageBytes); err != nil {
		return err
	}

	remoteSidecar := fmt.Sprintf("logs/%s/%s_l%d.json", tranche, productID, counter)
	if err := m.uploadObject(ctx, remoteSidecar, "application/json", sidecar); err != nil {
		return err
	}

	indexRow := map[string]any{
		"cupid_name":   productID,
		"tranche":      tranche,
		"counter":      counter,
		"image_path":   remoteImage,
		"sidecar_path": remoteSidecar,
		"mirrored_at":  time.Now().Format(time.RFC3339),
	}

	_, _, err = m.client.From("imagery_artifacts").
		Insert(indexRow, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert mirror index row: %w", err)
	}

	log.Printf("📤 Mirrored artifact: %s", remoteImage)
	return nil
}

// uploadObject - raw storage upload with the service key.
func (m *Mirror) uploadObject(ctx context.Context, objectPath, contentType string, data []byte) error {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", m.baseURL, m.bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
