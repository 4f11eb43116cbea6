package vision

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"product-imagery-server/modules/common/config"
	"product-imagery-server/modules/common/gemini"
)

// analysisPrompt - fixed conservative instruction for reference image
// description. The model is told to report only what is visibly present.
const analysisPrompt = `Analyze this product image carefully. This is a firearm product photograph.

Your task is to describe ONLY what is VISIBLY present in the image - do not assume or infer features that cannot be clearly seen.

Please provide a structured analysis:

1. PRODUCT TYPE: What type of firearm is this? (pistol, rifle, shotgun, etc.)

2. VISIBLE PHYSICAL FEATURES:
   - Frame/receiver material and color (if distinguishable)
   - Grip style and texture (if visible)
   - Barrel characteristics (length estimate, finish)
   - Sights (type if visible)
   - Any visible accessories or attachments
   - Overall finish/color

3. VISIBLE CONDITION/QUALITY INDICATORS:
   - Surface finish quality
   - Any visible branding/logos/text
   - Notable design elements

4. CAMERA ANGLE & PRESENTATION:
   - How is the product positioned?
   - What angle is shown?
   - What parts of the product are clearly visible vs obscured?

5. FEATURES THAT CANNOT BE VERIFIED FROM THIS IMAGE:
   - List any features that typically exist but are not visible in this specific image

Be conservative - if something is partially visible or unclear, note that uncertainty.`

// Analyzer - verifies product specification attributes against reference
// image evidence, gating what prompt composition may mention.
type Analyzer struct {
	apiKeys    []string
	model      string
	maxImages  int
	matcher    EvidenceMatcher
	httpClient *http.Client
}

// NewAnalyzer - analyzer for the configured vision model. maxImages caps
// how many reference images are described per product (2 for the baseline
// profile, up to 14 for the enhanced one).
func NewAnalyzer(cfg *config.Config, maxImages int) *Analyzer {
	return &Analyzer{
		apiKeys:   cfg.GeminiAPIKeys,
		model:     cfg.VisionModel,
		maxImages: maxImages,
		matcher:   NewKeywordMatcher(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetMatcher - replace the evidence matcher (tests, stronger classifiers).
func (a *Analyzer) SetMatcher(m EvidenceMatcher) {
	a.matcher = m
}

// FetchImage - download one reference image. Scene7 addresses get explicit
// size parameters for consistent quality.
func (a *Analyzer) FetchImage(ctx context.Context, url string) ([]byte, error) {
	if strings.Contains(url, "scene7.com") && !strings.Contains(url, "?") {
		url = url + "?wid=1024&hei=1024&fmt=jpg"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// DescribeImage - free-text visual description of one image.
func (a *Analyzer) DescribeImage(ctx context.Context, imageBytes []byte) (string, error) {
	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(analysisPrompt),
			genai.NewPartFromBytes(imageBytes, "image/jpeg"),
		},
	}

	result, err := gemini.GenerateContentWithRetry(ctx, a.apiKeys, a.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("vision analysis call failed: %w", err)
	}

	return responseText(result), nil
}

// AnalyzeReferenceImages - fetch and describe reference images, then
// partition the product's specification attributes into visible and
// unverified. Individual fetch or analysis failures are non-fatal; zero
// usable images yields a fully-unverified result with NoImages set.
// Never returns an error: degraded evidence degrades the result, not the run.
func (a *Analyzer) AnalyzeReferenceImages(ctx context.Context, imageURLs []string, specs map[string]string) *VerifiedFeatureSet {
	set := &VerifiedFeatureSet{}

	if len(imageURLs) == 0 {
		log.Printf("⚠️  No reference images available, all attributes unverified")
		set.NoImages = true
		set.Unverified = allUnverified(specs)
		return set
	}

	urls := imageURLs
	if len(urls) > a.maxImages {
		urls = urls[:a.maxImages]
	}

	for _, url := range urls {
		imageBytes, err := a.FetchImage(ctx, url)
		if err != nil {
			log.Printf("⚠️  Skipping reference image %s: %v", url, err)
			continue
		}

		raw, err := a.DescribeImage(ctx, imageBytes)
		if err != nil {
			log.Printf("⚠️  Skipping analysis of %s: %v", url, err)
			continue
		}

		set.Analyses = append(set.Analyses, ImageAnalysis{URL: url, RawAnalysis: raw})
	}
	set.ImagesAnalyzed = len(set.Analyses)

	if set.ImagesAnalyzed == 0 {
		log.Printf("⚠️  All reference image fetches failed, all attributes unverified")
		set.NoImages = true
		set.Unverified = allUnverified(specs)
		return set
	}

	a.partition(set, specs)

	log.Printf("🔍 Feature verification: %d visible, %d unverified (%d images analyzed)",
		len(set.Visible), len(set.Unverified), set.ImagesAnalyzed)

	return set
}

// partition - classify every specification attribute exactly once against
// the case-folded evidence corpus.
func (a *Analyzer) partition(set *VerifiedFeatureSet, specs map[string]string) {
	var corpus strings.Builder
	for _, analysis := range set.Analyses {
		corpus.WriteString(strings.ToLower(analysis.RawAnalysis))
		corpus.WriteString(" ")
	}
	evidence := corpus.String()

	for _, attr := range sortedKeys(specs) {
		value := specs[attr]
		if a.matcher.Matches(attr, value, evidence) {
			set.Visible = append(set.Visible, VerifiedFeature{
				Attribute: attr,
				Value:     value,
				Verified:  true,
			})
		} else {
			set.Unverified = append(set.Unverified, UnverifiedFeature{
				Attribute: attr,
				Value:     value,
				Reason:    UnverifiedReason,
			})
		}
	}
}

// allUnverified - the no-evidence partition: every attribute unverified.
func allUnverified(specs map[string]string) []UnverifiedFeature {
	var out []UnverifiedFeature
	for _, attr := range sortedKeys(specs) {
		out = append(out, UnverifiedFeature{
			Attribute: attr,
			Value:     specs[attr],
			Reason:    UnverifiedReason,
		})
	}
	return out
}

// sortedKeys - deterministic attribute order for stable prompts and logs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// responseText - concatenated text parts of a Gemini response.
func responseText(result *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}
