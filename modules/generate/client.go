package generate

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"google.golang.org/genai"
	"gopkg.in/yaml.v3"

	"product-imagery-server/modules/common/config"
	"product-imagery-server/modules/common/gemini"
	"product-imagery-server/modules/prompt"
)

// modelSupportsNegative - whether a model accepts a negative prompt as a
// separate input. Unknown models default to false and get the negative
// constraints embedded in the main prompt text instead.
var modelSupportsNegative = map[string]bool{
	"gemini-2.0-flash-exp": true,
}

// Client - Gemini-backed image generation capability. Behavior (reference
// image cap, negative handling, system instruction) follows the style
// profile so both engine versions share one client.
type Client struct {
	apiKeys           []string
	model             string
	aspectRatio       string
	profile           *prompt.StyleProfile
	systemInstruction string
}

// NewClient - generation client for the configured model and profile.
func NewClient(cfg *config.Config, profile *prompt.StyleProfile) *Client {
	c := &Client{
		apiKeys:     cfg.GeminiAPIKeys,
		model:       cfg.ImageModel,
		aspectRatio: cfg.AspectRatio,
		profile:     profile,
	}

	if profile.UseSystemInstruction {
		c.systemInstruction = loadConstitution(cfg.ConstitutionPath)
	}

	return c
}

// Generate - produce image bytes for a prompt pair with optional reference
// images. Reference images go first so the model treats them as identity
// context; the prompt text goes last.
func (c *Client) Generate(ctx context.Context, positive, negative string, referenceImages [][]byte) ([]byte, error) {
	var parts []*genai.Part

	refs := referenceImages
	if len(refs) > c.profile.ReferenceImageCap {
		refs = refs[:c.profile.ReferenceImageCap]
	}
	for _, imgBytes := range refs {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: "image/jpeg",
				Data:     imgBytes,
			},
		})
	}

	fullPrompt := positive
	separateNegative := c.profile.SeparateNegativePrompt && modelSupportsNegative[c.model]
	if negative != "" && !separateNegative {
		fullPrompt += "\n\nNEGATIVE CONSTRAINTS (STRICT ADHERENCE REQUIRED): " + negative
	}
	parts = append(parts, genai.NewPartFromText(fullPrompt))
	if negative != "" && separateNegative {
		parts = append(parts, genai.NewPartFromText("Do not include: "+negative))
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: c.aspectRatio,
		},
	}
	if c.systemInstruction != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(c.systemInstruction)},
		}
	}

	log.Printf("🎨 Calling Gemini (model: %s, prompt: %d chars, refs: %d)", c.model, len(fullPrompt), len(refs))

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		c.apiKeys,
		c.model,
		[]*genai.Content{{Parts: parts}},
		genConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("✅ Received image from Gemini: %d bytes", len(part.InlineData.Data))
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, fmt.Errorf("no image data in response")
}

// loadConstitution - flatten the safety constitution document into one
// system instruction. A missing file logs a warning and disables the
// instruction rather than blocking generation.
func loadConstitution(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️  Safety constitution not found at %s, system instruction disabled", path)
		return ""
	}

	var sections map[string][]string
	if err := yaml.Unmarshal(data, &sections); err != nil {
		log.Printf("⚠️  Failed to parse safety constitution: %v", err)
		return ""
	}

	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var directives []string
	for _, key := range keys {
		directives = append(directives, sections[key]...)
	}
	return strings.Join(directives, "\n\n")
}
