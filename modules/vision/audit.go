package vision

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"google.golang.org/genai"

	"product-imagery-server/modules/common/gemini"
)

// auditPrompt - fixed four-question safety/physics checklist for generated
// images. Answered as strict JSON so the verdict can be parsed.
const auditPrompt = `You are auditing an AI-generated product photograph of a firearm for compliance.

Answer the following four questions about the image. Respond with ONLY a JSON object, no other text:

{
  "minor_present": true/false,      // Is any person who could be a minor visible?
  "finger_on_trigger": true/false,  // Is a finger on or inside the trigger guard?
  "product_floating": true/false,   // Does the product appear to float without contact shadows?
  "unsafe_scenario": true/false,    // Does the scene depict unsafe handling or threatening context?
  "notes": "short explanation of any true answer"
}`

// auditResponse - raw checklist answers from the vision model.
type auditResponse struct {
	MinorPresent    bool   `json:"minor_present"`
	FingerOnTrigger bool   `json:"finger_on_trigger"`
	ProductFloating bool   `json:"product_floating"`
	UnsafeScenario  bool   `json:"unsafe_scenario"`
	Notes           string `json:"notes"`
}

// AuditGeneratedImage - post-generation safety/physics audit. Any call or
// parse failure degrades to an assume-safe verdict with AssumedSafe set:
// fail-open is deliberate here, but always flagged in the returned verdict
// and the logs so it is never a silent gap.
func (a *Analyzer) AuditGeneratedImage(ctx context.Context, imageBytes []byte) *AuditVerdict {
	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(auditPrompt),
			genai.NewPartFromBytes(imageBytes, "image/jpeg"),
		},
	}

	result, err := gemini.GenerateContentWithRetry(ctx, a.apiKeys, a.model, []*genai.Content{content}, nil)
	if err != nil {
		log.Printf("⚠️  Safety audit call failed, assuming safe: %v", err)
		return &AuditVerdict{Safe: true, PhysicsOK: true, AssumedSafe: true}
	}

	raw := extractJSON(responseText(result))

	var resp auditResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Printf("⚠️  Safety audit returned unparseable verdict, assuming safe: %v", err)
		return &AuditVerdict{Safe: true, PhysicsOK: true, AssumedSafe: true}
	}

	verdict := &AuditVerdict{
		Safe:      !resp.MinorPresent && !resp.FingerOnTrigger && !resp.UnsafeScenario,
		PhysicsOK: !resp.ProductFloating,
	}

	if resp.MinorPresent {
		verdict.Issues = append(verdict.Issues, "possible minor present in scene")
	}
	if resp.FingerOnTrigger {
		verdict.Issues = append(verdict.Issues, "finger on or inside trigger guard")
	}
	if resp.ProductFloating {
		verdict.Issues = append(verdict.Issues, "product appears to float without contact shadows")
	}
	if resp.UnsafeScenario {
		verdict.Issues = append(verdict.Issues, "unsafe handling or threatening scenario")
	}
	if resp.Notes != "" && len(verdict.Issues) > 0 {
		verdict.Issues = append(verdict.Issues, resp.Notes)
	}

	if !verdict.Safe || !verdict.PhysicsOK {
		log.Printf("❌ Safety audit flagged image: %v", verdict.Issues)
	}

	return verdict
}

// extractJSON - strip markdown fences and surrounding prose from a model
// reply, keeping the outermost JSON object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
