package workflow

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"product-imagery-server/modules/artifact"
	"product-imagery-server/modules/catalog"
	"product-imagery-server/modules/common/config"
	"product-imagery-server/modules/feedback"
	"product-imagery-server/modules/governance"
	"product-imagery-server/modules/progress"
	"product-imagery-server/modules/prompt"
	"product-imagery-server/modules/vision"
)

// heroPhrases - business-critical visibility requirements. These are owned
// by the orchestrator so no category override or feedback refinement can
// remove them.
var heroPhrases = []string{
	"product fully visible and unobstructed",
	"product is the hero of the image",
	"product prominently displayed",
	"entire product visible in frame",
	"no part of product hidden or concealed",
}

const defaultTranche = "default"

// Orchestrator - runs the full pipeline for one product: lookup, feature
// verification, constraint compilation, prompt composition, generation,
// artifact save, safety audit.
type Orchestrator struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	engine    *governance.Engine
	analyzer  *vision.Analyzer
	composer  *prompt.Composer
	generator Generator
	writer    *artifact.Writer
	store     *feedback.Store
	hub       *progress.Hub
}

// New - orchestrator wired for the configured engine version.
func New(
	cfg *config.Config,
	cat *catalog.Catalog,
	engine *governance.Engine,
	analyzer *vision.Analyzer,
	generator Generator,
	writer *artifact.Writer,
	store *feedback.Store,
	hub *progress.Hub,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		catalog:   cat,
		engine:    engine,
		analyzer:  analyzer,
		composer:  prompt.NewComposer(prompt.ProfileFor(cfg.EngineVersion)),
		generator: generator,
		writer:    writer,
		store:     store,
		hub:       hub,
	}
}

// Run - execute the pipeline for one product. Variations are generated
// sequentially and one variation failing does not abort its sibling; the
// run as a whole fails only when no variation produced an image.
func (o *Orchestrator) Run(ctx context.Context, productID string, opts Options) (*RunResult, error) {
	product := o.catalog.Lookup(productID)
	if product == nil {
		return nil, fmt.Errorf("product %s not found in snapshot", productID)
	}

	features := o.catalog.Features(product)
	result := &RunResult{
		ProductID:   product.CupidName,
		ProductName: features.ProductName,
		Tranche:     trancheOf(product),
	}

	log.Printf("🚀 Pipeline start for %s (%s, class: %s)", product.CupidName, features.ProductName, features.ClassDescription)
	o.publish(progress.Event{Type: "run_started", ProductID: product.CupidName, Tranche: result.Tranche})

	refURLs := o.catalog.ReferenceImages(product)

	var featureSet *vision.VerifiedFeatureSet
	if opts.SkipVerification || o.analyzer == nil {
		featureSet = trustedFeatureSet(features.Specifications)
	} else {
		featureSet = o.analyzer.AnalyzeReferenceImages(ctx, refURLs, features.Specifications)
	}
	result.Identity = featureSet

	var refinements map[string]governance.Refinement
	if o.store != nil {
		refinements = o.store.Refinements()
	}
	constraints := o.engine.CompileConstraints(features.ClassDescription, refinements)
	augmentSemantics(constraints, features)

	scenes := o.selectScenes(features.ClassDescription)
	prompts := o.composer.ComposeBatch(features, featureSet, constraints, scenes)
	result.Prompts = prompts

	refImages := o.fetchReferences(ctx, refURLs)

	for _, p := range prompts {
		img, err := o.generateVariation(ctx, result.Tranche, product.CupidName, p, refImages, opts)
		if err != nil {
			log.Printf("❌ Variation %d failed for %s: %v", p.Variation, product.CupidName, err)
			result.Errors = append(result.Errors, fmt.Sprintf("variation %d: %v", p.Variation, err))
			o.publish(progress.Event{Type: "variation_failed", ProductID: product.CupidName, Tranche: result.Tranche, Error: err.Error()})
			continue
		}
		result.Images = append(result.Images, *img)
		o.publish(progress.Event{Type: "image_saved", ProductID: product.CupidName, Tranche: result.Tranche, Image: img.ImagePath})
	}

	if !result.Success() {
		o.publish(progress.Event{Type: "run_failed", ProductID: product.CupidName, Tranche: result.Tranche})
		return result, fmt.Errorf("all variations failed for %s", product.CupidName)
	}

	log.Printf("✅ Pipeline done for %s: %d/%d variations saved", product.CupidName, len(result.Images), len(prompts))
	o.publish(progress.Event{Type: "run_completed", ProductID: product.CupidName, Tranche: result.Tranche, Completed: len(result.Images), Total: len(prompts)})
	return result, nil
}

// BatchRun - run a list of products sequentially, tallying outcomes.
func (o *Orchestrator) BatchRun(ctx context.Context, productIDs []string, opts Options, stopOnError bool) *BatchResult {
	batch := &BatchResult{Requested: len(productIDs)}

	for i, id := range productIDs {
		if err := ctx.Err(); err != nil {
			batch.Errors = append(batch.Errors, fmt.Sprintf("batch aborted: %v", err))
			break
		}

		result, err := o.Run(ctx, id, opts)
		if result != nil {
			batch.Results = append(batch.Results, result)
		}
		if err != nil {
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", id, err))
			if stopOnError {
				break
			}
			continue
		}
		batch.Succeeded++
		o.publish(progress.Event{Type: "batch_progress", ProductID: id, Completed: i + 1, Total: len(productIDs)})
	}

	log.Printf("📤 Batch finished: %d succeeded, %d failed of %d requested", batch.Succeeded, batch.Failed, batch.Requested)
	return batch
}

// RunByTranche - batch over every product in a tranche.
func (o *Orchestrator) RunByTranche(ctx context.Context, tranche string, limit int, opts Options) *BatchResult {
	return o.BatchRun(ctx, productIDs(o.catalog.ByTranche(tranche, limit)), opts, false)
}

// RunByClass - batch over every product in a class.
func (o *Orchestrator) RunByClass(ctx context.Context, classDescription string, limit int, opts Options) *BatchResult {
	return o.BatchRun(ctx, productIDs(o.catalog.ByClass(classDescription, limit)), opts, false)
}

func (o *Orchestrator) generateVariation(
	ctx context.Context,
	tranche string,
	productID string,
	p *prompt.Prompt,
	refImages [][]byte,
	opts Options,
) (*GeneratedImage, error) {
	imageBytes, err := o.generator.Generate(ctx, p.Positive, p.Negative, refImages)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"variation":    p.Variation,
		"product_name": p.ProductName,
	}

	var verdict *vision.AuditVerdict
	if !opts.SkipAudit && o.analyzer != nil {
		verdict = o.analyzer.AuditGeneratedImage(ctx, imageBytes)
		metadata["safety_audit"] = verdict
		if !verdict.Safe {
			log.Printf("⚠️  Safety audit flagged %s variation %d: %v", productID, p.Variation, verdict.Issues)
		}
	}

	saved, err := o.writer.Save(imageBytes, tranche, productID, p.Positive, p.Negative, metadata)
	if err != nil {
		return nil, err
	}

	return &GeneratedImage{
		Variation:    p.Variation,
		Counter:      saved.Counter,
		ImagePath:    saved.ImagePath,
		MetadataPath: saved.MetadataPath,
		PreviewPath:  saved.PreviewPath,
		Audit:        verdict,
	}, nil
}

// selectScenes - scene inputs per variation. The enhanced profile receives
// the raw option list when the category has one, deferring the choice to
// the generator's contextual reasoning; everything else gets pre-resolved
// template text.
func (o *Orchestrator) selectScenes(classDescription string) map[string]prompt.SceneTemplate {
	scenes := make(map[string]prompt.SceneTemplate, 2)

	if _, missing := o.engine.SceneCategory(classDescription); missing {
		log.Printf("⚠️  Class %q has no scene category mapping, falling back to %q (governance gap)",
			classDescription, governance.DefaultCategory)
	}

	if o.composer.Profile().ContextualScenes {
		if options, _ := o.engine.SceneOptions(classDescription); len(options) > 0 {
			for variation := 1; variation <= 2; variation++ {
				scenes[fmt.Sprintf("lifestyle_%d", variation)] = prompt.SceneTemplate{Options: options}
			}
			return scenes
		}
	}

	for variation := 1; variation <= 2; variation++ {
		scenes[fmt.Sprintf("lifestyle_%d", variation)] = prompt.SceneTemplate{
			Text: o.engine.SceneTemplate(classDescription, variation),
		}
	}
	return scenes
}

// fetchReferences - download whatever reference images resolve. Failures
// are logged and skipped; generation proceeds with fewer references.
func (o *Orchestrator) fetchReferences(ctx context.Context, urls []string) [][]byte {
	if o.analyzer == nil {
		return nil
	}

	maxRefs := o.composer.Profile().ReferenceImageCap
	var images [][]byte
	for _, url := range urls {
		if len(images) >= maxRefs {
			break
		}
		data, err := o.analyzer.FetchImage(ctx, url)
		if err != nil {
			log.Printf("⚠️  Reference fetch failed (%s): %v", url, err)
			continue
		}
		images = append(images, data)
	}
	return images
}

func (o *Orchestrator) publish(event progress.Event) {
	if o.hub != nil {
		o.hub.Publish(event)
	}
}

// augmentSemantics - attach the non-negotiable visibility requirements and
// specification-derived scene hints to a constraint set before synthesis.
func augmentSemantics(cs *governance.ConstraintSet, features *catalog.Features) {
	existing := make(map[string]bool, len(cs.RequiredElements))
	for _, r := range cs.RequiredElements {
		existing[strings.ToLower(r)] = true
	}
	for _, phrase := range heroPhrases {
		if !existing[phrase] {
			cs.RequiredElements = append(cs.RequiredElements, phrase)
		}
	}

	cs.SemanticRequirements = map[string]bool{
		"full_product_visibility": true,
		"hero_placement":          true,
		"never_concealed":         true,
	}

	if size := features.Specifications["Handgun Size"]; size != "" {
		cs.SceneContext = append(cs.SceneContext, "scene staged at a scale that suits a "+strings.ToLower(size)+" handgun")
	}
	if productType := features.Specifications["Product Type"]; productType != "" {
		cs.SceneContext = append(cs.SceneContext, "environment appropriate for a "+strings.ToLower(productType))
	}
}

// trustedFeatureSet - treat every catalog specification as visible. Used
// when vision verification is skipped; the catalog is the source of truth.
func trustedFeatureSet(specs map[string]string) *vision.VerifiedFeatureSet {
	set := &vision.VerifiedFeatureSet{}
	for _, attr := range sortedSpecKeys(specs) {
		set.Visible = append(set.Visible, vision.VerifiedFeature{
			Attribute: attr,
			Value:     specs[attr],
			Verified:  true,
		})
	}
	return set
}

func sortedSpecKeys(specs map[string]string) []string {
	keys := make([]string, 0, len(specs))
	for key := range specs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func productIDs(products []*catalog.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.CupidName)
	}
	return ids
}

func trancheOf(p *catalog.Product) string {
	if p.Tranche == "" {
		return defaultTranche
	}
	return p.Tranche
}
