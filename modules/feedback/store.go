package feedback

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"product-imagery-server/modules/governance"
)

// GlobalCategory - refinement bucket for feedback whose product class maps
// to no known scene category. Global refinements apply to every product.
const GlobalCategory = "global"

type storeFile struct {
	Entries     map[string]Entry                 `yaml:"feedback_entries"`
	Refinements map[string]governance.Refinement `yaml:"rule_refinements"`
}

// Store - YAML-backed feedback ledger. Every mutation persists to disk so
// reviews survive restarts.
type Store struct {
	mu          sync.Mutex
	path        string
	entries     map[string]Entry
	refinements map[string]governance.Refinement
}

// NewStore - load the feedback file, creating an empty store when the file
// does not exist yet.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:        path,
		entries:     make(map[string]Entry),
		refinements: make(map[string]governance.Refinement),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("📝 No feedback file at %s, starting empty", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback file: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse feedback file: %w", err)
	}
	if file.Entries != nil {
		s.entries = file.Entries
	}
	if file.Refinements != nil {
		s.refinements = file.Refinements
	}

	log.Printf("✅ Loaded %d feedback entries from %s", len(s.entries), path)
	return s, nil
}

// Add - record a review. Ratings clamp to [1, 5] and the entry replaces any
// previous review of the same artifact.
func (s *Store) Add(entry Entry) (Entry, error) {
	if entry.ArtifactID == "" {
		return Entry{}, fmt.Errorf("artifact_id is required")
	}

	if entry.Rating < 1 {
		entry.Rating = 1
	}
	if entry.Rating > 5 {
		entry.Rating = 5
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = time.Now().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ArtifactID] = entry
	if err := s.save(); err != nil {
		return Entry{}, err
	}

	log.Printf("📝 Feedback recorded for %s (rating: %d, regenerate: %v)", entry.ArtifactID, entry.Rating, entry.Regenerate)
	return entry, nil
}

// Get - look up the review for one artifact.
func (s *Store) Get(artifactID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[artifactID]
	return entry, ok
}

// RegenerationWorklist - artifacts flagged for regeneration. Approval wins:
// an approved artifact never appears, even when its regenerate flag is set.
func (s *Store) RegenerationWorklist() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var worklist []Entry
	for _, entry := range s.entries {
		if entry.Regenerate && !entry.Approved && entry.RegeneratedAt == "" {
			worklist = append(worklist, entry)
		}
	}
	sort.Slice(worklist, func(i, j int) bool {
		return worklist[i].ArtifactID < worklist[j].ArtifactID
	})
	return worklist
}

// MarkRegenerated - clear the regenerate flag and stamp the time. Runs even
// for approved entries so a stale flag cannot linger.
func (s *Store) MarkRegenerated(artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[artifactID]
	if !ok {
		return fmt.Errorf("no feedback entry for %s", artifactID)
	}
	entry.Regenerate = false
	entry.RegeneratedAt = time.Now().Format(time.RFC3339)
	s.entries[artifactID] = entry
	return s.save()
}

// AggregateRefinements - fold recorded issues and suggestions into
// per-category prompt refinements. Classes resolve to scene categories via
// classMapping; unmapped classes land in the global bucket. The result is
// persisted and replaces any previous aggregation.
func (s *Store) AggregateRefinements(classMapping map[string]string) map[string]governance.Refinement {
	s.mu.Lock()
	defer s.mu.Unlock()

	refinements := make(map[string]governance.Refinement)
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Mapping keys are free-text class labels in mixed case; fold them so a
	// label match never depends on casing.
	folded := make(map[string]string, len(classMapping))
	for label, category := range classMapping {
		folded[strings.ToLower(label)] = category
	}

	for _, id := range ids {
		entry := s.entries[id]
		category := GlobalCategory
		if mapped, ok := classMapping[entry.ClassName]; ok {
			category = mapped
		} else if mapped, ok := folded[strings.ToLower(entry.ClassName)]; ok {
			category = mapped
		}

		ref := refinements[category]
		ref.AddToNegative = appendUnique(ref.AddToNegative, entry.Issues)
		ref.AddToRequired = appendUnique(ref.AddToRequired, entry.Suggestions)
		refinements[category] = ref
	}

	for category, ref := range refinements {
		if len(ref.AddToNegative) == 0 && len(ref.AddToRequired) == 0 {
			delete(refinements, category)
		}
	}

	s.refinements = refinements
	if err := s.save(); err != nil {
		log.Printf("⚠️  Failed to persist refinements: %v", err)
	}

	log.Printf("🔍 Aggregated refinements for %d categories from %d entries", len(refinements), len(s.entries))
	return copyRefinements(refinements)
}

// Refinements - last persisted aggregation.
func (s *Store) Refinements() map[string]governance.Refinement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRefinements(s.refinements)
}

// Stats - aggregate counters for the review dashboard.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Total: len(s.entries)}
	ratingSum := 0
	for _, entry := range s.entries {
		ratingSum += entry.Rating
		if entry.Approved {
			stats.Approved++
		}
		if entry.RegeneratedAt != "" {
			stats.Regenerated++
		} else if entry.Regenerate && !entry.Approved {
			stats.PendingRegen++
		}
	}
	if stats.Total > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.Total)
	}
	return stats
}

// save - write the full store. Caller holds the lock.
func (s *Store) save() error {
	file := storeFile{Entries: s.entries, Refinements: s.refinements}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create feedback directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write feedback file: %w", err)
	}
	return nil
}

func appendUnique(existing []string, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[strings.ToLower(item)] = true
	}
	for _, item := range additions {
		item = strings.TrimSpace(item)
		if item == "" || seen[strings.ToLower(item)] {
			continue
		}
		seen[strings.ToLower(item)] = true
		existing = append(existing, item)
	}
	return existing
}

func copyRefinements(src map[string]governance.Refinement) map[string]governance.Refinement {
	out := make(map[string]governance.Refinement, len(src))
	for category, ref := range src {
		out[category] = governance.Refinement{
			AddToRequired: append([]string(nil), ref.AddToRequired...),
			AddToNegative: append([]string(nil), ref.AddToNegative...),
		}
	}
	return out
}
