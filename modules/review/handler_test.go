package review

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-imagery-server/modules/feedback"
	"product-imagery-server/modules/governance"
)

const testRules = `universal:
  negative_prompts:
    - "no children or minors"
  required_elements:
    - "product in focus"
  face_policy: "avoid_compositionally"
  human_presence:
    allowed: "none"
class_mapping:
  handguns: handguns
scene_templates:
  handguns:
    lifestyle_1: "on a cleared workbench"
    lifestyle_2: "inside a home safe"
`

func newTestRouter(t *testing.T) (*mux.Router, *feedback.Store, string) {
	t.Helper()
	dir := t.TempDir()

	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(testRules), 0o644))
	engine, err := governance.NewEngine(rulesPath)
	require.NoError(t, err)

	store, err := feedback.NewStore(filepath.Join(dir, "feedback.yaml"))
	require.NoError(t, err)

	outputBase := filepath.Join(dir, "output")
	h := NewHandler(nil, nil, store, engine, outputBase)

	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r, store, outputBase
}

func postJSON(t *testing.T, r *mux.Router, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func get(r *mux.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAddAndGetFeedback(t *testing.T) {
	r, store, _ := newTestRouter(t)

	rec := postJSON(t, r, "/api/feedback", map[string]any{
		"artifact_id": "GLOCK19X_l101",
		"product_id":  "GLOCK19X",
		"class_name":  "Handguns",
		"rating":      9,
		"issues":      []string{"harsh shadows"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved feedback.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, 5, saved.Rating, "rating clamped")

	// Posting feedback refreshes the aggregated refinements.
	refinements := store.Refinements()
	require.Contains(t, refinements, "handguns")
	assert.Contains(t, refinements["handguns"].AddToNegative, "harsh shadows")

	rec = get(r, "/api/feedback/GLOCK19X_l101")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, "/api/feedback/UNKNOWN_l101")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedbackValidation(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := postJSON(t, r, "/api/feedback", map[string]any{"rating": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedbackStats(t *testing.T) {
	r, store, _ := newTestRouter(t)

	_, err := store.Add(feedback.Entry{ArtifactID: "A_l101", Rating: 4, Approved: true})
	require.NoError(t, err)

	rec := get(r, "/api/feedback/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats feedback.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Approved)
}

func TestRegenerationQueueEndpoint(t *testing.T) {
	r, store, _ := newTestRouter(t)

	_, err := store.Add(feedback.Entry{ArtifactID: "A_l101", ProductID: "A", Rating: 2, Regenerate: true})
	require.NoError(t, err)
	_, err = store.Add(feedback.Entry{ArtifactID: "B_l101", ProductID: "B", Rating: 4, Regenerate: true, Approved: true})
	require.NoError(t, err)

	rec := get(r, "/api/regenerate/queue")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Count    int              `json:"count"`
		Worklist []feedback.Entry `json:"worklist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload.Count)
	require.Len(t, payload.Worklist, 1)
	assert.Equal(t, "A_l101", payload.Worklist[0].ArtifactID)
}

func TestEnqueueWithoutQueue(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := postJSON(t, r, "/api/enqueue", map[string]any{"product_id": "GLOCK19X"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListArtifacts(t *testing.T) {
	r, _, outputBase := newTestRouter(t)

	trancheDir := filepath.Join(outputBase, "tranche1")
	require.NoError(t, os.MkdirAll(trancheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(trancheDir, "PROD1_l101.jpg"), []byte("img"), 0o644))

	logsDir := filepath.Join(outputBase, "logs", "tranche1")
	require.NoError(t, os.MkdirAll(logsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "PROD1_l101.json"), []byte("{}"), 0o644))

	rec := get(r, "/api/artifacts/tranche1")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Count     int        `json:"count"`
		Artifacts []Artifact `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "PROD1_l101", payload.Artifacts[0].ID)
	assert.NotEmpty(t, payload.Artifacts[0].MetadataPath)
	assert.Empty(t, payload.Artifacts[0].PreviewPath)

	// Unknown tranche is an empty listing, not an error.
	rec = get(r, "/api/artifacts/nope")
	require.Equal(t, http.StatusOK, rec.Code)
}
