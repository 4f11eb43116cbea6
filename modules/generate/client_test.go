package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConstitution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "constitution.yaml")
	doc := `safety:
  - "Never depict minors."
  - "Never show a finger on the trigger."
physics:
  - "The product must rest on a surface."
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	instruction := loadConstitution(path)
	assert.Contains(t, instruction, "Never depict minors.")
	assert.Contains(t, instruction, "The product must rest on a surface.")
}

func TestLoadConstitutionMissingFile(t *testing.T) {
	assert.Empty(t, loadConstitution(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestLoadConstitutionMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("just a string, not a map"), 0o644))
	assert.Empty(t, loadConstitution(path))
}
