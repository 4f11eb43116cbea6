package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotCSV = `cupidName,SKU,SKU Main Description,Brand Description,Class Description,Tranche,Specifications,Enrichment,assetDetails
GLOCK19X,12345,GLOCK 19X: 9MM LUGER,GLOCK,Handguns,tranche1,"{'Finish': 'Coyote', 'Barrel Length': 4.02, 'Optic Ready': true}","{'Product Name': 'Glock 19X Crossover'}","[{'assetSequence': 2, 'imageAddress': 'https://img.example.com/b.jpg'}, {'assetSequence': 1, 'imageAddress': 'https://img.example.com/a.jpg'}, {'assetSequence': 'bogus', 'imageAddress': 'https://img.example.com/z.jpg'}]"
SIGP365,12345,SIG SAUER P365,SIG SAUER,Handguns,tranche1,,,
GLOCK19X-DUP,GLOCK19X,DECOY ROW,DECOY,Handguns,tranche2,,,
RUGER1022,55555,RUGER 10/22 CARBINE,RUGER,Rifles,tranche2,"{'Stock': 'Hardwood'}",,"not json at all"
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(snapshotCSV), 0o644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestLookupPrecedence(t *testing.T) {
	c, err := Load(writeSnapshot(t))
	require.NoError(t, err)

	// cupidName wins over a SKU carrying the same value.
	p := c.Lookup("GLOCK19X")
	require.NotNil(t, p)
	assert.Equal(t, "GLOCK 19X: 9MM LUGER", p.Description)

	// SKU fallback; duplicate SKUs resolve to the first occurrence.
	p = c.Lookup("12345")
	require.NotNil(t, p)
	assert.Equal(t, "GLOCK19X", p.CupidName)

	assert.Nil(t, c.Lookup("UNKNOWN"))
}

func TestReferenceImagesOrdering(t *testing.T) {
	c, err := Load(writeSnapshot(t))
	require.NoError(t, err)

	urls := c.ReferenceImages(c.Lookup("GLOCK19X"))
	require.Len(t, urls, 3)
	assert.Equal(t, "https://img.example.com/a.jpg", urls[0])
	assert.Equal(t, "https://img.example.com/b.jpg", urls[1])
	// Malformed sequence sorts last.
	assert.Equal(t, "https://img.example.com/z.jpg", urls[2])
}

func TestReferenceImagesDegradeGracefully(t *testing.T) {
	c, err := Load(writeSnapshot(t))
	require.NoError(t, err)

	assert.Empty(t, c.ReferenceImages(c.Lookup("SIGP365")))
	// Unparseable blob is a warning, not an error.
	assert.Empty(t, c.ReferenceImages(c.Lookup("RUGER1022")))
	assert.Empty(t, c.ReferenceImages(nil))
}

func TestFeaturesParsing(t *testing.T) {
	c, err := Load(writeSnapshot(t))
	require.NoError(t, err)

	f := c.Features(c.Lookup("GLOCK19X"))
	assert.Equal(t, "Glock 19X Crossover", f.ProductName, "enriched name overrides description")
	assert.Equal(t, "Coyote", f.Specifications["Finish"])
	assert.Equal(t, "4.02", f.Specifications["Barrel Length"], "numeric values stringified")
	assert.Equal(t, "true", f.Specifications["Optic Ready"], "boolean values stringified")

	f = c.Features(c.Lookup("SIGP365"))
	assert.Equal(t, "SIG SAUER P365", f.ProductName)
	assert.Empty(t, f.Specifications)
}

func TestFilters(t *testing.T) {
	c, err := Load(writeSnapshot(t))
	require.NoError(t, err)

	assert.Len(t, c.ByTranche("tranche1", 0), 2)
	assert.Len(t, c.ByTranche("tranche1", 1), 1)
	assert.Len(t, c.ByClass("Rifles", 0), 1)
	assert.Len(t, c.All(0), 4)
	assert.Equal(t, 4, c.TotalProducts())
	assert.Equal(t, 2, c.ProductsWithImages())
}
