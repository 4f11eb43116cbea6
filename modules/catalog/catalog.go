package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
)

// malformedSequence - sort position for asset entries without a usable sequence.
const malformedSequence = 999

// Catalog - in-memory product snapshot with dual-key lookup.
type Catalog struct {
	products []*Product
	byCupid  map[string]*Product
	bySKU    map[string]*Product
}

// Load - read the product snapshot CSV. A missing file is fatal to callers:
// the pipeline cannot operate without product data.
func Load(csvPath string) (*Catalog, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("product snapshot not found: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse product snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("product snapshot is empty: %s", csvPath)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	c := &Catalog{
		byCupid: make(map[string]*Product),
		bySKU:   make(map[string]*Product),
	}

	for _, row := range rows[1:] {
		p := &Product{
			CupidName:        field(row, "cupidName"),
			SKU:              field(row, "SKU"),
			Description:      field(row, "SKU Main Description"),
			Brand:            field(row, "Brand Description"),
			ClassDescription: field(row, "Class Description"),
			Tranche:          field(row, "Tranche"),
			Specifications:   field(row, "Specifications"),
			Enrichment:       field(row, "Enrichment"),
			AssetDetails:     field(row, "assetDetails"),
		}
		c.products = append(c.products, p)

		if p.CupidName != "" {
			c.byCupid[p.CupidName] = p
		}
		// SKU may repeat; first occurrence wins.
		if p.SKU != "" {
			if _, exists := c.bySKU[p.SKU]; !exists {
				c.bySKU[p.SKU] = p
			}
		}
	}

	log.Printf("✅ Product snapshot loaded: %d products (%d with reference images)",
		c.TotalProducts(), c.ProductsWithImages())

	return c, nil
}

// Lookup - resolve a product by cupidName or SKU.
// The primary identifier always takes precedence over the secondary one.
func (c *Catalog) Lookup(identifier string) *Product {
	if p, ok := c.byCupid[identifier]; ok {
		return p
	}
	if p, ok := c.bySKU[identifier]; ok {
		return p
	}
	return nil
}

// ReferenceImages - ordered reference image addresses from the asset blob.
// Entries are sorted by assetSequence; malformed sequences sort last.
// A malformed blob degrades to an empty list with a warning, never an error.
func (c *Catalog) ReferenceImages(p *Product) []string {
	if p == nil || p.AssetDetails == "" {
		return nil
	}

	var entries []assetEntry
	if err := json.Unmarshal([]byte(normalizeBlob(p.AssetDetails)), &entries); err != nil {
		log.Printf("⚠️  Could not parse assetDetails for %s: %v", p.CupidName, err)
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return sequenceOf(entries[i]) < sequenceOf(entries[j])
	})

	var urls []string
	for _, e := range entries {
		if e.ImageAddress != "" {
			urls = append(urls, e.ImageAddress)
		}
	}
	return urls
}

// Features - parsed specification/enrichment attributes for a product.
// An enriched "Product Name" overrides the snapshot description.
func (c *Catalog) Features(p *Product) *Features {
	f := &Features{
		ProductName:      p.Description,
		Brand:            p.Brand,
		ClassDescription: p.ClassDescription,
		Tranche:          p.Tranche,
		Specifications:   parseBlob(p.Specifications, p.CupidName, "Specifications"),
		Enrichment:       parseBlob(p.Enrichment, p.CupidName, "Enrichment"),
	}
	if name, ok := f.Enrichment["Product Name"]; ok && name != "" {
		f.ProductName = name
	}
	return f
}

// ByTranche - products for a tranche, optionally limited (limit <= 0 means all).
func (c *Catalog) ByTranche(tranche string, limit int) []*Product {
	return c.filter(limit, func(p *Product) bool { return p.Tranche == tranche })
}

// ByClass - products for a class description, optionally limited.
func (c *Catalog) ByClass(classDescription string, limit int) []*Product {
	return c.filter(limit, func(p *Product) bool { return p.ClassDescription == classDescription })
}

// All - every product, optionally limited.
func (c *Catalog) All(limit int) []*Product {
	return c.filter(limit, func(*Product) bool { return true })
}

// TotalProducts - number of rows in the snapshot.
func (c *Catalog) TotalProducts() int {
	return len(c.products)
}

// ProductsWithImages - number of products carrying an asset blob.
func (c *Catalog) ProductsWithImages() int {
	count := 0
	for _, p := range c.products {
		if p.AssetDetails != "" {
			count++
		}
	}
	return count
}

func (c *Catalog) filter(limit int, keep func(*Product) bool) []*Product {
	var out []*Product
	for _, p := range c.products {
		if !keep(p) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// sequenceOf - numeric sort key for an asset entry.
func sequenceOf(e assetEntry) int {
	switch v := e.AssetSequence.(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return malformedSequence
}

// normalizeBlob - the snapshot stores JSON blobs with single quotes.
func normalizeBlob(raw string) string {
	return strings.ReplaceAll(raw, "'", `"`)
}

// parseBlob - tolerant key/value blob parsing; malformed input becomes an
// empty map with a warning so a bad row never aborts the product.
func parseBlob(raw, cupidName, label string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(normalizeBlob(raw)), &generic); err != nil {
		log.Printf("⚠️  Could not parse %s for %s: %v", label, cupidName, err)
		return out
	}

	for k, v := range generic {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			// Nested structures are not attribute values; skip.
		}
	}
	return out
}
