package catalog

// Product - one row of the product snapshot. Read-only once loaded.
type Product struct {
	CupidName        string // primary identifier, unique
	SKU              string // secondary identifier, may repeat across rows
	Description      string // SKU Main Description
	Brand            string
	ClassDescription string
	Tranche          string
	Specifications   string // raw JSON blob, single-quote tolerant
	Enrichment       string // raw JSON blob, single-quote tolerant
	AssetDetails     string // raw JSON blob: [{assetSequence, imageAddress}]
}

// Features - parsed product attributes consumed by prompt composition.
type Features struct {
	ProductName      string
	Brand            string
	ClassDescription string
	Tranche          string
	Specifications   map[string]string
	Enrichment       map[string]string
}

// assetEntry - one reference image entry inside the assetDetails blob.
type assetEntry struct {
	AssetSequence any    `json:"assetSequence"`
	ImageAddress  string `json:"imageAddress"`
}
