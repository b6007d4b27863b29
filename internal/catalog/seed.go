package catalog

import _ "embed"

//go:embed seed.json
var seedJSON []byte

// Default loads the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Load(seedJSON)
}
