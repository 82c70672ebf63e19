// Schema Generator
//
// Generates JSON Schema files for the canonical CSV row formats so downstream
// consumers of the daily archives can validate rows without reading Go code.
//
// Usage:
//
//	go run cmd/schema-gen/main.go [output_dir]
//
// Output:
//
//	<output_dir>/archive-rows.json (default ./schemas)
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/kosarica/price-crawler/internal/csvio"
)

func main() {
	outputDir := "./schemas"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	reflector := &jsonschema.Reflector{}
	definitions := make(map[string]any)
	for _, t := range []any{
		csvio.StoreRecord{},
		csvio.ProductRecord{},
		csvio.PriceRecord{},
	} {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	combined := map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         "https://kosarica.hr/schemas/archive-rows.json",
		"title":       "Daily Archive Row Types",
		"description": "JSON Schema for the stores.csv, products.csv and prices.csv row formats",
		"$defs":       definitions,
	}

	data, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal schema: %v\n", err)
		os.Exit(1)
	}

	outputPath := filepath.Join(outputDir, "archive-rows.json")
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", outputPath)
}
