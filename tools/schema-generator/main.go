// Command schema-generator writes the published JSON Schemas: the
// fleetview.yml configuration and the dashboard snapshot payload.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/fleetview/config"
	"github.com/grovetools/fleetview/schema"
)

func main() {
	outputDir := "schema/definitions"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	generators := []struct {
		file string
		gen  func() ([]byte, error)
	}{
		{"fleetview.schema.json", config.GenerateSchema},
		{"snapshot.schema.json", schema.GenerateSnapshotSchema},
	}
	for _, g := range generators {
		data, err := g.gen()
		if err != nil {
			log.Fatalf("Error generating %s: %v", g.file, err)
		}
		path := filepath.Join(outputDir, g.file)
		if err := os.WriteFile(path, data, 0644); err != nil {
			log.Fatalf("Error writing %s: %v", path, err)
		}
		log.Printf("Generated %s", path)
	}
}
