// Package main writes the report JSON schema embedded in the binary to disk,
// so that dashboard consumers can validate payloads without topicstats.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/topicstats/pkg/report"
)

const schemaFile = "report.schema.json"

var outputDir string

func main() {
	flag.StringVar(&outputDir, "o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	if err := run(outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", filepath.Join(outputDir, schemaFile))
}

func run(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, report.Schema(), "", "  "); err != nil {
		return fmt.Errorf("format schema: %w", err)
	}

	buf.WriteByte('\n')

	if err := os.WriteFile(filepath.Join(dir, schemaFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	return nil
}
