//go:build ignore

// Command generate_schema concatenates the up migrations into the Schema
// constant in internal/database/schema.go. Run via go generate.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	migrationsDir = "internal/database/migrations/files"
	outputPath    = "internal/database/schema.go"
)

func main() {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		fatal("reading migrations directory: %v", err)
	}

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	var schema strings.Builder
	for _, name := range ups {
		data, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			fatal("reading %s: %v", name, err)
		}
		schema.Write(data)
	}

	var out strings.Builder
	out.WriteString("// Code generated by internal/database/tools/generate_schema.go; DO NOT EDIT.\n\n")
	out.WriteString("package database\n\n")
	out.WriteString("// Schema is the full database schema, concatenated from the embedded\n")
	out.WriteString("// migration files. Tests apply it directly to in-memory databases instead\n")
	out.WriteString("// of running migrations.\n")
	out.WriteString("const Schema = `" + schema.String() + "`\n")

	if err := os.WriteFile(outputPath, []byte(out.String()), 0644); err != nil {
		fatal("writing %s: %v", outputPath, err)
	}
	fmt.Printf("wrote %s (%d migrations)\n", outputPath, len(ups))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
