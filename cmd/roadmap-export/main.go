// Command roadmap-export snapshots the configured persistent store into a
// roadmap JSON document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"roadmapcore/internal/core"
)

var exitFunc = os.Exit

var openStore = func() (core.PersistentStore, error) {
	return core.OpenPersistentStore(core.NewDefaultRulesEngine())
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("roadmap-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		output    string
		createdBy string
	)
	fs.StringVar(&output, "o", "", "output document path (default stdout)")
	fs.StringVar(&output, "output", "", "output document path (default stdout)")
	fs.StringVar(&createdBy, "created-by", "", "created_by recorded in the document metadata")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := run(output, createdBy, stdout); err != nil {
		fmt.Fprintf(stderr, "roadmap-export: %v\n", err)
		return 1
	}
	return 0
}

func run(output, createdBy string, stdout io.Writer) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	svc := core.NewService(store)

	doc, err := svc.ExportDocument(context.Background(), createdBy)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	encoded = append(encoded, '\n')
	if output == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(output, encoded, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	fmt.Fprintf(stdout, "exported %d entities to %s\n", len(doc.Entities), output)
	return nil
}
