// Command roadmap-apply loads a roadmap JSON document and applies its entity
// operations to the configured persistent store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"roadmapcore/internal/blob"
	"roadmapcore/internal/core"
)

var exitFunc = os.Exit

// openStore and openBlob are indirected so tests can substitute in-memory
// backends without environment plumbing.
var (
	openStore = func() (core.PersistentStore, error) {
		return core.OpenPersistentStore(core.NewDefaultRulesEngine())
	}
	openBlob = func(ctx context.Context) (blob.Store, error) {
		return blob.Open(ctx)
	}
)

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("roadmap-apply", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		input      string
		publishKey string
	)
	fs.StringVar(&input, "i", "", "roadmap document to apply")
	fs.StringVar(&input, "input", "", "roadmap document to apply")
	fs.StringVar(&publishKey, "publish", "", "store the applied document in the blob store under this key")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := run(input, publishKey, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "roadmap-apply: %v\n", err)
		return 1
	}
	return 0
}

func run(input, publishKey string, stdout, stderr io.Writer) error {
	if input == "" {
		return fmt.Errorf("--input is required")
	}
	raw, err := os.ReadFile(input) // #nosec G304 -- path is operator supplied input
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	var doc core.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	ctx := context.Background()
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	svc := core.NewService(store)

	summary, report, err := svc.ApplyDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("apply document: %w", err)
	}
	for _, f := range report.Findings {
		fmt.Fprintln(stderr, f.String())
	}
	fmt.Fprintf(stdout, "applied %s: created %d, updated %d, deleted %d, skipped %d, links repaired %d\n",
		input, summary.Created, summary.Updated, summary.Deleted, summary.Skipped, summary.LinksRepaired)

	if publishKey != "" {
		bs, err := openBlob(ctx)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		info, err := blob.PublishDocument(ctx, bs, publishKey, doc)
		if err != nil {
			return fmt.Errorf("publish document: %w", err)
		}
		fmt.Fprintf(stdout, "published %s (%d bytes)\n", info.Key, info.Size)
	}
	return nil
}
