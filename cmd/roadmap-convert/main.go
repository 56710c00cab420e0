// Command roadmap-convert transforms roadmap spreadsheet CSV exports into a
// versioned JSON entity document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"roadmapcore/internal/pipeline"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("roadmap-convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		pfPath     string
		caPath     string
		tfPath     string
		output     string
		layoutPath string
		nowRaw     string
	)
	fs.StringVar(&pfPath, "pf-csv", "", "product feature CSV export")
	fs.StringVar(&caPath, "ca-csv", "", "capability CSV export")
	fs.StringVar(&tfPath, "tf-csv", "", "technical function CSV export")
	fs.StringVar(&output, "o", "", "output document path (default stdout)")
	fs.StringVar(&output, "output", "", "output document path (default stdout)")
	fs.StringVar(&layoutPath, "layout", "", "YAML column layout override")
	fs.StringVar(&nowRaw, "now", "", "RFC3339 timestamp override for reproducible runs")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := run(pfPath, caPath, tfPath, output, layoutPath, nowRaw, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "roadmap-convert: %v\n", err)
		return 1
	}
	return 0
}

func run(pfPath, caPath, tfPath, output, layoutPath, nowRaw string, stdout, stderr io.Writer) error {
	layout := pipeline.DefaultLayout()
	if layoutPath != "" {
		loaded, err := pipeline.LoadLayout(layoutPath)
		if err != nil {
			return fmt.Errorf("load layout: %w", err)
		}
		layout = loaded
	}

	now := time.Now().UTC()
	if nowRaw != "" {
		parsed, err := time.Parse(time.RFC3339, nowRaw)
		if err != nil {
			return fmt.Errorf("parse --now: %w", err)
		}
		now = parsed.UTC()
	}

	res, err := pipeline.Run(context.Background(), pipeline.Options{
		ProductFeaturePath:    pfPath,
		CapabilityPath:        caPath,
		TechnicalFunctionPath: tfPath,
		Layout:                layout,
		Now:                   now,
	})
	if err != nil {
		return err
	}

	for _, f := range res.Report.Findings {
		fmt.Fprintln(stderr, f.String())
	}

	encoded, err := json.MarshalIndent(res.Document, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	encoded = append(encoded, '\n')
	if output == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
	} else {
		if err := os.WriteFile(output, encoded, 0o644); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		fmt.Fprintf(stdout, "wrote %s: %d product features, %d capabilities, %d technical functions\n",
			output, res.ProductFeatures, res.Capabilities, res.TechnicalFunctions)
	}
	return nil
}
