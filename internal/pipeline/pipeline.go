package pipeline

import (
	"context"
	"time"

	"roadmapcore/pkg/domain"
)

// MetricsRecorder receives one observation per pipeline stage. Satisfied by
// the recorders in internal/core.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Options configures a single pipeline run. Now is captured once by the
// caller and threaded through every stage, so a run is a pure function of
// (CSV contents, Now).
type Options struct {
	ProductFeaturePath    string
	CapabilityPath        string
	TechnicalFunctionPath string
	Layout                Layout
	Now                   time.Time
	CreatedBy             string
	Metrics               MetricsRecorder
}

// Result is the outcome of a pipeline run: the assembled document plus every
// data-quality finding raised along the way.
type Result struct {
	Document           domain.Document
	Report             domain.Report
	ProductFeatures    int
	Capabilities       int
	TechnicalFunctions int
}

// Run executes the five stages in order: parse, reconcile, resolve,
// propagate, assemble. Per-row and per-entity problems surface as findings
// and never abort the run; only an unreadable input file is an error.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.CreatedBy == "" {
		opts.CreatedBy = "roadmap-convert"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if err := opts.Layout.Validate(); err != nil {
		return Result{}, err
	}

	var res Result
	started := time.Now()
	err := func() error {
		pfs, err := ParseProductFeatures(opts.ProductFeaturePath, opts.Layout, &res.Report)
		if err != nil {
			return err
		}
		cas, err := ParseCapabilities(opts.CapabilityPath, opts.Layout, &res.Report)
		if err != nil {
			return err
		}
		tfs, err := ParseTechnicalFunctions(opts.TechnicalFunctionPath, opts.Layout, &res.Report)
		if err != nil {
			return err
		}

		ReconcileFeatureCapabilityLinks(pfs, cas, &res.Report)
		ReconcileCapabilityFunctionLinks(cas, tfs, &res.Report)
		ResolveFunctionFeatureLinks(pfs, cas, tfs, &res.Report)

		PropagateDates(pfs, cas, tfs)
		PropagateTRL(opts.Now, pfs, cas, tfs, &res.Report)

		res.Document = Assemble(pfs, cas, tfs, opts.Now, opts.CreatedBy)
		res.ProductFeatures = len(pfs)
		res.Capabilities = len(cas)
		res.TechnicalFunctions = len(tfs)
		return nil
	}()

	if opts.Metrics != nil {
		opts.Metrics.Observe(ctx, "pipeline.run", err == nil, time.Since(started))
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
