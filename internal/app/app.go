// Package app runs the c360cfg pipeline: prerequisites, environment
// resolution, transfer script generation, then output.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/c360/c360cfg/internal/config"
	"github.com/c360/c360cfg/internal/environment"
	"github.com/c360/c360cfg/internal/log"
	"github.com/c360/c360cfg/internal/output"
	"github.com/c360/c360cfg/internal/paths"
	"github.com/c360/c360cfg/internal/store"
	"github.com/c360/c360cfg/internal/tracing"
	"github.com/c360/c360cfg/internal/transfer"
)

// ErrStrictMaster is returned when strict_master is set and no cluster
// master address could be built.
var ErrStrictMaster = errors.New("spark master unresolvable")

// Options configures one pipeline pass.
type Options struct {
	Settings config.Settings

	// Lookup reads the process environment. Default: environment.OSLookup.
	Lookup environment.LookupFunc

	// ExecutableDir is appended to PATH in the export file.
	ExecutableDir string

	// Tracer records one span per stage. Default: no-op.
	Tracer trace.Tracer
}

// Result is what a pass produced.
type Result struct {
	RunID   string
	Table   *environment.Table
	Report  environment.Report
	Scripts transfer.Scripts
	Plan    output.Plan

	// Diff is set instead of writing files when dry_run is on.
	Diff string
}

// Build runs every stage except output and returns the files that would
// be written. It never touches the home directory.
func Build(ctx context.Context, opts Options) (Result, error) {
	return run(ctx, opts, false)
}

// Run builds the plan, then writes it, or diffs it against disk when
// dry_run is set. Files are only written after every earlier stage
// succeeded.
func Run(ctx context.Context, opts Options) (Result, error) {
	return run(ctx, opts, true)
}

func run(ctx context.Context, opts Options, emit bool) (res Result, err error) {
	opts = opts.withDefaults()
	settings := opts.Settings.Resolve()

	res.RunID = uuid.NewString()
	log.With("run_id", res.RunID)

	ctx, span := tracing.StartStage(ctx, opts.Tracer, tracing.SpanRun,
		attribute.String(tracing.AttrRunID, res.RunID),
		attribute.Bool(tracing.AttrDryRun, settings.DryRun))
	defer func() { tracing.EndStage(span, err) }()

	resolver := environment.NewResolver(environment.Options{
		Lookup:        opts.Lookup,
		HostFile:      settings.HostFile,
		ExecutableDir: opts.ExecutableDir,
	})

	if err = checkPrerequisites(ctx, opts.Tracer, resolver); err != nil {
		return res, err
	}

	var doc *store.Document
	doc, res.Table, res.Report, err = resolve(ctx, opts.Tracer, resolver, settings)
	if err != nil {
		return res, err
	}

	if res.Report.MasterErr != nil {
		span.AddEvent(tracing.EventMasterUnresolved)
		if settings.StrictMaster {
			err = fmt.Errorf("%w: %w", ErrStrictMaster, res.Report.MasterErr)
			return res, err
		}
	}

	res.Scripts = generateScripts(ctx, opts.Tracer, res.Table, doc.Processing.Entities)
	res.Plan = buildPlan(settings.Home, res.Table, res.Scripts, doc.General)

	if !emit {
		return res, nil
	}

	if res.Diff, err = emitPlan(ctx, opts.Tracer, res.Plan, settings.DryRun); err != nil {
		err = fmt.Errorf("writing output: %w", err)
		return res, err
	}

	log.Info(log.CatOutput, "Configuration complete", "files", len(res.Plan.Files), "dry_run", settings.DryRun)
	return res, nil
}

// ExecutableDir returns the directory of the running binary, or "" if it
// cannot be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		log.Warn(log.CatEnv, "Cannot locate executable", "error", err)
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func (o Options) withDefaults() Options {
	if o.Lookup == nil {
		o.Lookup = environment.OSLookup
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return o
}

func checkPrerequisites(ctx context.Context, tracer trace.Tracer, r *environment.Resolver) (err error) {
	_, span := tracing.StartStage(ctx, tracer, tracing.SpanPrerequisites)
	defer func() { tracing.EndStage(span, err) }()

	missing := r.CheckPrerequisites()
	span.SetAttributes(attribute.Int(tracing.AttrMissingCount, missing))
	if missing > 0 {
		return fmt.Errorf("%w: %d missing", environment.ErrMissingPrerequisites, missing)
	}
	return nil
}

func resolve(ctx context.Context, tracer trace.Tracer, r *environment.Resolver, s config.Settings) (
	doc *store.Document, table *environment.Table, report environment.Report, err error,
) {
	_, span := tracing.StartStage(ctx, tracer, tracing.SpanResolve,
		attribute.String(tracing.AttrStorePath, s.Store),
		attribute.String(tracing.AttrHostFile, s.HostFile))
	defer func() { tracing.EndStage(span, err) }()

	doc, err = store.Load(s.Store)
	if err != nil {
		return nil, nil, report, fmt.Errorf("loading configuration store: %w", err)
	}

	table, report, err = r.Resolve(doc)
	if err != nil {
		return nil, nil, report, err
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrEnvKeys, table.Len()),
		attribute.Bool(tracing.AttrMasterResolved, report.MasterErr == nil))
	return doc, table, report, nil
}

func generateScripts(ctx context.Context, tracer trace.Tracer, t *environment.Table, catalog store.Catalog) transfer.Scripts {
	_, span := tracing.StartStage(ctx, tracer, tracing.SpanScripts,
		attribute.Int(tracing.AttrEntityCount, len(catalog.Entities)),
		attribute.Int(tracing.AttrLeafCount, catalog.LeafCount()))
	defer tracing.EndStage(span, nil)

	return transfer.Generate(transfer.Input{
		Source:       paths.Parse(t.Value(environment.KeySourcePath)),
		Intermediate: paths.Parse(t.Value(environment.KeyIntermediatePath)),
		Target:       paths.Parse(t.Value(environment.KeyTargetPath)),
		Temporary:    paths.Parse(t.Value(environment.KeyTempPath)),
		Catalog:      catalog,
	})
}

func buildPlan(home string, t *environment.Table, scripts transfer.Scripts, general store.General) output.Plan {
	var plan output.Plan
	plan.Add(
		output.ExportFile(home, t),
		output.S3ConfigFile(home, t),
		output.ScriptFile(home, scripts.Download),
		output.ScriptFile(home, scripts.Upload),
	)
	plan.Add(output.SSHKeyFiles(home, general)...)
	return plan
}

func emitPlan(ctx context.Context, tracer trace.Tracer, plan output.Plan, dryRun bool) (diff string, err error) {
	_, span := tracing.StartStage(ctx, tracer, tracing.SpanOutput,
		attribute.Int(tracing.AttrFileCount, len(plan.Files)))
	defer func() { tracing.EndStage(span, err) }()

	if dryRun {
		return plan.Diff()
	}
	if err = plan.Write(); err != nil {
		return "", err
	}
	for _, f := range plan.Files {
		span.AddEvent(tracing.EventFileWritten, trace.WithAttributes(attribute.String("path", f.Path)))
	}
	return "", nil
}
