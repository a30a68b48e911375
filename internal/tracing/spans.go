package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names, one per pipeline stage.
const (
	SpanRun           = "pipeline.run"
	SpanPrerequisites = "pipeline.prerequisites"
	SpanResolve       = "pipeline.resolve"
	SpanScripts       = "pipeline.scripts"
	SpanOutput        = "pipeline.output"
)

// Span attribute keys.
const (
	AttrRunID          = "run.id"
	AttrDryRun         = "run.dry_run"
	AttrStorePath      = "store.path"
	AttrHostFile       = "host_file.path"
	AttrMissingCount   = "prerequisites.missing"
	AttrEnvKeys        = "environment.keys"
	AttrMasterResolved = "master.resolved"
	AttrEntityCount    = "catalog.entities"
	AttrLeafCount      = "catalog.leaves"
	AttrFileCount      = "output.files"
	AttrErrorMessage   = "error.message"
)

// Event names.
const (
	EventMasterUnresolved = "master.unresolved"
	EventFileWritten      = "file.written"
)

// StartStage starts a child span for a pipeline stage.
func StartStage(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndStage records err on span, if any, and ends it.
func EndStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
