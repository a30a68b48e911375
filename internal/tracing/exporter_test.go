package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func readRecords(t *testing.T, path string) []SpanRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []SpanRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestNewFileExporter_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "traces.jsonl")

	exporter, err := NewFileExporter(path)
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileExporter_WritesStagesAsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"earlier"}`+"\n"), 0o600))

	exporter, err := NewFileExporter(path)
	require.NoError(t, err)

	provider := NewProviderWithExporter(DefaultConfig(), exporter)
	ctx, run := StartStage(context.Background(), provider.Tracer(), SpanRun)
	_, scripts := StartStage(ctx, provider.Tracer(), SpanScripts, attribute.Int(AttrLeafCount, 4))
	scripts.AddEvent(EventFileWritten, trace.WithAttributes(attribute.String("file", "download_files.sh")))
	EndStage(scripts, nil)
	EndStage(run, errors.New("boom"))
	require.NoError(t, provider.Shutdown(context.Background()))

	records := readRecords(t, path)
	require.Len(t, records, 3, "existing content is kept")
	require.Equal(t, "earlier", records[0].Name)

	stage, run2 := records[1], records[2]
	require.Equal(t, SpanScripts, stage.Name)
	require.Equal(t, run2.SpanID, stage.ParentID)
	require.Equal(t, run2.TraceID, stage.TraceID)
	require.Equal(t, "OK", stage.Status)
	require.EqualValues(t, 4, stage.Attributes[AttrLeafCount])
	require.Len(t, stage.Events, 1)
	require.Equal(t, "download_files.sh", stage.Events[0].Attributes["file"])

	require.Equal(t, SpanRun, run2.Name)
	require.Empty(t, run2.ParentID)
	require.Equal(t, "ERROR", run2.Status)
	require.Equal(t, "boom", run2.StatusMsg)
}

func TestFileExporter_ShutdownTwiceAndExportAfter(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "t.jsonl"))
	require.NoError(t, err)

	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()))
	require.Error(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{nil}))
}
