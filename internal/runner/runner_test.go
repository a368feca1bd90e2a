package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartsum/backend/internal/storage"
	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/loader"
	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"
	"github.com/smartsum/backend/pkg/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	err  error
	text string
}

func (f *fakeProcessor) Process(ctx context.Context, rawText string, opts notes.Options) (*notes.Result, error) {
	f.text = rawText
	if f.err != nil {
		return nil, f.err
	}
	return &notes.Result{
		Report: notes.DocumentReport{
			OverallSummary: "Summary.",
			Segments: []notes.StructuredRecord{
				{Topic: "A", Summary: "a", SegmentID: 1},
				{Topic: "B", Summary: "b", SegmentID: 2},
			},
			Metadata: notes.ReportMetadata{Pipeline: notes.PipelineName, SegmentsTotal: 2},
		},
		Mindmap:        notes.OK("mindmap\n  root((A))"),
		SegmentVectors: map[int][]float32{1: {1, 0}, 2: {0, 1}},
	}, nil
}

type testEnv struct {
	runner    *Runner
	docs      *sqlite.Store
	outputDir string
	proc      *fakeProcessor
}

func newTestEnv(t *testing.T, proc *fakeProcessor) testEnv {
	t.Helper()
	dir := t.TempDir()
	docs, err := sqlite.Open(filepath.Join(dir, "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	outDir := filepath.Join(dir, "outputs")
	outputs, err := storage.NewFileStore(outDir)
	require.NoError(t, err)

	r := New(Params{
		Processor: proc,
		Loader:    loader.NewMux(),
		Documents: docs,
		Artifacts: outputs,
	})
	return testEnv{runner: r, docs: docs, outputDir: outDir, proc: proc}
}

func TestRun_Completes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProcessor{})

	doc, err := env.runner.Run(ctx, Job{Source: loader.Source{Kind: loader.SourceText, Text: " hello ", Name: "Team Sync.txt"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", env.proc.text)
	assert.Equal(t, store.StatusCompleted, doc.Status)
	assert.Equal(t, "Team_Sync_"+doc.ID+".json", doc.ReportKey)
	assert.Equal(t, "Team_Sync_"+doc.ID+"_mindmap.mmd", doc.MindmapKey)

	_, err = os.Stat(filepath.Join(env.outputDir, doc.ReportKey))
	assert.NoError(t, err)

	stored, err := env.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, stored.Status)
	require.NotNil(t, stored.Report)
	assert.Equal(t, "Summary.", stored.Report.OverallSummary)
	assert.Equal(t, "mindmap\n  root((A))", stored.Mindmap)

	hits, err := env.docs.SearchSegments(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "B", hits[0].Topic)
}

func TestRun_FailureMarksDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProcessor{err: ai.Fatal(errors.New("invalid api key"))})

	doc, err := env.runner.Run(ctx, Job{Source: loader.Source{Kind: loader.SourceText, Text: "hello"}})
	require.Error(t, err)
	assert.True(t, ai.IsFatal(err))

	stored, gerr := env.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, gerr)
	assert.Equal(t, store.StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "invalid api key")
}

func TestRun_LoadErrorMarksDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProcessor{})

	doc, err := env.runner.Run(ctx, Job{Source: loader.Source{Kind: loader.SourceURL, URL: "https://example.com"}})
	require.ErrorIs(t, err, loader.ErrUnsupportedSource)
	assert.Equal(t, store.StatusFailed, doc.Status)
}

func TestEnqueueThenRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProcessor{})

	job := Job{Source: loader.Source{Kind: loader.SourceText, Text: "hello", Name: "queued"}}
	queued, err := env.runner.Enqueue(ctx, &job)
	require.NoError(t, err)
	assert.Equal(t, store.StatusQueued, queued.Status)
	assert.Equal(t, queued.ID, job.DocumentID)

	doc, err := env.runner.Run(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, queued.ID, doc.ID)
	assert.Equal(t, store.StatusCompleted, doc.Status)

	docs, err := env.docs.ListDocuments(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStoreBytes(t *testing.T) {
	ctx := context.Background()
	fs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.Put(ctx, "abc/talk.mp4", []byte("media"), "video/mp4"))

	data, err := StoreBytes{Store: fs}.Load(ctx, loader.Source{Kind: loader.SourceMedia, Path: "abc/talk.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "media", string(data))
}
