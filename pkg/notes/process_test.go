package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/ai/aitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineSplitter treats every non-empty line as a sentence.
type lineSplitter struct{}

func (lineSplitter) Split(text string) ([]string, error) {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// twoTopicText yields two 120-word sentences that embed orthogonally.
func twoTopicText() string {
	return "alpha " + strings.Repeat("apple ", 119) + "\n" + "omega " + strings.Repeat("orange ", 119)
}

func topicEmbedder(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if strings.HasPrefix(in, "alpha") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func scriptedPipeline(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Mermaid mindmap"):
		return "mindmap\n  root((Fruit))", nil
	case strings.Contains(prompt, "overall_summary"):
		return `{"overall_summary":"A talk about fruit.","keywords":["fruit","Apple"]}`, nil
	case strings.Contains(prompt, "alpha apple"):
		return `{"topic":"Apples","summary":"About apples.","key_points":["red"],"action_items":["buy apples"],"questions":[],"keywords":["apple"]}`, nil
	default:
		return `{"topic":"Oranges","summary":"About oranges.","key_points":["orange"],"action_items":[],"questions":["why?"],"keywords":["orange"]}`, nil
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Delay = 0
	return opts
}

func TestProcess_EmptyInput(t *testing.T) {
	stub := &aitest.Stub{}
	p := NewProcessor(ProcessorParams{Generator: stub, Embedder: stub, Splitter: lineSplitter{}})

	_, err := p.Process(context.Background(), " \n\t ", testOptions())
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, stub.CallCount())
	assert.Zero(t, stub.EmbedCount())
}

func TestProcess_FullRun(t *testing.T) {
	stub := &aitest.Stub{
		Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			return scriptedPipeline(prompt)
		},
		Embed: topicEmbedder,
	}
	p := NewProcessor(ProcessorParams{Generator: stub, Embedder: stub, Splitter: lineSplitter{}, Model: "chat-model"})

	res, err := p.Process(context.Background(), twoTopicText(), testOptions())
	require.NoError(t, err)

	report := res.Report
	require.Len(t, report.Segments, 2)
	assert.Equal(t, "Apples", report.Segments[0].Topic)
	assert.Equal(t, "Oranges", report.Segments[1].Topic)
	assert.Equal(t, "About apples. About oranges.", report.OverallSummary)
	assert.Equal(t, []string{"buy apples"}, report.AllActionItems)
	assert.Equal(t, []string{"why?"}, report.AllQuestions)
	assert.Equal(t, []string{"apple", "orange"}, report.AllKeywords)
	assert.Equal(t, ReportMetadata{Pipeline: PipelineName, Model: "chat-model", SegmentsTotal: 2}, report.Metadata)

	require.False(t, res.Mindmap.Skipped)
	assert.Equal(t, "mindmap\n  root((Fruit))", res.Mindmap.Value)
	assert.Equal(t, 1, stub.CallsContaining("Summary of: Apples, Oranges"))

	assert.Equal(t, []float32{1, 0}, res.SegmentVectors[1])
	assert.Equal(t, []float32{0, 1}, res.SegmentVectors[2])
	assert.Equal(t, 2, res.Batch.Extracted)
}

func TestProcess_OverallSummary(t *testing.T) {
	stub := &aitest.Stub{
		Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			return scriptedPipeline(prompt)
		},
		Embed: topicEmbedder,
	}
	p := NewProcessor(ProcessorParams{Generator: stub, Embedder: stub, Splitter: lineSplitter{}})

	opts := testOptions()
	opts.OverallSummary = true
	opts.Mindmap = false
	res, err := p.Process(context.Background(), twoTopicText(), opts)
	require.NoError(t, err)
	assert.Equal(t, "A talk about fruit.", res.Report.OverallSummary)
	assert.Equal(t, []string{"Apple", "fruit"}, res.Report.DocumentKeywords)
	assert.True(t, res.Mindmap.Skipped)
	assert.Zero(t, stub.CallsContaining("Mermaid mindmap"))
}

func TestProcess_SecondarySummary(t *testing.T) {
	stub := &aitest.Stub{
		Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			if opts.Model == "small" {
				return "Abstract.", nil
			}
			return scriptedPipeline(prompt)
		},
		Embed: topicEmbedder,
	}
	p := NewProcessor(ProcessorParams{Generator: stub, Embedder: stub, Splitter: lineSplitter{}, SecondaryModel: "small"})

	opts := testOptions()
	opts.SecondarySummary = true
	opts.Mindmap = false
	res, err := p.Process(context.Background(), twoTopicText(), opts)
	require.NoError(t, err)
	for _, r := range res.Report.Segments {
		assert.Equal(t, "Abstract.", r.SecondarySummary)
	}
}

func TestProcess_FatalErrorPropagates(t *testing.T) {
	stub := &aitest.Stub{
		Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			return "", ai.NewCallError(401, errors.New("bad key"))
		},
		Embed: topicEmbedder,
	}
	p := NewProcessor(ProcessorParams{Generator: stub, Embedder: stub, Splitter: lineSplitter{}})

	res, err := p.Process(context.Background(), twoTopicText(), testOptions())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, ai.IsFatal(err))
	assert.Equal(t, 1, stub.CallCount())
}

func TestProcess_MindmapFailureTolerated(t *testing.T) {
	stub := &aitest.Stub{
		Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			if strings.Contains(prompt, "Mermaid mindmap") {
				return "", fmt.Errorf("model overloaded")
			}
			return scriptedPipeline(prompt)
		},
		Embed: topicEmbedder,
	}
	p := NewProcessor(ProcessorParams{Generator: stub, Embedder: stub, Splitter: lineSplitter{}})

	res, err := p.Process(context.Background(), twoTopicText(), testOptions())
	require.NoError(t, err)
	assert.Len(t, res.Report.Segments, 2)
	assert.True(t, res.Mindmap.Skipped)
}

func TestProcess_NoSurvivingSegmentsSkipsMindmap(t *testing.T) {
	stub := &aitest.Stub{
		Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			if strings.Contains(prompt, "Mermaid mindmap") {
				return "mindmap\n  root((Invented))", nil
			}
			return "", errors.New("upstream timeout")
		},
		Embed: topicEmbedder,
	}
	p := NewProcessor(ProcessorParams{Generator: stub, Embedder: stub, Splitter: lineSplitter{}})

	res, err := p.Process(context.Background(), twoTopicText(), testOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Report.Segments)
	assert.Equal(t, 2, res.Report.Metadata.SegmentsDropped)
	assert.True(t, res.Mindmap.Skipped)
	assert.Zero(t, stub.CallsContaining("Mermaid mindmap"))
}

func TestProcess_WithoutEmbedder(t *testing.T) {
	stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
		return scriptedPipeline(prompt)
	}}
	p := NewProcessor(ProcessorParams{Generator: stub, Splitter: lineSplitter{}})

	opts := testOptions()
	opts.Mindmap = false
	res, err := p.Process(context.Background(), twoTopicText(), opts)
	require.NoError(t, err)
	// 240 words fit under the length bound, so no split without similarity
	assert.Len(t, res.Report.Segments, 1)
	assert.Nil(t, res.SegmentVectors)
}

func TestProcessor_Query(t *testing.T) {
	stub := &aitest.Stub{}
	p := NewProcessor(ProcessorParams{Generator: stub})

	res := p.Query(context.Background(), "", "x")
	assert.NotEmpty(t, res.Error)
	assert.Zero(t, stub.CallCount())
}
