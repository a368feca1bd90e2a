// Package aitest provides a scripted ai.Client for tests.
package aitest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/smartsum/backend/pkg/ai"
)

// Call records one GenerateCompletion invocation.
type Call struct {
	Prompt  string
	Options ai.GenerateOptions
}

// Stub is an ai.Client whose behavior is supplied by function fields.
// Nil functions fall back to harmless defaults. Stub is safe for concurrent use.
type Stub struct {
	Generate   func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error)
	Embed      func(ctx context.Context, inputs []string) ([][]float32, error)
	Transcribe func(ctx context.Context, audio []byte, fileName string) (string, error)

	mu     sync.Mutex
	calls  []Call
	embeds int
}

// GenerateCompletion records the call and delegates to Generate.
func (s *Stub) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{}, opts...)

	s.mu.Lock()
	s.calls = append(s.calls, Call{Prompt: prompt, Options: options})
	s.mu.Unlock()

	if s.Generate == nil {
		return "{}", nil
	}
	return s.Generate(ctx, prompt, options)
}

// GenerateEmbeddings delegates to Embed, or returns a constant vector per input.
func (s *Stub) GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	s.mu.Lock()
	s.embeds++
	s.mu.Unlock()

	if s.Embed != nil {
		return s.Embed(ctx, inputs)
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// GenerateAudioTranscription delegates to Transcribe.
func (s *Stub) GenerateAudioTranscription(ctx context.Context, audio []byte, fileName, language string) (string, error) {
	if s.Transcribe == nil {
		return "", errors.New("transcription not scripted")
	}
	return s.Transcribe(ctx, audio, fileName)
}

func (s *Stub) ResetMetrics() {}

func (s *Stub) GetMetrics() ai.ModelMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ai.ModelMetrics{Requests: len(s.calls)}
}

// Calls returns a copy of all recorded completion calls.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of completion calls so far.
func (s *Stub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// CallsContaining counts completion calls whose prompt contains substr.
func (s *Stub) CallsContaining(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.Contains(c.Prompt, substr) {
			n++
		}
	}
	return n
}

// EmbedCount returns the number of embedding calls so far.
func (s *Stub) EmbedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embeds
}

var _ ai.Client = (*Stub)(nil)
