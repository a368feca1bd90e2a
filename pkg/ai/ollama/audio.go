package ollama

import (
	"context"
	"fmt"

	"github.com/smartsum/backend/pkg/ai"
)

// GenerateAudioTranscription is not supported by Ollama. The error is fatal
// so callers do not retry it.
func (c *NotesOllamaClient) GenerateAudioTranscription(
	ctx context.Context,
	audio []byte,
	fileName string,
	language string,
) (string, error) {
	return "", ai.Fatal(fmt.Errorf("ollama audio transcription: %w", ai.ErrUnsupported))
}
