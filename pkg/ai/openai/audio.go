package openai

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateAudioTranscription transcribes audio data to text using the configured audio model.
// The language parameter is optional and can be used to hint the expected language.
func (c *NotesOpenAIClient) GenerateAudioTranscription(
	ctx context.Context,
	audio []byte,
	fileName string,
	language string,
) (string, error) {
	if c.AudioClient == nil {
		return "", ai.Fatal(fmt.Errorf("audio %w", errNotConfigured))
	}
	if fileName == "" {
		fileName = "audio.wav"
	}

	params := openai.AudioTranscriptionNewParams{
		File:        openai.File(bytes.NewReader(audio), fileName, "audio/wav"),
		Model:       openai.AudioModel(c.audioModel),
		Temperature: openai.Float(0),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	rCtx, release, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	transcription, err := c.AudioClient.Audio.Transcriptions.New(rCtx, params)
	if err != nil {
		return "", classify(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		DurationMs: time.Since(start).Milliseconds(),
		Requests:   1,
	})

	return transcription.Text, nil
}
