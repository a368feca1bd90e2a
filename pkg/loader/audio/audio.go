package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/loader"
	"github.com/smartsum/backend/pkg/logger"
)

// DefaultChunk keeps 16 kHz mono PCM chunks well under the 25 MB upload
// limit of hosted Whisper endpoints.
const DefaultChunk = 10 * time.Minute

// Converter turns arbitrary audio or video into mono 16 kHz WAV chunks.
type Converter interface {
	ToWav(ctx context.Context, media []byte, name string) ([][]byte, error)
}

// FFmpeg converts media with the ffmpeg binary.
type FFmpeg struct {
	// Path to the ffmpeg binary. Empty means "ffmpeg" on PATH.
	Path string
	// Chunk is the maximum duration of one output chunk. Zero means DefaultChunk.
	Chunk time.Duration
}

// ToWav extracts the audio track as 16-bit PCM, 16 kHz mono, split into
// chunks of at most Chunk duration.
func (f FFmpeg) ToWav(ctx context.Context, media []byte, name string) ([][]byte, error) {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	chunk := f.Chunk
	if chunk <= 0 {
		chunk = DefaultChunk
	}

	dir, err := os.MkdirTemp("", "notes-media-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".bin"
	}
	input := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(input, media, 0o600); err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-f", "segment",
		"-segment_time", strconv.Itoa(int(chunk.Seconds())),
		filepath.Join(dir, "chunk_%03d.wav"),
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	paths, err := filepath.Glob(filepath.Join(dir, "chunk_*.wav"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no audio for %s", name)
	}

	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// AudioLoader transcribes audio and video sources to text.
type AudioLoader struct {
	transcriber ai.Transcriber
	bytes       loader.ByteLoader
	converter   Converter
	language    string
}

// NewAudioLoaderParams contains configuration for creating an AudioLoader.
type NewAudioLoaderParams struct {
	Transcriber ai.Transcriber
	// Loader reads the raw media behind a source.
	Loader loader.ByteLoader
	// Converter defaults to FFmpeg{}.
	Converter Converter
	// Language is an optional ISO-639-1 hint for the transcriber.
	Language string
}

// NewAudioLoader creates a loader that converts media with ffmpeg and
// transcribes the result.
func NewAudioLoader(params NewAudioLoaderParams) *AudioLoader {
	conv := params.Converter
	if conv == nil {
		conv = FFmpeg{}
	}
	return &AudioLoader{
		transcriber: params.Transcriber,
		bytes:       params.Loader,
		converter:   conv,
		language:    params.Language,
	}
}

// LoadText converts the media to WAV chunks and joins their transcripts.
func (l *AudioLoader) LoadText(ctx context.Context, src loader.Source) (string, error) {
	media, err := l.bytes.Load(ctx, src)
	if err != nil {
		return "", err
	}
	if len(media) == 0 {
		return "", fmt.Errorf("media source %s is empty", loader.DisplayName(src))
	}

	chunks, err := l.converter.ToWav(ctx, media, src.Path)
	if err != nil {
		return "", err
	}
	logger.Debug("[Audio] Converted media", "source", loader.DisplayName(src), "chunks", len(chunks))

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		text, err := l.transcriber.GenerateAudioTranscription(ctx, chunk, fmt.Sprintf("chunk_%03d.wav", i), l.language)
		if err != nil {
			return "", fmt.Errorf("transcribe chunk %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
