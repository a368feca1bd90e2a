package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartsum/backend/internal/runner"
	"github.com/smartsum/backend/pkg/loader"
)

// JobMessage is the queue payload of one processing job.
type JobMessage struct {
	Message string     `json:"message,omitempty"`
	Job     runner.Job `json:"job"`
}

// EncodeJob serializes job for publishing.
func EncodeJob(job runner.Job, note string) ([]byte, error) {
	if job.DocumentID == "" {
		return nil, errors.New("job without document id")
	}
	return json.Marshal(JobMessage{Message: note, Job: job})
}

// DecodeJob parses a message body. Malformed bodies are permanent failures.
func DecodeJob(body []byte) (runner.Job, error) {
	var msg JobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return runner.Job{}, Permanent(fmt.Errorf("decode job: %w", err))
	}
	if msg.Job.DocumentID == "" {
		return runner.Job{}, Permanent(errors.New("job without document id"))
	}
	switch msg.Job.Source.Kind {
	case loader.SourceText, loader.SourceFile, loader.SourceURL, loader.SourceMedia:
	default:
		return runner.Job{}, Permanent(fmt.Errorf("job with unknown source kind %q", msg.Job.Source.Kind))
	}
	return msg.Job, nil
}
