package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"
)

// Mindmapper renders a concept as a Mermaid mindmap.
type Mindmapper struct {
	gen   ai.Generator
	model string
}

// NewMindmapper returns a Mindmapper using gen. model may be empty.
func NewMindmapper(gen ai.Generator, model string) *Mindmapper {
	return &Mindmapper{gen: gen, model: model}
}

// Generate asks for a Mermaid mindmap of concept and returns the bare
// diagram. Failures are logged and reported as skipped, never returned.
func (m *Mindmapper) Generate(ctx context.Context, concept string) Optional[string] {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return Skip[string]("empty concept")
	}
	if m.gen == nil {
		return Skip[string]("generation client not configured")
	}

	raw, err := m.gen.GenerateCompletion(
		ctx,
		fmt.Sprintf(ai.MindmapPrompt, concept),
		ai.WithModel(m.model),
		ai.WithTemperature(extractTemperature),
	)
	if err != nil {
		logger.Warn("[Mindmap] Generation failed", "err", err)
		return Skip[string]("generation failed: %v", err)
	}

	diagram := CleanDiagram(raw)
	if diagram == "" {
		logger.Warn("[Mindmap] Model returned an empty diagram")
		return Skip[string]("empty diagram")
	}
	return OK(diagram)
}

// CleanDiagram strips code fences and any chatter before the mindmap
// header, leaving bare Mermaid syntax.
func CleanDiagram(raw string) string {
	s := strings.ReplaceAll(raw, "```mermaid", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "mindmap") {
		return s
	}
	if idx := strings.Index(s, "\nmindmap"); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}

// ConceptFromReport builds the default mindmap concept from segment topics.
// It returns "" when no segment has a topic.
func ConceptFromReport(report DocumentReport) string {
	topics := make([]string, 0, len(report.Segments))
	for _, rec := range report.Segments {
		if t := strings.TrimSpace(rec.Topic); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return ""
	}
	return "Summary of: " + strings.Join(topics, ", ")
}
