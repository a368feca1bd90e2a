package ai

// ExtractNotesPrompt asks for the structured record of one transcript segment.
// It takes the segment text.
const ExtractNotesPrompt = `
# Task Context
You are a note-taking assistant. You turn one segment of a transcript into structured notes.

# Detailed Task Description & Rules
- topic: a brief title for the segment (max 8 words)
- summary: a concise summary of the segment (2-4 sentences)
- key_points: 3-5 short bullet points
- action_items: tasks or follow-ups explicitly mentioned, otherwise an empty list
- questions: open questions raised in the segment, otherwise an empty list
- keywords: 5 keywords, lowercase
- Only use information contained in the segment.

# Segment
%s

# Output
Return ONLY a JSON object with the keys topic, summary, key_points, action_items, questions, keywords.
`

// SecondarySummaryPrompt asks for an abstractive re-summary of one segment.
const SecondarySummaryPrompt = `
Write an abstractive summary of the following transcript segment in at most three sentences.
Do not add information that is not in the text. Return only the summary.

Text:
%s
`

// OverallSummaryPrompt condenses per-segment notes into a document summary.
// It takes the numbered list of segment topics and summaries.
const OverallSummaryPrompt = `
# Task Context
You receive the notes of consecutive segments of one transcript.

# Segment Notes
%s

# Detailed Task Description & Rules
- overall_summary: one coherent summary of the whole document (4-8 sentences)
- keywords: up to 10 keywords describing the whole document, lowercase
- Do not invent content that is not covered by the notes.

# Output
Return ONLY a JSON object with the keys overall_summary and keywords.
`

// MindmapPrompt asks for a bare Mermaid mindmap. It takes the concept.
const MindmapPrompt = `Create a Mermaid mindmap for: "%s".
Return ONLY the code starting with 'mindmap' and 'root((...))'. No markdown, no explanations.`

// KeywordNotFound is the phrase the model must use when the keyword is absent.
const KeywordNotFound = "No relevant information found for this topic."

// KeywordSystemPrompt restricts generation to the requested keyword.
// It takes the keyword.
const KeywordSystemPrompt = `You are a precise information extraction assistant.
Your task is to extract and summarize ONLY the information related to the topic '%s'.
- Ignore all unrelated content
- Do not add new information
- If the topic is not mentioned, say:
'` + KeywordNotFound + `'`

// KeywordUserPrompt carries the text to search. It takes the text.
const KeywordUserPrompt = `
Return ONLY valid JSON with the following fields:
- topic
- summary
- key_points
- related_concepts

Text:
%s
`
