// Package splitter cleans raw transcript text and splits it into sentences.
package splitter

import (
	"strings"
	"sync"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Splitter turns raw text into an ordered list of cleaned sentences.
type Splitter interface {
	Split(text string) ([]string, error)
}

// SentenceSplitter uses the Punkt tokenizer trained on English text.
type SentenceSplitter struct {
	once      sync.Once
	tokenizer *sentences.DefaultSentenceTokenizer
	err       error
}

// NewSentenceSplitter returns a splitter whose tokenizer is loaded lazily
// on first use.
func NewSentenceSplitter() *SentenceSplitter {
	return &SentenceSplitter{}
}

// Split cleans text and tokenizes it. Empty or whitespace-only sentences
// are dropped.
func (s *SentenceSplitter) Split(text string) ([]string, error) {
	s.once.Do(func() {
		s.tokenizer, s.err = english.NewSentenceTokenizer(nil)
	})
	if s.err != nil {
		return nil, s.err
	}

	cleaned := Clean(text)
	if cleaned == "" {
		return nil, nil
	}

	tokens := s.tokenizer.Tokenize(cleaned)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		sentence := strings.TrimSpace(t.Text)
		if sentence == "" {
			continue
		}
		out = append(out, sentence)
	}
	return out, nil
}

// Clean removes control characters and collapses all whitespace runs into
// single spaces.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r), r == '\uFEFF', r == unicode.ReplacementChar:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
