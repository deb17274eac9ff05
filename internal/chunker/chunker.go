package chunker

import (
	"regexp"
	"strings"
)

// Splitter splits raw document text into overlapping passages bounded by a
// character budget, suitable for embedding.
type Splitter struct {
	maxSize int
	overlap int
}

// New creates a Splitter. maxSize is the soft chunk budget in characters,
// overlap the character budget carried between consecutive chunks.
func New(maxSize, overlap int) *Splitter {
	if maxSize <= 0 {
		maxSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	boundaryRe   = regexp.MustCompile(`[.!?]\s+`)
)

// Split normalizes whitespace, cuts the text into sentence-like units, and
// greedily packs them into chunks. The size bound is soft: a sentence is
// always appended whole before the budget check fires, so a single sentence
// longer than maxSize is never split. Empty or whitespace-only input yields
// no chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	var chunks []string
	current := ""
	for _, sentence := range splitSentences(text) {
		if current != "" && len(current)+len(sentence) > s.maxSize {
			chunks = append(chunks, strings.TrimSpace(current))
			current = s.overlapTail(current)
		}
		current += sentence + " "
	}
	if tail := strings.TrimSpace(current); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}

// overlapTail seeds the next buffer with the last overlap/4 words of the
// chunk just closed. Four characters approximates an average word, turning
// the character overlap budget into a word count.
func (s *Splitter) overlapTail(closed string) string {
	if s.overlap <= 0 {
		return ""
	}
	words := strings.Fields(closed)
	n := s.overlap / 4
	if n > len(words) {
		n = len(words)
	}
	if n == 0 {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ") + " "
}

// splitSentences cuts after '.', '!' or '?' followed by whitespace. This is
// a heuristic, not a sentence tokenizer: abbreviations are not special-cased,
// and decimals survive only because no whitespace follows their dot.
func splitSentences(text string) []string {
	var sentences []string
	prev := 0
	for _, loc := range boundaryRe.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[prev:loc[0]+1])
		prev = loc[1]
	}
	if prev < len(text) {
		sentences = append(sentences, text[prev:])
	}
	return sentences
}
