// Package chunker splits extracted document text into bounded, overlapping
// segments for embedding.
package chunker

import "strings"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators are tried in priority order when choosing a cut point:
// paragraph break, line break, sentence end, word boundary. A raw
// character cut is the last resort.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits text into fixed-size chunks with overlap.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap leaves room for forward progress
	if s.overlap >= s.chunkSize/2 {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split produces an ordered sequence of chunks, each at most chunkSize
// characters, with consecutive chunks sharing overlap characters. Cut
// points prefer semantic boundaries. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	if total <= s.chunkSize {
		return []string{text}
	}

	estimated := total/(s.chunkSize-s.overlap) + 1
	chunks := make([]string, 0, estimated)

	start := 0
	for start < total {
		end := start + s.chunkSize
		if end >= total {
			chunks = append(chunks, string(runes[start:total]))
			break
		}

		cut := s.findCut(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - s.overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}

// findCut picks the cut position inside (start, end]. Each separator is
// only accepted in the second half of the window so boundary cuts never
// produce degenerate short chunks; failing all separators, the window is
// cut at full size.
func (s *Splitter) findCut(runes []rune, start, end int) int {
	min := start + s.chunkSize/2
	for _, sep := range separators {
		if cut := lastSeparator(runes, sep, min, end); cut > 0 {
			return cut
		}
	}
	return end
}

// lastSeparator finds the latest cut position within (min, end] that falls
// just after an occurrence of sep, or 0 if there is none.
func lastSeparator(runes []rune, sep string, min, end int) int {
	sepRunes := []rune(sep)
	n := len(sepRunes)
	for i := end - n; i >= min; i-- {
		if matchAt(runes, sepRunes, i) {
			return i + n
		}
	}
	return 0
}

func matchAt(runes, sep []rune, at int) bool {
	for j, r := range sep {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}
