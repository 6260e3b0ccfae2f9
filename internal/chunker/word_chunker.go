package chunker

import "strings"

// DefaultChunkSize is the accumulated size at which a chunk is emitted.
const DefaultChunkSize = 500

// WordChunker splits text into word-aligned chunks without overlap.
type WordChunker struct {
	chunkSize int
}

// NewWordChunker returns a chunker emitting a chunk once the accumulated size
// reaches chunkSize. Non-positive sizes fall back to DefaultChunkSize.
func NewWordChunker(chunkSize int) *WordChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &WordChunker{chunkSize: chunkSize}
}

// Size returns the configured chunk size.
func (c *WordChunker) Size() int { return c.chunkSize }

// Chunk splits text using the configured size.
func (c *WordChunker) Chunk(text string) []string {
	return Split(text, c.chunkSize)
}

// Split breaks text on whitespace and groups words into chunks. Every word
// counts len(word)+1 towards the running size; once it reaches chunkSize the
// buffered words are joined by single spaces and emitted. A short trailing
// chunk is kept.
func Split(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	var (
		chunks  []string
		current []string
		size    int
	)
	for _, w := range words {
		current = append(current, w)
		size += len(w) + 1
		if size >= chunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			size = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
