package chunker

import (
	"fmt"

	"cs-support/internal/domain"
)

// WindowChunker splits text into fixed-size character windows where
// consecutive chunks overlap by exactly the configured overlap. The final
// chunk may be shorter than the window size. Output is deterministic for
// identical input and configuration.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// NewWindowChunker validates the sizing and returns a chunker.
// Overlap must be strictly smaller than the chunk size, otherwise the
// window could never advance.
func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidChunking, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", domain.ErrInvalidChunking, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidChunking, overlap, chunkSize)
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk produces the window sequence for the given text. Window size and
// overlap are measured in characters and boundaries never split a
// multibyte rune; chunk i starts at character i*(chunkSize-overlap).
// Start and End are the byte offsets of the window's rune boundaries, so
// Text always equals text[Start:End].
func (c *WindowChunker) Chunk(text string) ([]domain.Chunk, error) {
	if len(text) == 0 {
		return nil, nil
	}
	// byte offset of every rune start, plus the end of the text
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	step := c.chunkSize - c.overlap
	total := len(offsets) - 1
	var chunks []domain.Chunk
	for start, idx := 0, 0; start < total; start, idx = start+step, idx+1 {
		end := start + c.chunkSize
		if end > total {
			end = total
		}
		chunks = append(chunks, domain.Chunk{
			Index: idx,
			Start: offsets[start],
			End:   offsets[end],
			Text:  text[offsets[start]:offsets[end]],
		})
		if end == total {
			break
		}
	}
	return chunks, nil
}
