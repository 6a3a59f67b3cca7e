package chunking

import "strings"

// Splitter cuts text into word-based windows with overlap, so chunk
// boundaries never land inside a word and neighbouring chunks share context.
type Splitter struct {
	ChunkWords   int
	OverlapWords int
}

func NewSplitter(chunkWords, overlapWords int) *Splitter {
	if chunkWords <= 0 {
		chunkWords = 1000
	}
	if overlapWords < 0 {
		overlapWords = 0
	}
	if overlapWords >= chunkWords {
		overlapWords = chunkWords / 5
	}
	return &Splitter{
		ChunkWords:   chunkWords,
		OverlapWords: overlapWords,
	}
}

func (s *Splitter) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := s.ChunkWords - s.OverlapWords
	if step <= 0 {
		step = s.ChunkWords
	}

	out := make([]string, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := start + s.ChunkWords
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.TrimSpace(strings.Join(words[start:end], " "))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(words) {
			break
		}
	}
	return out
}
