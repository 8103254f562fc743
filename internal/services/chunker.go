package services

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs whole sentences into chunks of at most maxChunkSize runes. A chunk starts with
// the last overlap runes of the previous one when the next sentence still fits. A single sentence
// longer than maxChunkSize becomes its own chunk.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var chunks []string
	var current strings.Builder
	size := 0
	fresh := false

	flush := func() {
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		size = 0
		fresh = false

		if tail := lastRunes(chunk, overlap); tail != "" {
			current.WriteString(tail)
			size = utf8.RuneCountInString(tail)
		}
	}

	for _, sentence := range splitIntoSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if size > 0 && size+n+1 > maxChunkSize {
			if fresh {
				flush()
			}
			// Overlap alone does not leave room for the sentence.
			if size > 0 && size+n+1 > maxChunkSize {
				current.Reset()
				size = 0
			}
		}
		if size > 0 {
			current.WriteString(" ")
			size++
		}
		current.WriteString(sentence)
		size += n
		fresh = true
	}

	if fresh {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitIntoSentences splits on line breaks and sentence punctuation, keeping the punctuation.
func splitIntoSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	emit := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	for _, r := range text {
		switch r {
		case '\n':
			emit()
		case '.', '!', '?':
			b.WriteRune(r)
			emit()
		default:
			b.WriteRune(r)
		}
	}
	emit()

	return sentences
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
