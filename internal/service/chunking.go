package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// charsPerToken approximates the tokenizer: 4 characters ≈ 1 token.
const charsPerToken = 4

// ChunkConfig controls chunking of scraped page text. Sizes are in approximate tokens.
type ChunkConfig struct {
	TargetTokens  int
	OverlapTokens int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		TargetTokens:  250,
		OverlapTokens: 50,
	}
}

func (c ChunkConfig) normalized() ChunkConfig {
	if c.TargetTokens <= 0 {
		return DefaultChunkConfig()
	}
	if c.OverlapTokens < 0 {
		c.OverlapTokens = 0
	}
	if c.OverlapTokens >= c.TargetTokens {
		c.OverlapTokens = c.TargetTokens - 1
	}
	return c
}

// ChunkText splits text into ordered chunks of roughly cfg.TargetTokens tokens.
// Sentences are never split; a sentence longer than the target becomes its own chunk.
// Every chunk after the first starts with the trailing words of the previous chunk,
// in proportion OverlapTokens/TargetTokens.
func ChunkText(text string, cfg ChunkConfig) []string {
	cfg = cfg.normalized()
	segments := splitSentences(text)
	if len(segments) == 0 {
		return nil
	}

	limit := cfg.TargetTokens * charsPerToken
	chunks := make([]string, 0, len(segments)/4+1)
	var buf strings.Builder

	for _, seg := range segments {
		if buf.Len() > 0 && utf8.RuneCountInString(buf.String())+1+utf8.RuneCountInString(seg) > limit {
			closed := buf.String()
			chunks = append(chunks, closed)
			buf.Reset()
			if tail := overlapTail(closed, cfg); tail != "" {
				buf.WriteString(tail)
			}
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(seg)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// overlapTail returns the trailing words of chunk that seed the next one.
func overlapTail(chunk string, cfg ChunkConfig) string {
	words := strings.Fields(chunk)
	n := overlapWordCount(len(words), cfg)
	if n == 0 {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}

// overlapWordCount is floor(words*overlap/target), but never below one word
// while overlap is enabled, so short chunks still carry into the next.
func overlapWordCount(words int, cfg ChunkConfig) int {
	if cfg.OverlapTokens == 0 || words == 0 {
		return 0
	}
	return max(1, words*cfg.OverlapTokens/cfg.TargetTokens)
}

// splitSentences cuts text after runs of '.', '!' or '?' that are followed by
// whitespace or the end of input. Segments are trimmed; blank ones are dropped.
func splitSentences(text string) []string {
	runes := []rune(text)
	segments := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isSentenceEnd(runes[end]) {
			end++
		}
		i = end - 1
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if seg := strings.TrimSpace(string(runes[start:end])); seg != "" {
			segments = append(segments, seg)
		}
		start = end
	}
	if start < len(runes) {
		if seg := strings.TrimSpace(string(runes[start:])); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
