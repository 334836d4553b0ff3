package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxExcerptChars bounds Source.Excerpt, ellipsis included.
const MaxExcerptChars = 200

const excerptEllipsis = "..."

// Source cites one retrieved chunk in a QueryResult. Index is 1-based and matches
// the "[Source N]" marker the answer was generated from.
type Source struct {
	Index       int     `json:"index"`
	Excerpt     string  `json:"excerpt"`
	SourceURL   string  `json:"source_url"`
	SourceTitle string  `json:"source_title"`
	Score       float32 `json:"score"`
}

// QueryResult is the grounded answer to one question. It is never persisted.
type QueryResult struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Fallback bool     `json:"fallback"`
}

// ChatRole identifies the author of a conversation turn.
type ChatRole string

const (
	ChatRoleUser ChatRole = "user"
	ChatRoleBot  ChatRole = "bot"
)

// ChatMessage is one prior turn of the conversation sent along with a question.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// IsValidChatRole checks if a ChatRole is valid
func IsValidChatRole(r ChatRole) bool {
	switch r {
	case ChatRoleUser, ChatRoleBot:
		return true
	}
	return false
}

// Excerpt shortens text to at most MaxExcerptChars runes, marking truncation with "...".
func Excerpt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= MaxExcerptChars {
		return text
	}
	runes := []rune(text)
	cut := MaxExcerptChars - utf8.RuneCountInString(excerptEllipsis)
	return strings.TrimRight(string(runes[:cut]), " ") + excerptEllipsis
}

// SourcesFrom builds the cited sources for retrieved chunks, keeping their order.
func SourcesFrom(retrieved []RetrievedChunk) []Source {
	sources := make([]Source, 0, len(retrieved))
	for i, r := range retrieved {
		sources = append(sources, Source{
			Index:       i + 1,
			Excerpt:     Excerpt(r.Chunk.Text),
			SourceURL:   r.Chunk.SourceURL,
			SourceTitle: r.Chunk.SourceTitle,
			Score:       r.Score,
		})
	}
	return sources
}
