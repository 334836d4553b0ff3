package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Waqasabid99/agiAI/internal/domain"
)

// GenerationClient produces a completion for a system instruction and a user prompt.
// Failures are AUTH_FAILED, RATE_LIMITED or GENERATION_UNAVAILABLE domain errors.
type GenerationClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// FallbackAnswer is returned without calling the generator when nothing relevant is indexed.
const FallbackAnswer = "I could not find that information in the website content I have indexed."

// SystemPrompt constrains the model to the supplied context.
const SystemPrompt = `You are a helpful assistant for this website. Answer the user's question using ONLY the information in the provided context.
If the context does not contain enough information to answer, say clearly that you cannot answer from the website content.
Do not make up facts, prices, policies or links that are not in the context.
When it helps, mention which source section you used, for example "(Source 2)".`

func buildContext(retrieved []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, r := range retrieved {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d]: %s", i+1, r.Chunk.Text)
	}
	return b.String()
}

func buildUserPrompt(contextText string, history []domain.ChatMessage, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range history {
			role := "User"
			if msg.Role == domain.ChatRoleBot {
				role = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, strings.TrimSpace(msg.Content))
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// lastMessages keeps the most recent n valid, non-empty turns.
func lastMessages(history []domain.ChatMessage, n int) []domain.ChatMessage {
	if n <= 0 {
		return nil
	}
	kept := make([]domain.ChatMessage, 0, len(history))
	for _, msg := range history {
		if !domain.IsValidChatRole(msg.Role) || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		kept = append(kept, msg)
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}
