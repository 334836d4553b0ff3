package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Waqasabid99/agiAI/internal/api"
	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/service"
)

type QueryService interface {
	Answer(ctx context.Context, input service.AskInput) (*domain.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question string               `json:"question"`
	History  []domain.ChatMessage `json:"history"`
}

// ChatRequest is the widget's message shape.
type ChatRequest struct {
	Content             string               `json:"content"`
	Role                string               `json:"role"`
	ConversationHistory []domain.ChatMessage `json:"conversation_history"`
}

type ChatResponse struct {
	Content string   `json:"content"`
	Role    string   `json:"role"`
	Sources []string `json:"sources"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.svc.Answer(r.Context(), service.AskInput{
		Question: req.Question,
		History:  req.History,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// GetMsg answers a chat message and replies with the bot turn and the distinct
// source URLs it was grounded on.
func (h *QueryHandler) GetMsg(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Role != "" && req.Role != string(domain.ChatRoleUser) {
		api.Error(w, http.StatusBadRequest, "role must be user")
		return
	}

	result, err := h.svc.Answer(r.Context(), service.AskInput{
		Question: req.Content,
		History:  req.ConversationHistory,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Content: result.Answer,
		Role:    string(domain.ChatRoleBot),
		Sources: sourceURLs(result.Sources),
	})
}

func sourceURLs(sources []domain.Source) []string {
	urls := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if seen[s.SourceURL] {
			continue
		}
		seen[s.SourceURL] = true
		urls = append(urls, s.SourceURL)
	}
	return urls
}
