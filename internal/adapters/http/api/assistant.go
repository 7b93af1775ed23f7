// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/formacao/internal/adapters/advisor"
)

// AssistantDependencies defines the interface for the AI assistant.
type AssistantDependencies interface {
	Ask(ctx context.Context, apiKey, question string) (advisor.Result, error)
	Classify(ctx context.Context, apiKey, eventName string) (advisor.Result, error)
}

// AssistantHandler handles assistant requests.
type AssistantHandler struct {
	deps AssistantDependencies
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(deps AssistantDependencies) *AssistantHandler {
	return &AssistantHandler{deps: deps}
}

type askRequest struct {
	Question string `json:"question"`
	APIKey   string `json:"api_key,omitempty"`
}

type classifyRequest struct {
	EventName string `json:"event_name"`
	APIKey    string `json:"api_key,omitempty"`
}

// assistantResponse always carries a displayable text; outcome tells the
// caller whether it came from the model.
type assistantResponse struct {
	Text    string `json:"text"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func toResponse(res advisor.Result) assistantResponse {
	return assistantResponse{Text: res.Text, Outcome: string(res.Outcome), Error: res.Error()}
}

// HandleAsk handles POST /assistant/ask.
func (h *AssistantHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	const op = "api.assistant_ask"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Ask(r.Context(), apiKeyFrom(r, req.APIKey), req.Question)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

// HandleClassify handles POST /assistant/classify.
func (h *AssistantHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.assistant_classify"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Classify(r.Context(), apiKeyFrom(r, req.APIKey), req.EventName)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}
