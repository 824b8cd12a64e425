package server

import "strings"

// PromptMessage is one prior conversation message supplied as context.
type PromptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// WorkspaceContext carries optional editor-side context for an enhancement.
type WorkspaceContext struct {
	Model          string          `json:"model"`
	RecentMessages []PromptMessage `json:"recent_messages,omitempty"`
}

// EnhanceRequest is the request body of POST /api/v1/enhance.
type EnhanceRequest struct {
	Prompt           string            `json:"prompt"`
	Draft            string            `json:"draft"`
	RequestID        string            `json:"request_id"`
	Format           string            `json:"format"`
	Locale           string            `json:"locale"`
	CursorByteOffset *int              `json:"cursor_byte_offset,omitempty"`
	WorkspaceContext *WorkspaceContext `json:"workspace_context,omitempty"`
	Mode             string            `json:"mode"`
}

// PromptText returns the effective prompt: the draft when non-blank, else the
// prompt field, trimmed either way.
func (r *EnhanceRequest) PromptText() string {
	if draft := strings.TrimSpace(r.Draft); draft != "" {
		return draft
	}
	return strings.TrimSpace(r.Prompt)
}

// EnhanceResponse is the success body of POST /api/v1/enhance.
type EnhanceResponse struct {
	EnhancedPrompt string `json:"enhanced_prompt"`
}

// ErrorResponse is the structured error envelope for every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
