package models

// OutboundMessageRequest represents requests to push a chat message manually via the API.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// AutomationReply is the usage hint sent back when a command cannot be executed.
type AutomationReply struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
