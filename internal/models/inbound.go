package models

// InboundEvent is one message as delivered by the chat gateway, the
// webhook or the web widget.
type InboundEvent struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id"`
	Kind           string `json:"kind"` // text|voice|media
	Text           string `json:"text"`

	AudioURL    string `json:"audio_url,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Language    string `json:"language,omitempty"`

	DisplayName string `json:"display_name,omitempty"`
	ReplyTo     string `json:"reply_to,omitempty"`
	Channel     string `json:"channel,omitempty"`
}
