package domain

import "time"

// MessageType represents the classification of an inbound message
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
)

// InboundMessage represents one webhook delivery from the messaging gateway.
// Immutable; discarded after the processing pass completes.
type InboundMessage struct {
	Sender     string    `json:"sender"`     // opaque gateway address, stable per user
	Body       string    `json:"body"`       // text body, may be empty for voice notes
	NumMedia   int       `json:"numMedia"`   // attachment count
	MediaURL   string    `json:"mediaUrl"`   // first attachment URL, empty when NumMedia == 0
	MessageSID string    `json:"messageSid"` // gateway message id, used as correlation id
	ReceivedAt time.Time `json:"receivedAt"`
}

// Type classifies the message: any attachment wins over body text.
func (m InboundMessage) Type() MessageType {
	if m.NumMedia > 0 {
		return MessageTypeVoice
	}
	return MessageTypeText
}

// Transcription is the result of converting a voice note to text.
type Transcription struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`   // short tag, e.g. "en" or "es"
	Confidence float64 `json:"confidence"` // [0,1]
}

// AgentReply is the structured response from the conversational agent.
type AgentReply struct {
	Text       string                 `json:"text"`
	Intent     string                 `json:"intent"` // display name, "unknown" when no match
	Confidence float64                `json:"confidence"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Language   string                 `json:"language"`
}

// DeliveryReceipt records a successful outbound send.
type DeliveryReceipt struct {
	SID string `json:"sid"` // gateway tracking identifier
	To  string `json:"to"`
}
