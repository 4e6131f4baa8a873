package chat

// Client message types. Anything else is answered with an error event.
const (
	ClientTypeSendMessage = "send_message"
	ClientTypePing        = "ping"
)

// WSClientMessage is the tagged union of everything a client may send.
// It is validated at the boundary before reaching business logic.
type WSClientMessage struct {
	Type    string `json:"type" validate:"required"`
	ID      string `json:"id,omitempty" validate:"max=64"` // client-chosen echo id for acks
	Content string `json:"content,omitempty"`
}

type WSServerMessage struct {
	Type         string                `json:"type"`
	ID           string                `json:"id,omitempty"`
	Success      bool                  `json:"success,omitempty"`
	Message      *MessageWithResponses `json:"message,omitempty"`
	ErrorCode    string                `json:"code,omitempty"`
	ErrorMessage string                `json:"message_text,omitempty"`
}

func NewAuthenticatedEvent() *WSServerMessage {
	return &WSServerMessage{
		Type:    "authenticated",
		Success: true,
	}
}

// NewMessageResultEvent acknowledges a send_message with the persisted
// message and all settled model results.
func NewMessageResultEvent(clientID string, msg *MessageWithResponses) *WSServerMessage {
	return &WSServerMessage{
		Type:    "message_result",
		ID:      clientID,
		Success: true,
		Message: msg,
	}
}

func NewPongEvent() *WSServerMessage {
	return &WSServerMessage{
		Type: "pong",
	}
}

func NewErrorEvent(code, message string) *WSServerMessage {
	return &WSServerMessage{
		Type:         "error",
		ErrorCode:    code,
		ErrorMessage: message,
	}
}
