package notify

// Frame is what the presenter receives, over HTTP or WebSocket.
type Frame struct {
	Type      string `json:"type"` // "message" | "board"
	SessionID string `json:"session_id"`
	Icon      string `json:"icon,omitempty"`
	Text      string `json:"text,omitempty"`
	Button    string `json:"button,omitempty"`
	// Image is a base64 PNG for board frames.
	Image string `json:"image,omitempty"`
}

const (
	FrameMessage = "message"
	FrameBoard   = "board"
)

// Event is sent back by the presenter, e.g. when a message button is pressed.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Button    string `json:"button,omitempty"`
}

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}
