package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Egress delivers frames to the presenter.
type Egress interface {
	Send(ctx context.Context, f Frame) error
}

const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
)

// NewEgress picks a transport. Auto prefers a connected WebSocket and falls
// back to HTTP once per frame.
func NewEgress(mode string, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModeWS:
		return &wsEgress{ws: ws}
	case ModeAuto:
		return &autoEgress{ws: &wsEgress{ws: ws}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) Send(ctx context.Context, f Frame) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.Send(ctx, f)
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) Send(ctx context.Context, f Frame) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	return w.ws.WriteFrame(ctx, f)
}

func (w *wsEgress) ready() bool { return w != nil && w.ws != nil && w.ws.Connected() }

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Send(ctx context.Context, f Frame) error {
	if a.ws.ready() {
		err := a.ws.Send(ctx, f)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", f.Type), zap.String("session_id", f.SessionID), zap.Error(err))
	}
	return a.http.Send(ctx, f)
}
