package notify

import (
	"context"
	"encoding/base64"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/pocket-matcher/internal/game"
)

// Presenter forwards session messages and board images to the presenter.
// It satisfies game.Messenger.
type Presenter struct {
	egress Egress
	logger *zap.Logger
}

var _ game.Messenger = (*Presenter)(nil)

func NewPresenter(egress Egress, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{egress: egress, logger: logger}
}

func (p *Presenter) ShowMessage(ctx context.Context, msg game.Message) error {
	err := p.egress.Send(ctx, Frame{
		Type:      FrameMessage,
		SessionID: msg.SessionID,
		Icon:      string(msg.Icon),
		Text:      msg.Text,
		Button:    msg.Button,
	})
	if err != nil {
		p.logger.Warn("presenter_message_error", zap.String("session_id", msg.SessionID), zap.Error(err))
		return err
	}
	p.logger.Debug("presenter_message", zap.String("session_id", msg.SessionID), zap.String("icon", string(msg.Icon)))
	return nil
}

// ShowBoard sends a rendered PNG.
func (p *Presenter) ShowBoard(ctx context.Context, sessionID string, png []byte) error {
	if len(png) == 0 {
		return errors.New("empty board image")
	}
	return p.egress.Send(ctx, Frame{
		Type:      FrameBoard,
		SessionID: sessionID,
		Image:     base64.StdEncoding.EncodeToString(png),
	})
}
