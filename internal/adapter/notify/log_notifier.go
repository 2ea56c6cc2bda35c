package notify

import (
	"context"

	"github.com/rl1809/cartstore/internal/platform/logger"
	"github.com/rl1809/cartstore/internal/port"
)

// LogNotifier writes user-facing notifications to the structured log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, msg port.Notification) {
	fields := []any{"title", msg.Title, "level", string(msg.Level)}
	if msg.Level == port.NotificationError {
		n.log.Warn(ctx, msg.Message, nil, fields...)
		return
	}
	n.log.Info(ctx, msg.Message, fields...)
}
