package service

import (
	"context"
	"fmt"

	"chakula-delivery/internal/common/logger"
	"chakula-delivery/internal/notification/model"
)

// LogSender stands in for an external channel provider: it logs the
// delivery and reports success. Real push/email/SMS integrations
// implement ChannelSender the same way.
type LogSender struct {
	Channel model.Channel
}

func (l *LogSender) Send(_ context.Context, n model.Notification) error {
	logger.Info("notification_sent",
		fmt.Sprintf("[%s] %s -> %s: %s", l.Channel, n.Title, n.RecipientID, n.Message),
		"", n.OrderID)
	return nil
}

// DefaultSenders returns the stub sender set covering every channel.
func DefaultSenders() map[model.Channel]ChannelSender {
	return map[model.Channel]ChannelSender{
		model.ChannelPush:     &LogSender{Channel: model.ChannelPush},
		model.ChannelEmail:    &LogSender{Channel: model.ChannelEmail},
		model.ChannelSMS:      &LogSender{Channel: model.ChannelSMS},
		model.ChannelRealtime: &LogSender{Channel: model.ChannelRealtime},
	}
}
