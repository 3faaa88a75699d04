package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notification — одно сообщение одному получателю.
type Notification struct {
	ChatID int64
	Text   string
}

// Sender отправляет сообщение во внешний мессенджер.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Dispatcher рассылает уведомления best-effort: ошибка доставки одному
// получателю логируется и не мешает остальным. Состояние (запись, отмена)
// к этому моменту уже зафиксировано в БД, поэтому ошибки не эскалируются.
type Dispatcher struct {
	sender Sender
	logger *zap.Logger
}

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Send отправляет пачку уведомлений, по одному на получателя.
func (d *Dispatcher) Send(ctx context.Context, notifications []Notification) {
	for _, n := range notifications {
		if err := d.sender.SendMessage(ctx, n.ChatID, n.Text); err != nil {
			d.logger.Warn("Failed to deliver notification",
				zap.Int64("chat_id", n.ChatID),
				zap.Error(err),
			)
		}
	}
}

// SendOne отправляет одно уведомление.
func (d *Dispatcher) SendOne(ctx context.Context, chatID int64, text string) {
	d.Send(ctx, []Notification{{ChatID: chatID, Text: text}})
}
