// Package notify posts run status messages to chat webhooks. Delivery is
// best effort: failures are logged and never reach the caller.
package notify

import (
	"context"

	"github.com/okian/gamesdesk/pkg/logger"
)

// Sender delivers one message to one destination.
type Sender interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Notifier fans a message out to every configured Sender.
type Notifier struct {
	senders []Sender
	log     logger.Logger
}

// New creates a Notifier. Nil senders are ignored; with none left Notify
// does nothing.
func New(senders ...Sender) *Notifier {
	n := &Notifier{log: logger.Named("notify")}
	for _, s := range senders {
		if s != nil {
			n.senders = append(n.senders, s)
		}
	}
	return n
}

// Notify sends text to every destination.
func (n *Notifier) Notify(ctx context.Context, text string) {
	if n == nil {
		return
	}
	for _, s := range n.senders {
		if err := s.Send(ctx, text); err != nil {
			n.log.Warn(ctx, "notification failed", logger.String("sink", s.Name()), logger.Error(err))
		}
	}
}

// Len is the number of destinations.
func (n *Notifier) Len() int {
	if n == nil {
		return 0
	}
	return len(n.senders)
}
