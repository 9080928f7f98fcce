package notify

import "errors"

var (
	// ErrBadWebhook is returned for a webhook URL that cannot be used.
	ErrBadWebhook = errors.New("invalid webhook url")
	// ErrRejected is returned when a webhook answers with a non-2xx status.
	ErrRejected = errors.New("webhook rejected the message")
)
