package mail

import "errors"

var (
	// ErrMissingLabel is returned when a game has no label configured.
	ErrMissingLabel = errors.New("no mail label configured")
	// ErrDecodeBody is returned when a MIME part body is not valid base64url.
	ErrDecodeBody = errors.New("message body could not be decoded")
)
