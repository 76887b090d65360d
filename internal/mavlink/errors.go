package mavlink

import "errors"

var (
	ErrUnknownMessage = errors.New("mavlink: message has no wire definition")
	ErrInvalidMessage = errors.New("mavlink: invalid message field")
	ErrIDTooLarge     = errors.New("mavlink: message id does not fit a v1 frame")
)
