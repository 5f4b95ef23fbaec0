package p2pwire

import "errors"

var (
	ErrMessageTooLarge      = errors.New("p2pwire: message too large")
	ErrInvalidMessage       = errors.New("p2pwire: invalid message")
	ErrInvalidToken         = errors.New("p2pwire: invalid token")
	ErrInvalidVersionFormat = errors.New("p2pwire: invalid version format")
)

var (
	ErrIncomplete  = errors.New("p2pwire: incomplete message")
	ErrUnencodable = errors.New("p2pwire: value can not be encoded")
)
