package p2pwire

// Handshake command.
const CmdGetVersion = "GET_VERSION"

// Error signals sent back by the session layer when a peer's message can not be
// handled. The codec never emits these itself.
const (
	CmdInvalidFormat  = "INVALID_FORMAT"
	CmdInvalidCommand = "INVALID_COMMAND"
	CmdInvalidData    = "INVALID_DATA"
)

// IsErrorSignal reports whether cmd is one of the reserved error replies.
func IsErrorSignal(cmd string) bool {
	switch cmd {
	case CmdInvalidFormat, CmdInvalidCommand, CmdInvalidData:
		return true
	}
	return false
}
