package p2pwire

import "strings"

// WriteCommand starts a new message with cmd, discarding whatever the buffer
// held.
func (b *Buffer) WriteCommand(cmd string) bool {
	if len(cmd) > MaxBufferSize {
		return false
	}
	b.n = copy(b.data[:], cmd)
	return true
}

// AppendParam appends a space and param, quoting and escaping it when needed.
// It returns false, leaving the used length untouched, when the parameter does
// not fit or can not be represented on the wire (see CanEncode).
// A '*' is written as \* rather than ** so the tokenizer decodes it back to a
// single '*'; peers that write ** also decode \* as '*'.
func (b *Buffer) AppendParam(param string) bool {
	if !CanEncode(param) {
		return false
	}
	n, ok := appendParam(b.data[:], b.n, param)
	if !ok {
		return false
	}
	b.n = n
	return true
}

// Finalize terminates the message.
func (b *Buffer) Finalize() bool {
	n, ok := putByte(b.data[:], b.n, terminator)
	if !ok {
		return false
	}
	b.n = n
	return true
}

// CanEncode reports whether param survives an EncodeMessage/DecodeMessage
// round trip. A quoted LF decodes fine from a Buffer but Conn refuses it. Empty
// parameters have no encoding, a bare parameter may not open with a quote and
// a quoted one may not contain one.
func CanEncode(param string) bool {
	if param == "" {
		return false
	}
	if needsQuoting(param) {
		return strings.IndexByte(param, '"') < 0
	}
	return param[0] != '"'
}

func needsQuoting(param string) bool {
	return strings.ContainsAny(param, " \n*\\")
}

func appendParam(dst []byte, n int, param string) (int, bool) {
	n, ok := putByte(dst, n, ' ')
	if !ok {
		return n, false
	}

	if !needsQuoting(param) {
		if n+len(param) > len(dst) {
			return n, false
		}
		return n + copy(dst[n:], param), true
	}

	if n, ok = putByte(dst, n, '"'); !ok {
		return n, false
	}
	for i := 0; i < len(param); i++ {
		c := param[i]
		if c == '\\' || c == '*' {
			if n, ok = putByte(dst, n, '\\'); !ok {
				return n, false
			}
		}
		if n, ok = putByte(dst, n, c); !ok {
			return n, false
		}
	}
	return putByte(dst, n, '"')
}
