package p2pwire

import (
	"fmt"
	"strings"
)

// Message is a decoded command and its parameters.
type Message struct {
	Command string
	Params  []string
}

func NewMessage(cmd string, params ...string) Message {
	return Message{Command: cmd, Params: params}
}

// Param returns the i'th parameter.
func (m Message) Param(i int) (string, bool) {
	if i < 0 || i >= len(m.Params) {
		return "", false
	}
	return m.Params[i], true
}

func (m Message) String() string {
	if len(m.Params) == 0 {
		return m.Command
	}
	return m.Command + " " + strings.Join(m.Params, " ")
}

// EncodeMessage writes m into b as one terminated message. On failure the
// buffer is reset; a partially built message must never be sent.
func EncodeMessage(b *Buffer, m Message) error {
	if !validCommand(m.Command) {
		b.Reset()
		return fmt.Errorf("%w: command %q", ErrUnencodable, m.Command)
	}
	if !b.WriteCommand(m.Command) {
		b.Reset()
		return fmt.Errorf("%w: command", ErrMessageTooLarge)
	}
	for i, p := range m.Params {
		if !CanEncode(p) {
			b.Reset()
			return fmt.Errorf("%w: param %d %q", ErrUnencodable, i, p)
		}
		if !b.AppendParam(p) {
			b.Reset()
			return fmt.Errorf("%w: param %d", ErrMessageTooLarge, i)
		}
	}
	if !b.Finalize() {
		b.Reset()
		return fmt.Errorf("%w: terminator", ErrMessageTooLarge)
	}
	return nil
}

// DecodeMessage scans b and, if it holds a complete valid message, splits it
// into command and parameters.
func DecodeMessage(b *Buffer) (Message, error) {
	if r := Scan(b); r != Complete {
		if err := r.Err(); err != nil {
			return Message{}, err
		}
		return Message{}, ErrIncomplete
	}
	seq := SequenceOf(b)
	cmd, err := seq.NextString()
	if err != nil {
		return Message{}, fmt.Errorf("command: %w", err)
	}
	params, err := seq.Strings()
	if err != nil {
		return Message{}, fmt.Errorf("%s params: %w", cmd, err)
	}
	return Message{Command: cmd, Params: params}, nil
}

// validCommand rejects commands the tokenizer would split or unquote, and
// backslashes, which the scanner treats as escapes inside a raw span.
func validCommand(cmd string) bool {
	return cmd != "" && cmd[0] != '"' && !strings.ContainsAny(cmd, " \n\\")
}
