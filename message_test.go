package p2pwire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMessage(t *testing.T) {
	in := NewMessage("SEND", "hello world", "a*b", "plain")

	var b Buffer
	require.NoError(t, EncodeMessage(&b, in))
	assert.Equal(t, "SEND \"hello world\" \"a\\*b\" plain\n", string(b.Bytes()))

	out, err := DecodeMessage(&b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeMessageFailuresResetBuffer(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		err  error
	}{
		{"empty command", NewMessage(""), ErrUnencodable},
		{"command with space", NewMessage("A B"), ErrUnencodable},
		{"command with backslash", NewMessage("A*\\", "x"), ErrUnencodable},
		{"empty param", NewMessage("A", "x", ""), ErrUnencodable},
		{"too large", NewMessage("A", strings.Repeat("x", MaxBufferSize)), ErrMessageTooLarge},
		{"no room for terminator", NewMessage(strings.Repeat("x", MaxBufferSize)), ErrMessageTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b Buffer
			require.NoError(t, b.Set([]byte("stale")))
			assert.ErrorIs(t, EncodeMessage(&b, tc.msg), tc.err)
			assert.Equal(t, 0, b.Len())
		})
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	_, err := DecodeMessage(bufferOf(t, "PING"))
	assert.ErrorIs(t, err, ErrIncomplete)

	_, err = DecodeMessage(bufferOf(t, "X *\\q*\n"))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeMessage(bufferOf(t, strings.Repeat("a", MaxBufferSize)))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = DecodeMessage(bufferOf(t, "\n"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = DecodeMessage(bufferOf(t, "BAD \"oops\n"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMessageParam(t *testing.T) {
	m := NewMessage("GET_VERSION", "1.0.0")
	v, ok := m.Param(0)
	assert.True(t, ok)
	assert.Equal(t, "1.0.0", v)
	_, ok = m.Param(1)
	assert.False(t, ok)
	assert.Equal(t, "GET_VERSION 1.0.0", m.String())
}

func TestIsErrorSignal(t *testing.T) {
	assert.True(t, IsErrorSignal(CmdInvalidFormat))
	assert.True(t, IsErrorSignal(CmdInvalidCommand))
	assert.True(t, IsErrorSignal(CmdInvalidData))
	assert.False(t, IsErrorSignal(CmdGetVersion))
}
