package p2pwire

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	ca, cb := NewConn(a), NewConn(b)
	t.Cleanup(func() {
		_ = ca.Close()
		_ = cb.Close()
	})
	return ca, cb
}

func TestConnRoundTrip(t *testing.T) {
	client, server := pipeConns(t)
	msgs := []Message{
		NewMessage(CmdGetVersion),
		NewMessage("SEND", "hi there", `a\b`, "x*y"),
		NewMessage("PING"),
	}

	errc := make(chan error, 1)
	go func() {
		for _, m := range msgs {
			if err := client.WriteMessage(m); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()

	for _, want := range msgs {
		got, err := server.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want.Command, got.Command)
		assert.Equal(t, len(want.Params), len(got.Params))
		for i := range want.Params {
			assert.Equal(t, want.Params[i], got.Params[i])
		}
	}
	require.NoError(t, <-errc)
}

func TestConnReadRejectsButRecovers(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	server := NewConn(b)
	defer server.Close()

	go func() {
		_, _ = io.WriteString(a, "X *\\q*\nBAD \"oops\nPING\n")
	}()

	_, err := server.ReadMessage()
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = server.ReadMessage()
	assert.ErrorIs(t, err, ErrInvalidToken)
	msg, err := server.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "PING", msg.Command)
}

func TestConnOverflowResyncs(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	server := NewConn(b)
	defer server.Close()

	go func() {
		_, _ = io.WriteString(a, strings.Repeat("a", MaxBufferSize+5000)+"\n"+CmdGetVersion+"\n")
	}()

	_, err := server.ReadMessage()
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	msg, err := server.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, CmdGetVersion, msg.Command)
}

func TestConnUnexpectedEOF(t *testing.T) {
	a, b := net.Pipe()
	server := NewConn(b)
	defer server.Close()

	go func() {
		_, _ = io.WriteString(a, "PIN")
		_ = a.Close()
	}()

	_, err := server.ReadMessage()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestConnWriteRejectsUnencodable(t *testing.T) {
	client, _ := pipeConns(t)
	err := client.WriteMessage(NewMessage("SEND", ""))
	assert.ErrorIs(t, err, ErrUnencodable)

	err = client.WriteMessage(NewMessage("SEND", "multi\nline"))
	assert.ErrorIs(t, err, ErrUnencodable)
}

func TestHandshake(t *testing.T) {
	client, server := pipeConns(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		msg, err := server.ReadMessage()
		if err != nil || msg.Command != CmdGetVersion {
			return
		}
		_ = server.WriteMessage(VersionReply(Version{Major: 3, Minor: 1, Patch: 4}))
	}()

	v, err := Handshake(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 3, Minor: 1, Patch: 4}, v)
}

func TestHandshakeReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply Message
		check func(t *testing.T, err error)
	}{
		{"remote error", NewMessage(CmdInvalidCommand, CmdGetVersion), func(t *testing.T, err error) {
			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, CmdInvalidCommand, remote.Signal)
		}},
		{"wrong command", NewMessage("PONG"), func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnexpectedReply)
		}},
		{"bad version", NewMessage(CmdGetVersion, "1.2"), func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrInvalidVersionFormat)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := versionFromReply(tc.reply)
			tc.check(t, err)
		})
	}
}

func TestHandshakeCancelled(t *testing.T) {
	client, _ := pipeConns(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Handshake(ctx, client)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
