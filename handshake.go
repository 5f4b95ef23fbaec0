package p2pwire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrUnexpectedReply = errors.New("p2pwire: unexpected reply")

// RemoteError is an INVALID_* signal sent back by the peer.
type RemoteError struct {
	Signal string
	Detail []string
}

func (e *RemoteError) Error() string {
	if len(e.Detail) == 0 {
		return "p2pwire: peer replied " + e.Signal
	}
	return fmt.Sprintf("p2pwire: peer replied %s %v", e.Signal, e.Detail)
}

// Handshake asks the peer for its version. The context deadline, if any, is
// applied to the connection for the exchange; cancelling ctx aborts it.
func Handshake(ctx context.Context, c *Conn) (Version, error) {
	if dl, ok := ctx.Deadline(); ok {
		if err := c.SetDeadline(dl); err != nil {
			return Version{}, err
		}
		defer c.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.WriteMessage(NewMessage(CmdGetVersion)); err != nil {
		return Version{}, ctxErr(ctx, err)
	}
	reply, err := c.ReadMessage()
	if err != nil {
		return Version{}, ctxErr(ctx, err)
	}
	return versionFromReply(reply)
}

func versionFromReply(reply Message) (Version, error) {
	if IsErrorSignal(reply.Command) {
		return Version{}, &RemoteError{Signal: reply.Command, Detail: reply.Params}
	}
	if reply.Command != CmdGetVersion || len(reply.Params) != 1 {
		return Version{}, fmt.Errorf("%w: %q", ErrUnexpectedReply, reply.String())
	}
	return ParseVersion(reply.Params[0])
}

// VersionReply is the answer to GET_VERSION.
func VersionReply(v Version) Message {
	return NewMessage(CmdGetVersion, v.String())
}

// ctxErr prefers the context error when the exchange failed because ctx ended.
// A connection deadline copied from ctx can fire just before ctx notices.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
			return context.DeadlineExceeded
		}
	}
	return err
}
