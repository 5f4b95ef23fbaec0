package p2pwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Conn frames messages over a byte stream. Each Conn owns one inbound and one
// outbound Buffer; reads and writes may happen from different goroutines.
type Conn struct {
	Log zerolog.Logger

	rwc io.ReadWriteCloser
	r   *bufio.Reader

	rmu    sync.Mutex
	in     Buffer
	resync bool

	wmu sync.Mutex
	out Buffer
}

func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		Log: zerolog.Nop(),
		rwc: rwc,
		r:   bufio.NewReader(rwc),
	}
}

// Dial wraps the connection returned by dialer.
func Dial(dialer func() (io.ReadWriteCloser, error)) (*Conn, error) {
	rwc, err := dialer()
	if err != nil {
		return nil, err
	}
	return NewConn(rwc), nil
}

// ReadMessage accumulates bytes until the scanner reports a terminal result.
// ErrInvalidMessage and ErrInvalidToken leave the stream usable.
// ErrMessageTooLarge drops the oversized message; the rest of it is skipped on
// the next call.
func (c *Conn) ReadMessage() (Message, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	for c.resync {
		_, err := c.r.ReadSlice(terminator)
		switch {
		case err == nil:
			c.resync = false
		case !errors.Is(err, bufio.ErrBufferFull):
			return Message{}, err
		}
	}

	c.in.Reset()
	for {
		ch, err := c.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && c.in.Len() > 0 {
				err = io.ErrUnexpectedEOF
			}
			return Message{}, err
		}
		if err := c.in.WriteByte(ch); err != nil {
			return Message{}, err
		}
		if ch != terminator && !c.in.Full() {
			continue
		}

		switch r := Scan(&c.in); r {
		case Incomplete:
			continue
		case Complete:
			msg, err := DecodeMessage(&c.in)
			if err != nil {
				c.Log.Debug().Err(err).Bytes("raw", c.in.Bytes()).Msg("undecodable message")
				return Message{}, err
			}
			c.Log.Trace().Str("cmd", msg.Command).Int("params", len(msg.Params)).Msg("recv")
			return msg, nil
		default:
			if r == Overflow {
				c.resync = true
			}
			c.Log.Debug().Stringer("scan", r).Int("bytes", c.in.Len()).Msg("rejected message")
			return Message{}, r.Err()
		}
	}
}

// WriteMessage encodes m and writes it in one call. Nothing is written if the
// message does not fit. Params holding LF are refused since ReadMessage frames
// on the first LF.
func (c *Conn) WriteMessage(m Message) error {
	for i, p := range m.Params {
		if strings.IndexByte(p, terminator) >= 0 {
			return fmt.Errorf("%w: param %d contains a newline", ErrUnencodable, i)
		}
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := EncodeMessage(&c.out, m); err != nil {
		return err
	}
	if _, err := c.rwc.Write(c.out.Bytes()); err != nil {
		return err
	}
	c.Log.Trace().Str("cmd", m.Command).Int("bytes", c.out.Len()).Msg("send")
	return nil
}

type deadliner interface {
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// SetDeadline is a no-op for streams without deadline support.
func (c *Conn) SetDeadline(t time.Time) error {
	if d, ok := c.rwc.(deadliner); ok {
		return d.SetDeadline(t)
	}
	return nil
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	if d, ok := c.rwc.(deadliner); ok {
		return d.SetReadDeadline(t)
	}
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	if d, ok := c.rwc.(deadliner); ok {
		return d.SetWriteDeadline(t)
	}
	return nil
}

func (c *Conn) Close() error {
	return c.rwc.Close()
}
