package p2pwire

import (
	"context"
	"errors"
	"io"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
)

// MetricsRecorder receives node traffic counts.
type MetricsRecorder interface {
	MessageReceived(result string)
	ReplySent(cmd string)
	PeerConnected()
	PeerDisconnected()
}

// Results reported to MetricsRecorder.MessageReceived.
const (
	ResultOK             = "ok"
	ResultInvalidMessage = "invalid_message"
	ResultInvalidToken   = "invalid_token"
	ResultTooLarge       = "too_large"
)

// PeerSession describes one connected peer.
type PeerSession struct {
	Addr        string
	ConnectedAt time.Time
	Messages    int
	Rejected    int
}

// Node answers the handshake on every accepted connection. Anything other
// than GET_VERSION is refused with the matching INVALID_* signal.
type Node struct {
	ID      string
	Version Version
	Log     zerolog.Logger
	Metrics MetricsRecorder

	// Zero disables the per message deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	mu    sync.Mutex
	peers map[*PeerSession]struct{}
}

func NewNode(id string, v Version) *Node {
	return &Node{
		ID:      id,
		Version: v,
		Log:     zerolog.Nop(),
		peers:   make(map[*PeerSession]struct{}),
	}
}

// Serve accepts connections until ctx is done or the listener fails.
func (n *Node) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	n.Log.Info().Str("addr", ln.Addr().String()).Str("version", n.Version.String()).Msg("serving")
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.ServeConn(ctx, nc)
		}()
	}
}

// ServeConn runs the request loop for one connection and closes it on return.
func (n *Node) ServeConn(ctx context.Context, nc net.Conn) {
	addr := nc.RemoteAddr().String()
	c := NewConn(nc)
	c.Log = n.Log.With().Str("peer", addr).Logger()
	defer c.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	sess := n.track(addr)
	defer n.untrack(sess)
	c.Log.Debug().Msg("connected")

	for {
		if n.ReadTimeout > 0 {
			_ = c.SetReadDeadline(time.Now().Add(n.ReadTimeout))
		}
		msg, err := c.ReadMessage()
		if err != nil && !isProtocolError(err) {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				c.Log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		n.record(sess, err)

		reply, keep := n.Respond(msg, err)
		if n.WriteTimeout > 0 {
			_ = c.SetWriteDeadline(time.Now().Add(n.WriteTimeout))
		}
		if err := c.WriteMessage(reply); err != nil {
			c.Log.Warn().Err(err).Str("cmd", reply.Command).Msg("reply failed")
			return
		}
		if n.Metrics != nil {
			n.Metrics.ReplySent(reply.Command)
		}
		if !keep {
			c.Log.Info().Err(err).Msg("closing after fatal framing error")
			return
		}
	}
}

// Respond picks the reply for a message read with ReadMessage. The boolean is
// false when the connection should be dropped after replying.
func (n *Node) Respond(msg Message, readErr error) (Message, bool) {
	switch {
	case errors.Is(readErr, ErrMessageTooLarge):
		return NewMessage(CmdInvalidFormat), false
	case readErr != nil:
		return NewMessage(CmdInvalidFormat), true
	case msg.Command == CmdGetVersion && len(msg.Params) == 0:
		return VersionReply(n.Version), true
	case msg.Command == CmdGetVersion:
		return NewMessage(CmdInvalidData), true
	}
	return invalidCommandReply(msg.Command), true
}

// invalidCommandReply echoes cmd back unless the echo would not encode, in
// which case the signal goes out bare.
func invalidCommandReply(cmd string) Message {
	reply := NewMessage(CmdInvalidCommand, cmd)
	var scratch Buffer
	if err := EncodeMessage(&scratch, reply); err != nil {
		return NewMessage(CmdInvalidCommand)
	}
	return reply
}

func isProtocolError(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrMessageTooLarge)
}

func receiveResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrMessageTooLarge):
		return ResultTooLarge
	case errors.Is(err, ErrInvalidToken):
		return ResultInvalidToken
	}
	return ResultInvalidMessage
}

func (n *Node) record(sess *PeerSession, err error) {
	n.mu.Lock()
	sess.Messages++
	if err != nil {
		sess.Rejected++
	}
	n.mu.Unlock()
	if n.Metrics != nil {
		n.Metrics.MessageReceived(receiveResult(err))
	}
}

func (n *Node) track(addr string) *PeerSession {
	sess := &PeerSession{Addr: addr, ConnectedAt: time.Now()}
	n.mu.Lock()
	if n.peers == nil {
		n.peers = make(map[*PeerSession]struct{})
	}
	n.peers[sess] = struct{}{}
	n.mu.Unlock()
	if n.Metrics != nil {
		n.Metrics.PeerConnected()
	}
	return sess
}

func (n *Node) untrack(sess *PeerSession) {
	n.mu.Lock()
	delete(n.peers, sess)
	n.mu.Unlock()
	if n.Metrics != nil {
		n.Metrics.PeerDisconnected()
	}
	n.Log.Debug().Str("peer", sess.Addr).Msg("disconnected")
}

// Peers returns a snapshot of connected peers sorted by address.
func (n *Node) Peers() []PeerSession {
	n.mu.Lock()
	out := make([]PeerSession, 0, len(n.peers))
	for p := range n.peers {
		out = append(out, *p)
	}
	n.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Addr < out[j].Addr
	})
	return out
}

func (n *Node) RenderPeersTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Addr", "Messages", "Rejected", "Uptime"})
	for _, p := range n.Peers() {
		table.Append([]string{
			p.Addr,
			strconv.Itoa(p.Messages),
			strconv.Itoa(p.Rejected),
			time.Since(p.ConnectedAt).Truncate(time.Second).String(),
		})
	}
	table.Render()
}
