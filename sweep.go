package p2pwire

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPort is the TCP port peers listen on unless configured otherwise.
const DefaultPort = 5000

// PeerInfo is a peer found by Probe, Sweep or Browse.
type PeerInfo struct {
	ID      string
	Addr    string
	Version Version
}

// Probe dials addr and performs the handshake.
func Probe(ctx context.Context, addr string, timeout time.Duration) (PeerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return PeerInfo{}, err
	}
	c := NewConn(nc)
	defer c.Close()

	v, err := Handshake(ctx, c)
	if err != nil {
		return PeerInfo{}, err
	}
	return PeerInfo{Addr: addr, Version: v}, nil
}

type SweepError struct {
	Addr string
	Err  error
}

func (e SweepError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Addr, e.Err)
}

func (e SweepError) Unwrap() error {
	return e.Err
}

type SweepErrors []SweepError

func (e SweepErrors) Error() string {
	return fmt.Sprintf("%d endpoints returned an error", len(e))
}

// Sweeper probes every host of one or more /24 networks.
type Sweeper struct {
	Port    int
	Timeout time.Duration
	Workers int
	Log     zerolog.Logger
}

func NewSweeper() Sweeper {
	return Sweeper{
		Port:    DefaultPort,
		Timeout: 2 * time.Second,
		Workers: 64,
		Log:     zerolog.Nop(),
	}
}

// Sweep probes hosts .1 through .254 of every network. Peers are sorted by
// address; failed probes come back as SweepErrors.
func (s Sweeper) Sweep(ctx context.Context, networks ...net.IP) ([]PeerInfo, error) {
	var addrs []string
	for _, network := range networks {
		ip4 := network.To4()
		if ip4 == nil {
			continue
		}
		for i := 1; i < 255; i++ {
			ip := net.IPv4(ip4[0], ip4[1], ip4[2], byte(i))
			addrs = append(addrs, net.JoinHostPort(ip.String(), strconv.Itoa(s.Port)))
		}
	}
	s.Log.Info().Int("hosts", len(addrs)).Int("port", s.Port).Msg("sweeping")
	return s.probeAll(ctx, addrs)
}

func (s Sweeper) probeAll(ctx context.Context, addrs []string) ([]PeerInfo, error) {
	type result struct {
		peer PeerInfo
		err  error
		addr string
	}

	in := make(chan string)
	out := make(chan result)
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range in {
				peer, err := Probe(ctx, addr, s.Timeout)
				out <- result{peer: peer, err: err, addr: addr}
			}
		}()
	}
	go func() {
		defer close(in)
		for _, addr := range addrs {
			select {
			case in <- addr:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	var peers []PeerInfo
	var errs SweepErrors
	for res := range out {
		if res.err != nil {
			errs = append(errs, SweepError{Addr: res.addr, Err: res.err})
			continue
		}
		s.Log.Debug().Str("addr", res.addr).Str("version", res.peer.Version.String()).Msg("found peer")
		peers = append(peers, res.peer)
	}
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Addr < peers[j].Addr
	})
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool {
			return errs[i].Addr < errs[j].Addr
		})
		return peers, errs
	}
	return peers, nil
}

// LocalNetworks lists the IPv4 networks of every non-loopback interface.
func LocalNetworks() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]net.IP)
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", iface.Name, err)
		}
		for _, addr := range addrs {
			if a, ok := addr.(*net.IPNet); ok && !a.IP.IsLoopback() && a.IP.To4() != nil {
				network := a.IP.Mask(a.Mask)
				seen[network.String()] = network
			}
		}
	}
	networks := make([]net.IP, 0, len(seen))
	for _, n := range seen {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool {
		return networks[i].String() < networks[j].String()
	})
	return networks, nil
}
