package p2pwire

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	MdnsService = "_p2pwire._tcp"
	mdnsDomain  = "local."
)

// Advertise announces a node over mDNS. The TXT record carries its id and
// version. Call Shutdown on the returned server to withdraw it.
func Advertise(id string, v Version, port int, service string) (*zeroconf.Server, error) {
	if service == "" {
		service = MdnsService
	}
	txt := []string{"id=" + id, "ver=" + v.String()}
	return zeroconf.Register(id, service, mdnsDomain, port, txt, nil)
}

// Browse calls onDiscover for every peer announced on service until ctx is
// done. Entries whose TXT version does not parse are skipped.
func Browse(ctx context.Context, service string, onDiscover func(PeerInfo)) error {
	if service == "" {
		service = MdnsService
	}
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if p, ok := peerFromEntry(e); ok {
					onDiscover(p)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, service, mdnsDomain, entries); err != nil {
		return err
	}
	<-ctx.Done()
	<-done
	return nil
}

func peerFromEntry(e *zeroconf.ServiceEntry) (PeerInfo, bool) {
	if e == nil || len(e.AddrIPv4) == 0 && len(e.AddrIPv6) == 0 {
		return PeerInfo{}, false
	}
	txt := parseTXT(e.Text)
	v, err := ParseVersion(txt["ver"])
	if err != nil {
		return PeerInfo{}, false
	}
	var ip net.IP
	if len(e.AddrIPv4) > 0 {
		ip = e.AddrIPv4[0]
	} else {
		ip = e.AddrIPv6[0]
	}
	id := txt["id"]
	if id == "" {
		id = e.Instance
	}
	return PeerInfo{
		ID:      id,
		Addr:    net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)),
		Version: v,
	}, true
}

func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		out[k] = v
	}
	return out
}
