package p2pwire

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerFromEntry(t *testing.T) {
	e := zeroconf.NewServiceEntry("node-a", MdnsService, mdnsDomain)
	e.Port = 5001
	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	e.Text = []string{"id=abc-123", "ver=1.2.3"}

	p, ok := peerFromEntry(e)
	require.True(t, ok)
	assert.Equal(t, PeerInfo{ID: "abc-123", Addr: "192.168.1.20:5001", Version: Version{Major: 1, Minor: 2, Patch: 3}}, p)
}

func TestPeerFromEntryFallbacks(t *testing.T) {
	e := zeroconf.NewServiceEntry("node-b", MdnsService, mdnsDomain)
	e.Port = 5000
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	e.Text = []string{"ver=2.0.0"}

	p, ok := peerFromEntry(e)
	require.True(t, ok)
	assert.Equal(t, "node-b", p.ID)
	assert.Equal(t, "[fe80::1]:5000", p.Addr)
}

func TestPeerFromEntryRejects(t *testing.T) {
	noAddr := zeroconf.NewServiceEntry("x", MdnsService, mdnsDomain)
	noAddr.Text = []string{"ver=1.0.0"}
	_, ok := peerFromEntry(noAddr)
	assert.False(t, ok)

	badVersion := zeroconf.NewServiceEntry("x", MdnsService, mdnsDomain)
	badVersion.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.1")}
	badVersion.Text = []string{"ver=1.0"}
	_, ok = peerFromEntry(badVersion)
	assert.False(t, ok)

	_, ok = peerFromEntry(nil)
	assert.False(t, ok)
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"id=a=b", "flag", "ver=1.0.0"})
	assert.Equal(t, map[string]string{"id": "a=b", "flag": "", "ver": "1.0.0"}, got)
}

func TestAdvertiseAndBrowse(t *testing.T) {
	v := Version{Major: 1, Minor: 4, Patch: 2}
	server, err := Advertise("mdns-test-node", v, 5123, "")
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	defer server.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var found []PeerInfo
	err = Browse(ctx, "", func(p PeerInfo) {
		found = append(found, p)
	})
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	for _, p := range found {
		if p.ID == "mdns-test-node" {
			assert.Equal(t, v, p.Version)
			assert.True(t, strings.HasSuffix(p.Addr, ":5123"), p.Addr)
		}
	}
}
