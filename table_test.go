package p2pwire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTokenTable(t *testing.T) {
	var out bytes.Buffer
	err := RenderTokenTable(&out, SequenceOf(bufferOf(t, "SEND \"hi there\" x\n")))
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"hi there"`)
	assert.Contains(t, out.String(), "SEND")
}

func TestRenderTokenTableStopsAtBadToken(t *testing.T) {
	var out bytes.Buffer
	err := RenderTokenTable(&out, SequenceOf(bufferOf(t, "BAD \"oops\n")))
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, out.String(), "invalid token")
}

func TestRenderPeerTable(t *testing.T) {
	var out bytes.Buffer
	RenderPeerTable(&out, []PeerInfo{{ID: "n1", Addr: "10.0.0.2:5000", Version: Version{Major: 1}}})
	assert.Contains(t, out.String(), "10.0.0.2:5000")
	assert.Contains(t, out.String(), "1.0.0")
}
