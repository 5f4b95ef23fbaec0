package p2pwire

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

func RenderPeerTable(w io.Writer, peers []PeerInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Addr", "Version"})
	for _, p := range peers {
		table.Append([]string{p.ID, p.Addr, p.Version.String()})
	}
	table.Render()
}

// RenderTokenTable lists the raw and decoded form of every token in seq.
// Rendering stops at the first bad token, which is reported in the last row.
func RenderTokenTable(w io.Writer, seq Sequence) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Raw", "Decoded"})
	defer table.Render()
	for i := 0; !seq.Empty(); i++ {
		tok, err := seq.NextRawToken()
		if err != nil {
			table.Append([]string{strconv.Itoa(i), "", err.Error()})
			return err
		}
		v, err := tok.Decode()
		if err != nil {
			table.Append([]string{strconv.Itoa(i), string(tok.Bytes()), err.Error()})
			return err
		}
		table.Append([]string{strconv.Itoa(i), string(tok.Bytes()), strconv.Quote(v)})
	}
	return nil
}
