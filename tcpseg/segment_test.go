package tcpseg

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLengthInSequenceSpaceCountsFlags(t *testing.T) {
	seg := Segment{SYN: true, FIN: true, Payload: []byte("hello")}
	require.Equal(t, 7, seg.LengthInSequenceSpace())

	bare := Segment{Payload: []byte("hello")}
	require.Equal(t, 5, bare.LengthInSequenceSpace())

	empty := Segment{}
	require.Equal(t, 0, empty.LengthInSequenceSpace())
}

func TestMarshalParseRoundTrip(t *testing.T) {
	src := netip.MustParseAddr("10.0.0.1")
	dst := netip.MustParseAddr("10.0.0.2")

	seg := Segment{
		SrcPort: 1234,
		DstPort: 5678,
		SeqNum:  WrappingInt32(100),
		AckNum:  WrappingInt32(200),
		SYN:     true,
		ACK:     true,
		Window:  65000,
		Payload: []byte("payload bytes"),
	}

	wire := Marshal(&seg, src, dst)
	parsed, result := Parse(wire, src, dst)
	require.Equal(t, NoError, result)
	require.Equal(t, seg.SrcPort, parsed.SrcPort)
	require.Equal(t, seg.DstPort, parsed.DstPort)
	require.Equal(t, seg.SeqNum, parsed.SeqNum)
	require.Equal(t, seg.AckNum, parsed.AckNum)
	require.True(t, parsed.SYN)
	require.True(t, parsed.ACK)
	require.Equal(t, seg.Payload, parsed.Payload)
}

func TestParseRejectsCorruptedChecksum(t *testing.T) {
	src := netip.MustParseAddr("10.0.0.1")
	dst := netip.MustParseAddr("10.0.0.2")
	seg := Segment{SrcPort: 1, DstPort: 2, Payload: []byte("x")}
	wire := Marshal(&seg, src, dst)
	wire[len(wire)-1] ^= 0xff

	_, result := Parse(wire, src, dst)
	require.Equal(t, ParseErrorBadChecksum, result)
}

func TestParseRejectsTruncatedSegment(t *testing.T) {
	src := netip.MustParseAddr("10.0.0.1")
	dst := netip.MustParseAddr("10.0.0.2")
	_, result := Parse([]byte{1, 2, 3}, src, dst)
	require.Equal(t, ParseErrorTruncated, result)
}
