package tcpcore

import (
	"testing"

	"iptcp-core/config"
	"iptcp-core/tcpseg"

	"github.com/stretchr/testify/require"
)

func testConfig(isn uint32) config.TCPConfig {
	cfg := config.DefaultTCPConfig()
	cfg.FixedISN = &isn
	return cfg
}

func TestSenderSendsSYNOnFillWindow(t *testing.T) {
	s := NewSender(testConfig(0))
	s.FillWindow()
	segs := s.SegmentsOut()
	require.Len(t, segs, 1)
	require.True(t, segs[0].SYN)
	require.Equal(t, uint64(1), s.NextSeqnoAbsolute())
}

func TestSenderDoesNotResendSYN(t *testing.T) {
	s := NewSender(testConfig(0))
	s.FillWindow()
	s.SegmentsOut()
	s.AckReceived(tcpseg.WrappingInt32(1), 10)
	s.FillWindow()
	for _, seg := range s.SegmentsOut() {
		require.False(t, seg.SYN)
	}
}

func TestSenderSendsFINOnceStreamEnded(t *testing.T) {
	s := NewSender(testConfig(0))
	s.FillWindow()
	s.SegmentsOut()
	s.AckReceived(tcpseg.WrappingInt32(1), 10)

	s.StreamIn().EndInput()
	s.FillWindow()
	segs := s.SegmentsOut()
	require.Len(t, segs, 1)
	require.True(t, segs[0].FIN)
}

func TestSenderZeroWindowTreatedAsOne(t *testing.T) {
	s := NewSender(testConfig(0))
	s.StreamIn().Write([]byte("hello"))
	s.windowSize = 0
	s.FillWindow()
	segs := s.SegmentsOut()
	require.Len(t, segs, 1)
	require.Equal(t, 1, len(segs[0].Payload)+boolToInt(segs[0].SYN))
}

func TestSenderZeroWindowRetransmitDoesNotBackOff(t *testing.T) {
	s := NewSender(testConfig(0))
	s.windowSize = 0
	s.StreamIn().Write([]byte("x"))
	s.FillWindow()
	s.SegmentsOut()

	initialRTO := s.timer.rto
	s.retransmit()
	require.Equal(t, initialRTO, s.timer.rto, "must not back off when peer's window is zero")
	require.Equal(t, uint32(0), s.ConsecutiveRetransmissions())
}

func TestSenderNonZeroWindowRetransmitBacksOff(t *testing.T) {
	s := NewSender(testConfig(0))
	s.windowSize = 10
	s.StreamIn().Write([]byte("x"))
	s.FillWindow()
	s.SegmentsOut()

	initialRTO := s.timer.rto
	s.retransmit()
	require.Equal(t, initialRTO*2, s.timer.rto)
	require.Equal(t, uint32(1), s.ConsecutiveRetransmissions())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
