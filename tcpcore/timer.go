package tcpcore

// retransmissionTimer tracks the retransmission timeout for a Sender's
// outstanding segments. It mirrors libsponge's nested RetransmissionTimer
// class: a handful of counters, no goroutines or real timers involved —
// time only moves when Tick is called.
type retransmissionTimer struct {
	initialRTO uint32
	rto        uint32
	waited     uint32
	running    bool
}

func newRetransmissionTimer(initialRTO uint32) *retransmissionTimer {
	return &retransmissionTimer{initialRTO: initialRTO}
}

func (t *retransmissionTimer) Running() bool { return t.running }

func (t *retransmissionTimer) Expired() bool { return t.running && t.rto <= t.waited }

func (t *retransmissionTimer) Reset() { t.rto = t.initialRTO }

func (t *retransmissionTimer) Double() { t.rto *= 2 }

func (t *retransmissionTimer) Start() {
	t.running = true
	t.waited = 0
}

func (t *retransmissionTimer) Stop() { t.running = false }

func (t *retransmissionTimer) Tick(ms uint32) { t.waited += ms }
