package transform

// Stage is one link in a TransformChain. Implementations
// receive upstream bytes via DoIOWrite and push their transformed output
// to Output, which the chain wires to the next stage or, for the last
// factory, the Terminus.
type Stage interface {
	// DoIOWrite delivers producer bytes to this stage for transformation.
	DoIOWrite(p []byte) (n int, err error)
	// DoIOClose tears the stage down; err is nil for a normal close.
	DoIOClose(err error)
	// DoIOShutdown stops accepting further writes without a full close.
	DoIOShutdown()
	// Reenable resumes a stage that backed off flow control.
	Reenable()
	// SetOutput wires the next stage (or Terminus) downstream.
	SetOutput(out Stage)
	// Backlog returns buffered bytes held by this stage, counting only
	// up to at least limit (limit <= 0 means no cap).
	Backlog(limit int) int
	// Deletable reports whether the stage has been closed and every VIO
	// event it scheduled has been delivered.
	Deletable() bool
}

// baseStage provides the bookkeeping (event counting, close state, wired
// output) that every concrete Stage embeds.
type baseStage struct {
	out        Stage
	pending    int
	closed     bool
	aborted    bool
	shutdowned bool
}

func (b *baseStage) SetOutput(out Stage) { b.out = out }

func (b *baseStage) scheduleEvent() { b.pending++ }

func (b *baseStage) deliverEvent() {
	if b.pending > 0 {
		b.pending--
	}
}

func (b *baseStage) Deletable() bool {
	return b.closed && b.pending == 0
}

func (b *baseStage) DoIOClose(err error) {
	b.closed = true
	b.aborted = err != nil
}

func (b *baseStage) DoIOShutdown() {
	b.shutdowned = true
}
