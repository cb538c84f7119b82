package transform

import "errors"

// errClosed is returned by DoIOWrite once a stage has been closed.
var errClosed = errors.New("transform: stage closed")

// NullStage copies upstream bytes to its output verbatim. It exists
// mostly as a template for new stages and as a test harness.
type NullStage struct {
	baseStage
}

// NewNullStage returns a pass-through stage.
func NewNullStage() *NullStage {
	return &NullStage{}
}

func (n *NullStage) DoIOWrite(p []byte) (int, error) {
	if n.closed {
		return 0, errClosed
	}
	if n.out == nil {
		return len(p), nil
	}
	n.scheduleEvent()
	written, err := n.out.DoIOWrite(p)
	n.deliverEvent()
	return written, err
}

func (n *NullStage) Reenable() {
	if n.out != nil {
		n.out.Reenable()
	}
}

func (n *NullStage) Backlog(limit int) int {
	return 0
}
