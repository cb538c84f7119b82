package transform

// Factory constructs one pipeline stage.
type Factory func() Stage

// Chain wires an ordered list of stages so that Ti's output is T{i+1},
// with the last stage's output always a Terminus. The transaction writes producer bytes to Chain.Write
// and reads the transformed response body from Chain.Terminus.
type Chain struct {
	first    Stage
	stages   []Stage
	Terminus *Terminus
}

// New builds a chain from factories in order, appending a Terminus that
// reports events through onEvent. With no factories, the chain is just
// the Terminus.
func New(factories []Factory, onEvent EventFunc) *Chain {
	term := NewTerminus(onEvent)
	c := &Chain{Terminus: term}

	stages := make([]Stage, 0, len(factories))
	for _, f := range factories {
		stages = append(stages, f())
	}
	c.stages = stages

	var out Stage = term
	for i := len(stages) - 1; i >= 0; i-- {
		stages[i].SetOutput(out)
		out = stages[i]
	}
	if len(stages) > 0 {
		c.first = stages[0]
	} else {
		c.first = term
	}
	return c
}

// Write delivers producer bytes to the first stage of the chain.
func (c *Chain) Write(p []byte) (int, error) {
	return c.first.DoIOWrite(p)
}

// Close tears every stage down in order, from producer side to
// terminus, the same order the failure path tears stages down in.
func (c *Chain) Close(err error) {
	for _, s := range c.stages {
		s.DoIOClose(err)
	}
	c.Terminus.DoIOClose(err)
}

// Backlog sums buffered bytes across every stage, including the
// terminus, stopping early once at least limit bytes are accounted for.
func (c *Chain) Backlog(limit int) int {
	total := 0
	for _, s := range c.stages {
		total += s.Backlog(0)
		if limit > 0 && total >= limit {
			return total
		}
	}
	total += c.Terminus.Backlog(0)
	return total
}

// Deletable reports whether every stage, including the terminus, is
// deletable: closed with no outstanding scheduled events.
// The enclosing chain must not be torn down until this is true.
func (c *Chain) Deletable() bool {
	for _, s := range c.stages {
		if !s.Deletable() {
			return false
		}
	}
	return c.Terminus.Deletable()
}

// Reenable resumes the first stage, which propagates downstream as each
// stage's own Reenable sees fit.
func (c *Chain) Reenable() {
	c.first.Reenable()
}
