package pipeline

import (
	"tauflow/internal/inference"
	"tauflow/internal/variables"
)

// arena is the working memory of one worker: one buffer per group sized
// for a full chunk, reused for every chunk the worker processes.
type arena struct {
	bufs    []*variables.Buffer
	tensors []inference.Tensor
}

func newArena(p *plan, chunk int) *arena {
	a := &arena{
		bufs:    make([]*variables.Buffer, len(p.groups)),
		tensors: make([]inference.Tensor, len(p.groups)),
	}
	for i, g := range p.groups {
		a.bufs[i] = g.NewBuffer(chunk)
	}
	return a
}
