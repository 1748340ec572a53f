package compute

import (
	"context"

	"github.com/san-kum/sphlab/internal/sphfunc"
)

// PassSpec describes one interaction pass to a backend: which properties
// the evaluator reads from each store and the numeric coefficients. An
// external backend needs nothing else to reproduce the pass.
type PassSpec struct {
	ID       string
	SrcReads []string
	DstReads []string
	Dim      int
	Coeff    sphfunc.Coefficients
}

// Backend runs the destination-particle loop of an interaction pass.
type Backend interface {
	Name() string
	Available() bool
	// RunPass invokes chunk over a partition of [0, n). Chunks run
	// concurrently; the caller guarantees chunk only reads shared state
	// and only writes accumulator slots of its own destination range.
	RunPass(ctx context.Context, spec PassSpec, n int, chunk func(start, end int) error) error
}

// Auto returns the best available backend: the accelerator when present,
// else the CPU.
func Auto() Backend {
	acc := NewAccelerator()
	if acc.Available() {
		return acc
	}
	return NewCPU(0)
}
