// Package solver sequences SPH interaction passes.
//
// A [Solver] holds an ordered registry of named operations, each coupling
// a pair evaluator with a neighbor source and the destination columns
// that receive its accumulated output. One [Solver.RunPass] executes
// every operation in registry order; the caller (an external integrator)
// then advances particle state from the filled accumulators.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/san-kum/sphlab/internal/compute"
	"github.com/san-kum/sphlab/internal/nnps"
	"github.com/san-kum/sphlab/internal/particles"
	"github.com/san-kum/sphlab/internal/sphfunc"
)

var (
	// ErrDuplicateOperation indicates registration of an id already in the
	// registry.
	ErrDuplicateOperation = errors.New("solver: duplicate operation id")

	// ErrUnknownOperation indicates an id absent from the registry.
	ErrUnknownOperation = errors.New("solver: unknown operation id")
)

// Operation couples an evaluator with its data plumbing.
type Operation struct {
	// Fn evaluates one (source, destination) pair.
	Fn sphfunc.Function
	// Source and Dest are the stores Fn was built over.
	Source *particles.ParticleArray
	Dest   *particles.ParticleArray
	// Neighbors yields candidate source indices per destination particle.
	Neighbors nnps.Source
	// Outputs names the destination temporary columns receiving the
	// accumulated components; its length must equal Fn.Dim(). Missing
	// temporaries are registered on AddOperation.
	Outputs []string
	// Coeff is forwarded to the compute backend as part of the pass
	// contract.
	Coeff sphfunc.Coefficients
}

// Solver is the ordered operation registry plus pass executor.
type Solver struct {
	log     *slog.Logger
	backend compute.Backend

	ops   map[string]*Operation
	order []string

	preStep  []func(t float64)
	postStep []func(t float64)
}

// New returns a Solver executing on the given backend. A nil backend
// selects the best available one; a nil logger disables diagnostics.
func New(log *slog.Logger, backend compute.Backend) *Solver {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if backend == nil {
		backend = compute.Auto()
	}
	return &Solver{
		log:     log.With("component", "solver"),
		backend: backend,
		ops:     make(map[string]*Operation),
	}
}

// AddOperation appends op to the execution order. The evaluator's id must
// be unused and len(op.Outputs) must equal the evaluator's output
// dimensionality; output temporaries that do not exist yet are created.
func (s *Solver) AddOperation(op Operation) error {
	return s.insert(op, "", false)
}

// AddOperationBefore inserts op immediately before the operation with the
// given id.
func (s *Solver) AddOperationBefore(op Operation, beforeID string) error {
	return s.insert(op, beforeID, true)
}

// AddOperationAfter inserts op immediately after the operation with the
// given id.
func (s *Solver) AddOperationAfter(op Operation, afterID string) error {
	return s.insert(op, afterID, false)
}

func (s *Solver) insert(op Operation, anchor string, before bool) error {
	id := op.Fn.ID()
	if _, ok := s.ops[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateOperation, id)
	}
	if len(op.Outputs) != op.Fn.Dim() {
		return fmt.Errorf("solver: operation %q: %d outputs for dim %d", id, len(op.Outputs), op.Fn.Dim())
	}
	for _, name := range op.Outputs {
		if !op.Dest.Has(name) {
			if err := op.Dest.AddTemporaryArray(name); err != nil {
				return err
			}
		}
	}

	pos := len(s.order)
	if anchor != "" {
		i := slices.Index(s.order, anchor)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownOperation, anchor)
		}
		if before {
			pos = i
		} else {
			pos = i + 1
		}
	}

	s.ops[id] = &op
	s.order = slices.Insert(s.order, pos, id)
	s.log.Debug("operation registered", "id", id, "position", pos)
	return nil
}

// ReplaceOperation swaps the operation registered under the same id,
// keeping its position in the order.
func (s *Solver) ReplaceOperation(op Operation) error {
	id := op.Fn.ID()
	if _, ok := s.ops[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, id)
	}
	if len(op.Outputs) != op.Fn.Dim() {
		return fmt.Errorf("solver: operation %q: %d outputs for dim %d", id, len(op.Outputs), op.Fn.Dim())
	}
	s.ops[id] = &op
	return nil
}

// RemoveOperation drops the operation with the given id.
func (s *Solver) RemoveOperation(id string) error {
	if _, ok := s.ops[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, id)
	}
	delete(s.ops, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	return nil
}

// SetOrder installs a new execution order; it must be a permutation of
// the registered ids.
func (s *Solver) SetOrder(ids []string) error {
	if len(ids) != len(s.order) {
		return fmt.Errorf("solver: order lists %d of %d operations", len(ids), len(s.order))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.ops[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownOperation, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: %q listed twice", ErrDuplicateOperation, id)
		}
		seen[id] = true
	}
	s.order = append(s.order[:0], ids...)
	return nil
}

// Order returns the current execution order.
func (s *Solver) Order() []string {
	return append([]string(nil), s.order...)
}

// OnPreStep registers a hook invoked before every RunPass.
func (s *Solver) OnPreStep(fn func(t float64)) {
	s.preStep = append(s.preStep, fn)
}

// OnPostStep registers a hook invoked after every successful RunPass.
func (s *Solver) OnPostStep(fn func(t float64)) {
	s.postStep = append(s.postStep, fn)
}

// RunPass executes every operation in order at simulation time t, filling
// the output accumulator columns. The pass either completes or the step
// aborts with the first error; there is no partial retry.
func (s *Solver) RunPass(ctx context.Context, t float64) error {
	for _, fn := range s.preStep {
		fn(t)
	}

	for _, id := range s.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.runOperation(ctx, s.ops[id]); err != nil {
			return fmt.Errorf("solver: operation %q: %w", id, err)
		}
	}

	for _, fn := range s.postStep {
		fn(t)
	}
	return nil
}

func (s *Solver) runOperation(ctx context.Context, op *Operation) error {
	// Rebind views and rebuild the neighbor index before locking: particle
	// positions changed since the last pass even if membership did not.
	if err := op.Fn.Bind(); err != nil {
		return err
	}
	if err := op.Neighbors.Update(); err != nil {
		return err
	}
	op.Source.MarkClean()
	op.Dest.MarkClean()

	dim := op.Fn.Dim()
	outs := make([][]float64, dim)
	for c, name := range op.Outputs {
		view, err := op.Dest.Floats(name)
		if err != nil {
			return err
		}
		clear(view)
		outs[c] = view
	}

	srcReads, dstReads := op.Fn.Reads()
	spec := compute.PassSpec{
		ID:       op.Fn.ID(),
		SrcReads: srcReads,
		DstReads: dstReads,
		Dim:      dim,
		Coeff:    op.Coeff,
	}

	n := op.Dest.Len()

	// The pass itself is a read-only critical section on both stores.
	op.Dest.BeginPass()
	defer op.Dest.EndPass()
	if op.Source != op.Dest {
		op.Source.BeginPass()
		defer op.Source.EndPass()
	}
	return s.backend.RunPass(ctx, spec, n, func(start, end int) error {
		buf := make([]int, 0, 64)
		acc := make([]float64, dim)
		for i := start; i < end; i++ {
			buf = op.Neighbors.Neighbors(i, buf[:0])
			clear(acc)
			for _, j := range buf {
				op.Fn.Accumulate(j, i, acc)
			}
			for c := 0; c < dim; c++ {
				outs[c][i] += acc[c]
			}
		}
		return nil
	})
}
