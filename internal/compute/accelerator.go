package compute

import "context"

// Accelerator is the placeholder for an external accelerated dispatch
// path. Without a device it reports unavailable and delegates to the CPU,
// so callers can hold one backend unconditionally.
type Accelerator struct {
	cpu *CPU
}

func NewAccelerator() *Accelerator {
	return &Accelerator{cpu: NewCPU(0)}
}

func (a *Accelerator) Name() string    { return "accelerator (not available)" }
func (a *Accelerator) Available() bool { return false }

func (a *Accelerator) RunPass(ctx context.Context, spec PassSpec, n int, chunk func(start, end int) error) error {
	return a.cpu.RunPass(ctx, spec, n, chunk)
}
