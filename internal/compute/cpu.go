package compute

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest destination range worth a goroutine; tiny
// passes run serially.
const minChunk = 64

// CPU partitions the destination range across worker goroutines.
type CPU struct {
	workers int
}

// NewCPU returns a CPU backend with the given worker count; zero or
// negative selects GOMAXPROCS.
func NewCPU(workers int) *CPU {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &CPU{workers: workers}
}

func (c *CPU) Name() string    { return "cpu" }
func (c *CPU) Available() bool { return true }

func (c *CPU) RunPass(ctx context.Context, spec PassSpec, n int, chunk func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	workers := c.workers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers <= 1 {
		return chunk(0, n)
	}

	g, _ := errgroup.WithContext(ctx)
	size := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * size
		end := min(start+size, n)
		if start >= end {
			break
		}
		g.Go(func() error { return chunk(start, end) })
	}
	return g.Wait()
}
