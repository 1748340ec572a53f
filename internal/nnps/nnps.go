// Package nnps provides nearest-neighbor particle search.
//
// The interaction layer only consumes the [Source] contract: for one
// destination particle it wants the finite set of candidate source
// indices whose kernels can overlap it. Two providers are included, a
// brute-force scan for small systems and tests, and a linked-cell grid
// for production passes. Both must be rebuilt (Update) after the
// underlying store mutates.
package nnps

import (
	"fmt"
	"math"

	"github.com/san-kum/sphlab/internal/particles"
)

// Source produces candidate source-particle indices per destination
// particle. The sequence restarts for every destination; buf is reused by
// callers to avoid per-call allocation.
type Source interface {
	// Neighbors appends the candidate source indices for destination
	// particle dest to buf and returns the extended slice.
	Neighbors(dest int, buf []int) []int
	// Update rebuilds internal indices from the current store contents.
	Update() error
}

// readPositions fetches the live coordinate and smoothing-length views.
func readPositions(pa *particles.ParticleArray) (x, y, z, h []float64, err error) {
	for name, slot := range map[string]*[]float64{"x": &x, "y": &y, "z": &z, "h": &h} {
		view, ferr := pa.Floats(name)
		if ferr != nil {
			return nil, nil, nil, nil, fmt.Errorf("nnps: reading %q: %w", name, ferr)
		}
		*slot = view
	}
	return x, y, z, h, nil
}

// BruteForce checks every source particle against the destination. O(N)
// per destination; the reference implementation the grid is tested
// against.
type BruteForce struct {
	src *particles.ParticleArray
	dst *particles.ParticleArray
	// scale is the kernel support radius in units of h.
	scale float64

	sx, sy, sz, sh []float64
	dx, dy, dz, dh []float64
}

// NewBruteForce builds a brute-force source over src, queried by
// destination indices of dst. scale is the kernel support radius in units
// of h (2 for the cubic spline).
func NewBruteForce(src, dst *particles.ParticleArray, scale float64) (*BruteForce, error) {
	b := &BruteForce{src: src, dst: dst, scale: scale}
	if err := b.Update(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BruteForce) Update() error {
	var err error
	if b.sx, b.sy, b.sz, b.sh, err = readPositions(b.src); err != nil {
		return err
	}
	b.dx, b.dy, b.dz, b.dh, err = readPositions(b.dst)
	return err
}

func (b *BruteForce) Neighbors(dest int, buf []int) []int {
	xd, yd, zd := b.dx[dest], b.dy[dest], b.dz[dest]
	hd := b.dh[dest]
	for j := range b.sx {
		cut := b.scale * 0.5 * (hd + b.sh[j])
		dx := xd - b.sx[j]
		dy := yd - b.sy[j]
		dz := zd - b.sz[j]
		if dx*dx+dy*dy+dz*dz <= cut*cut {
			buf = append(buf, j)
		}
	}
	return buf
}

// CellGrid bins source particles into cubic cells of the maximum
// interaction radius, so a neighbor query only visits the 27 cells around
// the destination.
type CellGrid struct {
	src   *particles.ParticleArray
	dst   *particles.ParticleArray
	scale float64

	cell  float64
	cells map[[3]int][]int

	sx, sy, sz, sh []float64
	dx, dy, dz, dh []float64
}

// NewCellGrid builds a linked-cell neighbor source. scale is as for
// NewBruteForce.
func NewCellGrid(src, dst *particles.ParticleArray, scale float64) (*CellGrid, error) {
	g := &CellGrid{src: src, dst: dst, scale: scale}
	if err := g.Update(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *CellGrid) Update() error {
	var err error
	if g.sx, g.sy, g.sz, g.sh, err = readPositions(g.src); err != nil {
		return err
	}
	if g.dx, g.dy, g.dz, g.dh, err = readPositions(g.dst); err != nil {
		return err
	}

	hmax := 0.0
	for _, h := range g.sh {
		hmax = math.Max(hmax, h)
	}
	for _, h := range g.dh {
		hmax = math.Max(hmax, h)
	}
	g.cell = g.scale * hmax
	if g.cell <= 0 {
		g.cell = 1
	}

	g.cells = make(map[[3]int][]int, len(g.sx))
	for j := range g.sx {
		key := g.key(g.sx[j], g.sy[j], g.sz[j])
		g.cells[key] = append(g.cells[key], j)
	}
	return nil
}

func (g *CellGrid) key(x, y, z float64) [3]int {
	return [3]int{
		int(math.Floor(x / g.cell)),
		int(math.Floor(y / g.cell)),
		int(math.Floor(z / g.cell)),
	}
}

func (g *CellGrid) Neighbors(dest int, buf []int) []int {
	xd, yd, zd := g.dx[dest], g.dy[dest], g.dz[dest]
	hd := g.dh[dest]
	center := g.key(xd, yd, zd)

	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			for dk := -1; dk <= 1; dk++ {
				key := [3]int{center[0] + di, center[1] + dj, center[2] + dk}
				for _, j := range g.cells[key] {
					cut := g.scale * 0.5 * (hd + g.sh[j])
					dx := xd - g.sx[j]
					dy := yd - g.sy[j]
					dz := zd - g.sz[j]
					if dx*dx+dy*dy+dz*dz <= cut*cut {
						buf = append(buf, j)
					}
				}
			}
		}
	}
	return buf
}
