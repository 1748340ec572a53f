package sphfunc

import (
	"github.com/san-kum/sphlab/internal/kernels"
	"github.com/san-kum/sphlab/internal/particles"
)

var (
	densitySrcReads = []string{"x", "y", "z", "m", "h"}
	densityDstReads = []string{"x", "y", "z", "h"}
)

// SummationDensity accumulates the kernel-weighted density estimate
//
//	accum += m_b * W(|x_a - x_b|, h_ab)
//
// into a one-component output. It uses the kernel value, not its
// gradient, so the correction hook and symmetrization flag do not apply.
type SummationDensity struct {
	*pairBase
}

// NewSummationDensity validates the required columns on both stores and
// returns the evaluator.
func NewSummationDensity(src, dst *particles.ParticleArray, k kernels.Kernel, cfg Config) (*SummationDensity, error) {
	cfg.Dim = 1
	base, err := newPairBase(src, dst, k, cfg, densitySrcReads, densityDstReads)
	if err != nil {
		return nil, err
	}
	return &SummationDensity{pairBase: base}, nil
}

// Accumulate adds the pair's density contribution into out[0].
func (f *SummationDensity) Accumulate(srcIdx, dstIdx int, out []float64) {
	r := f.dstPos(dstIdx).Sub(f.srcPos(srcIdx)).Norm()
	h := 0.5 * (f.sh[srcIdx] + f.dh[dstIdx])
	out[0] += f.sm[srcIdx] * f.kernel.Value(r, h)
}
