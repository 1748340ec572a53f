package sphfunc

import (
	"github.com/san-kum/sphlab/internal/kernels"
	"github.com/san-kum/sphlab/internal/particles"
)

var (
	momentumSrcReads = []string{"x", "y", "z", "u", "v", "w", "m", "rho", "p", "h", "cs"}
	momentumDstReads = []string{"x", "y", "z", "u", "v", "w", "rho", "p", "h", "cs"}
)

// MomentumEquation accumulates the SPH momentum equation with Monaghan
// artificial viscosity:
//
//	accum += -m_b * (P_a/rho_a^2 + P_b/rho_b^2 + Pi_ab) * gradW
//
// Pi_ab is nonzero only for approaching pairs; receding pairs reduce to
// the plain pressure-gradient force.
type MomentumEquation struct {
	*pairBase
}

// NewMomentumEquation validates the required columns on both stores and
// returns the evaluator.
func NewMomentumEquation(src, dst *particles.ParticleArray, k kernels.Kernel, cfg Config) (*MomentumEquation, error) {
	base, err := newPairBase(src, dst, k, cfg, momentumSrcReads, momentumDstReads)
	if err != nil {
		return nil, err
	}
	return &MomentumEquation{pairBase: base}, nil
}

// Accumulate adds the pair acceleration into out[0:dim].
func (f *MomentumEquation) Accumulate(srcIdx, dstIdx int, out []float64) {
	tmp := -f.sm[srcIdx] * (f.pressureTerm(srcIdx, dstIdx) + f.viscosity(srcIdx, dstIdx))
	grad := f.gradient(srcIdx, dstIdx)
	for c := 0; c < f.cfg.Dim; c++ {
		out[c] += tmp * grad[c]
	}
}
