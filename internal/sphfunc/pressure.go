package sphfunc

import (
	"github.com/san-kum/sphlab/internal/kernels"
	"github.com/san-kum/sphlab/internal/particles"
)

var (
	pressureSrcReads = []string{"x", "y", "z", "m", "rho", "p", "h"}
	pressureDstReads = []string{"x", "y", "z", "rho", "p", "h"}
)

// PressureGradient accumulates the symmetric SPH pressure-gradient force
//
//	accum += -m_b * (P_a/rho_a^2 + P_b/rho_b^2) * gradW(x_a, x_b, h_ab)
//
// with a the destination and b the source particle. The leading minus
// sign is the canonical convention here: for positive pressures the force
// pushes the destination particle away from its neighbor.
type PressureGradient struct {
	*pairBase
}

// NewPressureGradient validates the required columns on both stores and
// returns the evaluator.
func NewPressureGradient(src, dst *particles.ParticleArray, k kernels.Kernel, cfg Config) (*PressureGradient, error) {
	base, err := newPairBase(src, dst, k, cfg, pressureSrcReads, pressureDstReads)
	if err != nil {
		return nil, err
	}
	return &PressureGradient{pairBase: base}, nil
}

// Accumulate adds the pair force into out[0:dim].
func (f *PressureGradient) Accumulate(srcIdx, dstIdx int, out []float64) {
	coeff := -f.sm[srcIdx] * f.pressureTerm(srcIdx, dstIdx)
	grad := f.gradient(srcIdx, dstIdx)
	for c := 0; c < f.cfg.Dim; c++ {
		out[c] += coeff * grad[c]
	}
}
