package sphfunc

import (
	"github.com/san-kum/sphlab/internal/kernels"
	"github.com/san-kum/sphlab/internal/particles"
	"github.com/san-kum/sphlab/internal/vec"
)

var (
	energySrcReads = []string{"x", "y", "z", "u", "v", "w", "m", "rho", "p", "h", "cs"}
	energyDstReads = []string{"x", "y", "z", "u", "v", "w", "rho", "p", "h", "cs"}
)

// EnergyEquation accumulates the thermal-energy rate
//
//	accum += 0.5 * m_b * (P_a/rho_a^2 + P_b/rho_b^2 [+ Pi_ab]) * (v_a - v_b) . gradW
//
// a scalar: the velocity difference is dotted with the kernel gradient
// rather than accumulated componentwise. The viscous term is included
// only for the with-viscosity variant.
type EnergyEquation struct {
	*pairBase
	viscous bool
}

// NewEnergyEquation returns the energy-rate evaluator. viscous selects
// whether the artificial-viscosity heating term is included.
func NewEnergyEquation(src, dst *particles.ParticleArray, k kernels.Kernel, cfg Config, viscous bool) (*EnergyEquation, error) {
	// The rate is scalar regardless of the spatial dimensionality.
	cfg.Dim = 1
	base, err := newPairBase(src, dst, k, cfg, energySrcReads, energyDstReads)
	if err != nil {
		return nil, err
	}
	return &EnergyEquation{pairBase: base, viscous: viscous}, nil
}

// Accumulate adds the pair's energy rate into out[0].
func (f *EnergyEquation) Accumulate(srcIdx, dstIdx int, out []float64) {
	term := f.pressureTerm(srcIdx, dstIdx)
	if f.viscous {
		term += f.viscosity(srcIdx, dstIdx)
	}
	temp := 0.5 * f.sm[srcIdx] * term

	vab := vec.Vec3{
		f.du[dstIdx] - f.su[srcIdx],
		f.dv[dstIdx] - f.sv[srcIdx],
		f.dw[dstIdx] - f.sw[srcIdx],
	}
	out[0] += temp * vab.Dot(f.gradient(srcIdx, dstIdx))
}
