package sphfunc

import (
	"errors"
	"fmt"

	"github.com/san-kum/sphlab/internal/kernels"
	"github.com/san-kum/sphlab/internal/particles"
	"github.com/san-kum/sphlab/internal/vec"
)

// ErrConfiguration indicates an evaluator referencing a property absent
// from its source or destination store. It is detected once at setup and
// is fatal; evaluators never re-check per pair.
var ErrConfiguration = errors.New("sphfunc: invalid configuration")

// ConfigError names the store and property behind an ErrConfiguration.
type ConfigError struct {
	Evaluator string
	Store     string
	Property  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sphfunc: %s: store %q missing property %q", e.Evaluator, e.Store, e.Property)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Coefficients carries the numeric constants of the interaction laws.
type Coefficients struct {
	// Artificial viscosity.
	Alpha float64
	Beta  float64
	Eta   float64
	// Polytropic exponent of the equation of state.
	Gamma float64
	// Fixed sound speed. Zero or negative selects the average of the
	// per-particle "cs" columns instead.
	SoundSpeed float64
}

// DefaultCoefficients are the usual Monaghan artificial-viscosity
// constants.
func DefaultCoefficients() Coefficients {
	return Coefficients{Alpha: 1.0, Beta: 1.0, Eta: 0.1, Gamma: 1.4}
}

// CorrectionFunc optionally post-processes a computed kernel gradient in
// place, e.g. a kernel-gradient consistency correction. destIndex is the
// destination-particle index of the pair being evaluated.
type CorrectionFunc func(destIndex int, grad *vec.Vec3)

// Config describes one evaluator instance.
type Config struct {
	// ID identifies the evaluator in the solver's operation registry.
	ID string
	// Dim is the output dimensionality, 1 to 3. Components beyond Dim are
	// never written.
	Dim int
	// SymmetrizeKernel selects the two-gradient mode: the kernel gradient
	// is evaluated at each particle's own smoothing length and the two
	// results averaged, instead of one evaluation at the averaged h.
	SymmetrizeKernel bool
	Coeff            Coefficients
	Correction       CorrectionFunc
}

// Function is the contract every pair evaluator satisfies.
type Function interface {
	// ID returns the evaluator's registry id.
	ID() string
	// Dim returns the configured output dimensionality.
	Dim() int
	// Reads returns the property names read from the source and
	// destination stores. Together with the coefficient set this is
	// sufficient for an external backend to reconstruct the computation.
	Reads() (src, dst []string)
	// Bind refreshes the live column views. Call after any structural
	// mutation of either store, before the next pass.
	Bind() error
	// Accumulate adds the pair's contribution for (srcIdx, dstIdx) into
	// out. It never overwrites.
	Accumulate(srcIdx, dstIdx int, out []float64)
}

// pairBase carries the shared state of the concrete evaluators: the two
// stores, the kernel, and the bound column views.
type pairBase struct {
	cfg    Config
	src    *particles.ParticleArray
	dst    *particles.ParticleArray
	kernel kernels.Kernel

	srcReads []string
	dstReads []string

	// Bound views, one slice per read property, same order as the read
	// lists. Named fields below alias into these for the hot loop.
	sx, sy, sz, sm, srho, sp, sh []float64
	dx, dy, dz, drho, dp, dh     []float64
	su, sv, sw, scs              []float64
	du, dv, dw, dcs              []float64
}

func newPairBase(src, dst *particles.ParticleArray, k kernels.Kernel, cfg Config, srcReads, dstReads []string) (*pairBase, error) {
	if cfg.Dim < 1 || cfg.Dim > 3 {
		return nil, fmt.Errorf("%w: %s: dim %d outside [1,3]", ErrConfiguration, cfg.ID, cfg.Dim)
	}
	b := &pairBase{
		cfg:      cfg,
		src:      src,
		dst:      dst,
		kernel:   k,
		srcReads: srcReads,
		dstReads: dstReads,
	}
	for _, name := range srcReads {
		if !src.Has(name) {
			return nil, &ConfigError{Evaluator: cfg.ID, Store: src.Name(), Property: name}
		}
	}
	for _, name := range dstReads {
		if !dst.Has(name) {
			return nil, &ConfigError{Evaluator: cfg.ID, Store: dst.Name(), Property: name}
		}
	}
	if err := b.Bind(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *pairBase) ID() string { return b.cfg.ID }
func (b *pairBase) Dim() int   { return b.cfg.Dim }
func (b *pairBase) Reads() (src, dst []string) {
	return append([]string(nil), b.srcReads...), append([]string(nil), b.dstReads...)
}

func (b *pairBase) bindSide(p *particles.ParticleArray, names []string, out map[string]*[]float64) error {
	for _, name := range names {
		view, err := p.Floats(name)
		if err != nil {
			return err
		}
		if slot, ok := out[name]; ok {
			*slot = view
		}
	}
	return nil
}

// Bind refreshes every declared column view from both stores.
func (b *pairBase) Bind() error {
	if err := b.bindSide(b.src, b.srcReads, map[string]*[]float64{
		"x": &b.sx, "y": &b.sy, "z": &b.sz, "m": &b.sm,
		"rho": &b.srho, "p": &b.sp, "h": &b.sh,
		"u": &b.su, "v": &b.sv, "w": &b.sw, "cs": &b.scs,
	}); err != nil {
		return err
	}
	return b.bindSide(b.dst, b.dstReads, map[string]*[]float64{
		"x": &b.dx, "y": &b.dy, "z": &b.dz,
		"rho": &b.drho, "p": &b.dp, "h": &b.dh,
		"u": &b.du, "v": &b.dv, "w": &b.dw, "cs": &b.dcs,
	})
}

func (b *pairBase) srcPos(i int) vec.Vec3 {
	return vec.Vec3{b.sx[i], b.sy[i], b.sz[i]}
}

func (b *pairBase) dstPos(i int) vec.Vec3 {
	return vec.Vec3{b.dx[i], b.dy[i], b.dz[i]}
}

// gradient evaluates the kernel gradient for the pair, honoring the
// symmetrization mode and the optional correction hook.
func (b *pairBase) gradient(s, d int) vec.Vec3 {
	pa, pb := b.dstPos(d), b.srcPos(s)

	var grad vec.Vec3
	if b.cfg.SymmetrizeKernel {
		ga := b.kernel.Gradient(pa, pb, b.dh[d])
		gb := b.kernel.Gradient(pa, pb, b.sh[s])
		grad = ga.Add(gb).Scale(0.5)
	} else {
		grad = b.kernel.Gradient(pa, pb, 0.5*(b.dh[d]+b.sh[s]))
	}
	if b.cfg.Correction != nil {
		b.cfg.Correction(d, &grad)
	}
	return grad
}

// soundSpeed returns c_ab for the pair: the fixed configured value when
// set, otherwise the average of the per-particle sound speeds.
func (b *pairBase) soundSpeed(s, d int) float64 {
	if b.cfg.Coeff.SoundSpeed > 0 {
		return b.cfg.Coeff.SoundSpeed
	}
	return 0.5 * (b.scs[s] + b.dcs[d])
}

// viscosity returns the Monaghan artificial-viscosity term Pi_ab. It is
// zero for receding pairs (dot(v_ab, r_ab) >= 0) regardless of alpha and
// beta.
func (b *pairBase) viscosity(s, d int) float64 {
	rab := b.dstPos(d).Sub(b.srcPos(s))
	vab := vec.Vec3{b.du[d] - b.su[s], b.dv[d] - b.sv[s], b.dw[d] - b.sw[s]}

	dot := vab.Dot(rab)
	if dot >= 0 {
		return 0
	}

	co := b.cfg.Coeff
	hab := 0.5 * (b.sh[s] + b.dh[d])
	mu := hab * dot / (rab.NormSq() + co.Eta*co.Eta*hab*hab)
	rhoAvg := 0.5 * (b.srho[s] + b.drho[d])
	return (-co.Alpha*b.soundSpeed(s, d)*mu + co.Beta*mu*mu) / rhoAvg
}

// pressureTerm returns P_a/rho_a^2 + P_b/rho_b^2 for the pair, the common
// factor of all three laws.
func (b *pairBase) pressureTerm(s, d int) float64 {
	return b.dp[d]/(b.drho[d]*b.drho[d]) + b.sp[s]/(b.srho[s]*b.srho[s])
}
