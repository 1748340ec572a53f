// Package metrics observes scalar diagnostics of a running simulation.
package metrics

import (
	"math"

	"github.com/san-kum/sphlab/internal/particles"
)

// Metric samples one scalar from the fluid state over a run.
type Metric interface {
	Name() string
	Observe(fluid *particles.ParticleArray, t float64)
	Value() float64
	Reset()
}

// velocities fetches the velocity components, tolerating absent ones so
// 1D and 2D runs observe the same metrics.
func velocities(fluid *particles.ParticleArray) (u, v, w []float64) {
	u, _ = fluid.Floats("u")
	v, _ = fluid.Floats("v")
	w, _ = fluid.Floats("w")
	return
}

// KineticEnergy tracks sum(0.5 m |v|^2) at the latest observation.
type KineticEnergy struct {
	current float64
	samples int
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{} }

func (k *KineticEnergy) Name() string { return "kinetic_energy" }

func (k *KineticEnergy) Observe(fluid *particles.ParticleArray, t float64) {
	m, err := fluid.Floats("m")
	if err != nil {
		return
	}
	u, v, w := velocities(fluid)

	total := 0.0
	for i := range m {
		sq := 0.0
		if u != nil {
			sq += u[i] * u[i]
		}
		if v != nil {
			sq += v[i] * v[i]
		}
		if w != nil {
			sq += w[i] * w[i]
		}
		total += 0.5 * m[i] * sq
	}
	k.current = total
	k.samples++
}

func (k *KineticEnergy) Value() float64 { return k.current }

func (k *KineticEnergy) Reset() {
	k.current = 0
	k.samples = 0
}

// InternalEnergy tracks sum(m e) at the latest observation.
type InternalEnergy struct {
	current float64
	samples int
}

func NewInternalEnergy() *InternalEnergy { return &InternalEnergy{} }

func (n *InternalEnergy) Name() string { return "internal_energy" }

func (n *InternalEnergy) Observe(fluid *particles.ParticleArray, t float64) {
	m, err := fluid.Floats("m")
	if err != nil {
		return
	}
	e, err := fluid.Floats("e")
	if err != nil {
		return
	}
	total := 0.0
	for i := range m {
		total += m[i] * e[i]
	}
	n.current = total
	n.samples++
}

func (n *InternalEnergy) Value() float64 { return n.current }

func (n *InternalEnergy) Reset() {
	n.current = 0
	n.samples = 0
}

// EnergyDrift tracks the maximum relative drift of the total (kinetic
// plus internal) energy from its first observation.
type EnergyDrift struct {
	kinetic  KineticEnergy
	internal InternalEnergy

	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift { return &EnergyDrift{} }

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(fluid *particles.ParticleArray, t float64) {
	e.kinetic.Observe(fluid, t)
	e.internal.Observe(fluid, t)
	total := e.kinetic.Value() + e.internal.Value()

	if e.samples == 0 {
		e.initial = total
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(total-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.kinetic.Reset()
	e.internal.Reset()
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// Momentum tracks the magnitude of the total momentum sum(m v).
type Momentum struct {
	current float64
	samples int
}

func NewMomentum() *Momentum { return &Momentum{} }

func (p *Momentum) Name() string { return "momentum" }

func (p *Momentum) Observe(fluid *particles.ParticleArray, t float64) {
	m, err := fluid.Floats("m")
	if err != nil {
		return
	}
	u, v, w := velocities(fluid)

	var px, py, pz float64
	for i := range m {
		if u != nil {
			px += m[i] * u[i]
		}
		if v != nil {
			py += m[i] * v[i]
		}
		if w != nil {
			pz += m[i] * w[i]
		}
	}
	p.current = math.Sqrt(px*px + py*py + pz*pz)
	p.samples++
}

func (p *Momentum) Value() float64 { return p.current }

func (p *Momentum) Reset() {
	p.current = 0
	p.samples = 0
}

// DensityContrast tracks the max/min density ratio, a cheap indicator
// of particle clumping or evacuation.
type DensityContrast struct {
	current float64
	samples int
}

func NewDensityContrast() *DensityContrast { return &DensityContrast{} }

func (d *DensityContrast) Name() string { return "density_contrast" }

func (d *DensityContrast) Observe(fluid *particles.ParticleArray, t float64) {
	rho, err := fluid.Floats("rho")
	if err != nil || len(rho) == 0 {
		return
	}
	lo, hi := rho[0], rho[0]
	for _, r := range rho[1:] {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	if lo <= 0 {
		d.current = math.Inf(1)
	} else {
		d.current = hi / lo
	}
	d.samples++
}

func (d *DensityContrast) Value() float64 { return d.current }

func (d *DensityContrast) Reset() {
	d.current = 0
	d.samples = 0
}

// Standard returns the usual run diagnostics.
func Standard() []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewInternalEnergy(),
		NewEnergyDrift(),
		NewMomentum(),
		NewDensityContrast(),
	}
}
