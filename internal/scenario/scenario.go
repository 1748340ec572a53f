// Package scenario seeds particle stores with initial conditions and
// drives the simulation loop built on top of them.
package scenario

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/sphlab/internal/carray"
	"github.com/san-kum/sphlab/internal/config"
	"github.com/san-kum/sphlab/internal/particles"
)

// fluidProperties is the property schema every scenario seeds: position,
// velocity, mass, density, pressure, smoothing length, specific internal
// energy and sound speed.
var fluidProperties = []string{"x", "y", "z", "u", "v", "w", "m", "rho", "p", "h", "e", "cs"}

// NewFluid returns an empty store carrying the standard fluid schema.
func NewFluid(name string, log *slog.Logger) (*particles.ParticleArray, error) {
	specs := make([]particles.PropertySpec, 0, len(fluidProperties))
	for _, prop := range fluidProperties {
		specs = append(specs, particles.PropertySpec{Name: prop, Type: carray.Float64})
	}
	return particles.New(name, log, specs...)
}

// Seeder populates a fluid store for one named scenario.
type Seeder func(cfg *config.Config, log *slog.Logger) (*particles.ParticleArray, error)

var seeders = map[string]Seeder{
	"shocktube": ShockTube,
	"drop":      EllipticalDrop,
}

// Names lists the registered scenario names.
func Names() []string {
	names := make([]string, 0, len(seeders))
	for name := range seeders {
		names = append(names, name)
	}
	return names
}

// Seed dispatches to the named scenario.
func Seed(name string, cfg *config.Config, log *slog.Logger) (*particles.ParticleArray, error) {
	seed, ok := seeders[name]
	if !ok {
		return nil, fmt.Errorf("scenario: unknown scenario %q", name)
	}
	return seed(cfg, log)
}

// ShockTube seeds the 1D Sod problem on [-0.6, 0.6): a dense hot region
// on the left against a rarefied cold one on the right, discontinuous at
// the origin. Particles carry equal mass, so the rarefied side uses four
// times the lattice spacing of the dense side.
func ShockTube(cfg *config.Config, log *slog.Logger) (*particles.ParticleArray, error) {
	fluid, err := NewFluid("fluid", log)
	if err != nil {
		return nil, err
	}

	const (
		rhoLeft  = 1.0
		pLeft    = 1.0
		rhoRight = 0.25
		pRight   = 0.1
	)

	dxLeft := cfg.Particles.Spacing
	dxRight := 4 * dxLeft
	gamma := cfg.Coeff.Gamma
	mass := rhoLeft * dxLeft
	h := cfg.Particles.HFactor * dxRight

	var xs, ms, rhos, ps, es, hs []float64
	for x := -0.6 + 0.5*dxLeft; x < 0; x += dxLeft {
		xs = append(xs, x)
		ms = append(ms, mass)
		rhos = append(rhos, rhoLeft)
		ps = append(ps, pLeft)
		es = append(es, pLeft/((gamma-1)*rhoLeft))
		hs = append(hs, h)
	}
	for x := 0.5 * dxRight; x < 0.6; x += dxRight {
		xs = append(xs, x)
		ms = append(ms, mass)
		rhos = append(rhos, rhoRight)
		ps = append(ps, pRight)
		es = append(es, pRight/((gamma-1)*rhoRight))
		hs = append(hs, h)
	}

	err = fluid.AddParticles(map[string][]float64{
		"x":   xs,
		"m":   ms,
		"rho": rhos,
		"p":   ps,
		"e":   es,
		"h":   hs,
	})
	if err != nil {
		return nil, err
	}
	if err := UpdateSoundSpeed(fluid, gamma); err != nil {
		return nil, err
	}
	return fluid, nil
}

// EllipticalDrop seeds Monaghan's incompressible-drop test: a unit disc
// of fluid on a square lattice with the initial velocity field
// (u, v) = (-100x, 100y), which deforms the circle into an ellipse of
// constant area.
func EllipticalDrop(cfg *config.Config, log *slog.Logger) (*particles.ParticleArray, error) {
	fluid, err := NewFluid("fluid", log)
	if err != nil {
		return nil, err
	}

	dx := cfg.Particles.Spacing
	gamma := cfg.Coeff.Gamma
	rho0 := 1.0
	mass := rho0 * dx * dx
	h := cfg.Particles.HFactor * dx
	p0 := 1.0

	var xs, ys, us, vs, ms, rhos, ps, es, hs []float64
	for x := -1.0 + 0.5*dx; x < 1.0; x += dx {
		for y := -1.0 + 0.5*dx; y < 1.0; y += dx {
			if x*x+y*y > 1.0 {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, y)
			us = append(us, -100*x)
			vs = append(vs, 100*y)
			ms = append(ms, mass)
			rhos = append(rhos, rho0)
			ps = append(ps, p0)
			es = append(es, p0/((gamma-1)*rho0))
			hs = append(hs, h)
		}
	}

	err = fluid.AddParticles(map[string][]float64{
		"x":   xs,
		"y":   ys,
		"u":   us,
		"v":   vs,
		"m":   ms,
		"rho": rhos,
		"p":   ps,
		"e":   es,
		"h":   hs,
	})
	if err != nil {
		return nil, err
	}
	if err := UpdateSoundSpeed(fluid, gamma); err != nil {
		return nil, err
	}
	return fluid, nil
}

// UpdatePressure applies the ideal-gas equation of state
// p = (gamma-1) rho e to every particle.
func UpdatePressure(fluid *particles.ParticleArray, gamma float64) error {
	rho, err := fluid.Floats("rho")
	if err != nil {
		return err
	}
	e, err := fluid.Floats("e")
	if err != nil {
		return err
	}
	p, err := fluid.Floats("p")
	if err != nil {
		return err
	}
	for i := range p {
		p[i] = (gamma - 1) * rho[i] * e[i]
	}
	return nil
}

// UpdateSoundSpeed recomputes cs = sqrt(gamma p / rho) from the current
// pressure and density. Non-positive densities leave cs at zero.
func UpdateSoundSpeed(fluid *particles.ParticleArray, gamma float64) error {
	rho, err := fluid.Floats("rho")
	if err != nil {
		return err
	}
	p, err := fluid.Floats("p")
	if err != nil {
		return err
	}
	cs, err := fluid.Floats("cs")
	if err != nil {
		return err
	}
	for i := range cs {
		if rho[i] <= 0 {
			cs[i] = 0
			continue
		}
		cs[i] = math.Sqrt(gamma * p[i] / rho[i])
	}
	return nil
}
