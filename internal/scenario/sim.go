package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/sphlab/internal/compute"
	"github.com/san-kum/sphlab/internal/config"
	"github.com/san-kum/sphlab/internal/kernels"
	"github.com/san-kum/sphlab/internal/nnps"
	"github.com/san-kum/sphlab/internal/particles"
	"github.com/san-kum/sphlab/internal/solver"
	"github.com/san-kum/sphlab/internal/sphfunc"
)

// Accumulator column names filled by the interaction pass.
const (
	accRho = "rho_sum"
	accAu  = "au"
	accAv  = "av"
	accAw  = "aw"
	accAe  = "ae"
)

// Sim owns one configured run: the fluid store, the solver with its
// operation registry, and the clock.
type Sim struct {
	cfg   *config.Config
	log   *slog.Logger
	fluid *particles.ParticleArray
	solv  *solver.Solver

	t    float64
	step int
}

// KernelByName maps a config kernel name to an implementation.
func KernelByName(name string) (kernels.Kernel, error) {
	switch name {
	case "cubic":
		return kernels.CubicSpline{}, nil
	case "gaussian":
		return kernels.Gaussian{}, nil
	default:
		return nil, fmt.Errorf("scenario: unknown kernel %q", name)
	}
}

// BackendByName maps a config backend name to an implementation.
func BackendByName(name string) (compute.Backend, error) {
	switch name {
	case "auto":
		return compute.Auto(), nil
	case "cpu":
		return compute.NewCPU(0), nil
	case "accelerator":
		return compute.NewAccelerator(), nil
	default:
		return nil, fmt.Errorf("scenario: unknown backend %q", name)
	}
}

// New seeds the configured scenario and assembles the solver: summation
// density, the momentum equation and the energy equation, all over a
// cell-grid neighbor source on the single fluid store.
func New(cfg *config.Config, log *slog.Logger) (*Sim, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fluid, err := Seed(cfg.Scenario, cfg, log)
	if err != nil {
		return nil, err
	}
	kernel, err := KernelByName(cfg.Kernel)
	if err != nil {
		return nil, err
	}
	backend, err := BackendByName(cfg.Backend)
	if err != nil {
		return nil, err
	}

	grid, err := nnps.NewCellGrid(fluid, fluid, kernel.Radius())
	if err != nil {
		return nil, err
	}

	coeff := sphfunc.Coefficients{
		Alpha:      cfg.Coeff.Alpha,
		Beta:       cfg.Coeff.Beta,
		Eta:        cfg.Coeff.Eta,
		Gamma:      cfg.Coeff.Gamma,
		SoundSpeed: cfg.Coeff.SoundSpeed,
	}

	density, err := sphfunc.NewSummationDensity(fluid, fluid, kernel, sphfunc.Config{
		ID:               "density",
		Dim:              1,
		SymmetrizeKernel: cfg.Symmetrize,
		Coeff:            coeff,
	})
	if err != nil {
		return nil, err
	}
	momentum, err := sphfunc.NewMomentumEquation(fluid, fluid, kernel, sphfunc.Config{
		ID:               "momentum",
		Dim:              cfg.Dim,
		SymmetrizeKernel: cfg.Symmetrize,
		Coeff:            coeff,
	})
	if err != nil {
		return nil, err
	}
	energy, err := sphfunc.NewEnergyEquation(fluid, fluid, kernel, sphfunc.Config{
		ID:               "energy",
		SymmetrizeKernel: cfg.Symmetrize,
		Coeff:            coeff,
	}, cfg.Viscous)
	if err != nil {
		return nil, err
	}

	solv := solver.New(log, backend)
	accel := []string{accAu, accAv, accAw}[:cfg.Dim]
	ops := []solver.Operation{
		{Fn: density, Source: fluid, Dest: fluid, Neighbors: grid, Outputs: []string{accRho}, Coeff: coeff},
		{Fn: momentum, Source: fluid, Dest: fluid, Neighbors: grid, Outputs: accel, Coeff: coeff},
		{Fn: energy, Source: fluid, Dest: fluid, Neighbors: grid, Outputs: []string{accAe}, Coeff: coeff},
	}
	for _, op := range ops {
		if err := solv.AddOperation(op); err != nil {
			return nil, err
		}
	}

	return &Sim{cfg: cfg, log: log.With("scenario", cfg.Scenario), fluid: fluid, solv: solv}, nil
}

// Fluid exposes the particle store for inspection and rendering.
func (s *Sim) Fluid() *particles.ParticleArray { return s.fluid }

// Solver exposes the operation registry, e.g. to insert extra passes.
func (s *Sim) Solver() *solver.Solver { return s.solv }

// Time returns the current simulation time.
func (s *Sim) Time() float64 { return s.t }

// StepCount returns the number of completed steps.
func (s *Sim) StepCount() int { return s.step }

// Done reports whether the configured duration has elapsed.
func (s *Sim) Done() bool { return s.t >= s.cfg.Duration }

// Step advances one timestep: equation of state, interaction pass, then
// a forward-Euler update of velocity, position, energy and density from
// the filled accumulators.
func (s *Sim) Step(ctx context.Context) error {
	gamma := s.cfg.Coeff.Gamma
	if err := UpdatePressure(s.fluid, gamma); err != nil {
		return err
	}
	if err := UpdateSoundSpeed(s.fluid, gamma); err != nil {
		return err
	}

	if err := s.solv.RunPass(ctx, s.t); err != nil {
		return err
	}

	dt := s.cfg.Dt
	if err := s.applyAccelerations(dt); err != nil {
		return err
	}
	if err := s.advectPositions(dt); err != nil {
		return err
	}
	if err := s.applyDensity(); err != nil {
		return err
	}

	s.t += dt
	s.step++
	return nil
}

// Run steps until the duration elapses or ctx is canceled, invoking
// observe (if non-nil) after every step.
func (s *Sim) Run(ctx context.Context, observe func(s *Sim) error) error {
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return fmt.Errorf("step %d: %w", s.step, err)
		}
		if observe != nil {
			if err := observe(s); err != nil {
				return err
			}
		}
	}
	s.log.Info("run complete", "steps", s.step, "t", s.t)
	return nil
}

func (s *Sim) applyAccelerations(dt float64) error {
	vel := []string{"u", "v", "w"}[:s.cfg.Dim]
	acc := []string{accAu, accAv, accAw}[:s.cfg.Dim]
	for c := range vel {
		v, err := s.fluid.Floats(vel[c])
		if err != nil {
			return err
		}
		a, err := s.fluid.Floats(acc[c])
		if err != nil {
			return err
		}
		for i := range v {
			v[i] += a[i] * dt
		}
	}

	e, err := s.fluid.Floats("e")
	if err != nil {
		return err
	}
	ae, err := s.fluid.Floats(accAe)
	if err != nil {
		return err
	}
	for i := range e {
		e[i] += ae[i] * dt
	}
	return nil
}

func (s *Sim) advectPositions(dt float64) error {
	pos := []string{"x", "y", "z"}[:s.cfg.Dim]
	vel := []string{"u", "v", "w"}[:s.cfg.Dim]
	for c := range pos {
		x, err := s.fluid.Floats(pos[c])
		if err != nil {
			return err
		}
		v, err := s.fluid.Floats(vel[c])
		if err != nil {
			return err
		}
		for i := range x {
			x[i] += v[i] * dt
		}
	}
	return nil
}

func (s *Sim) applyDensity() error {
	rho, err := s.fluid.Floats("rho")
	if err != nil {
		return err
	}
	sum, err := s.fluid.Floats(accRho)
	if err != nil {
		return err
	}
	copy(rho, sum)
	return nil
}
