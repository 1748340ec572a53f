package scenario

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/sphlab/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Particles.Spacing = 0.02
	return cfg
}

func TestShockTubeSeeding(t *testing.T) {
	cfg := testConfig()
	fluid, err := ShockTube(cfg, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if fluid.Len() == 0 {
		t.Fatal("no particles seeded")
	}

	x, _ := fluid.Floats("x")
	m, _ := fluid.Floats("m")
	rho, _ := fluid.Floats("rho")
	p, _ := fluid.Floats("p")
	cs, _ := fluid.Floats("cs")

	for i := range x {
		if m[i] != m[0] {
			t.Fatalf("particle %d mass %g differs from %g", i, m[i], m[0])
		}
		if cs[i] <= 0 {
			t.Fatalf("particle %d has non-positive sound speed", i)
		}
		if x[i] < 0 {
			if rho[i] != 1.0 || p[i] != 1.0 {
				t.Fatalf("left state at x=%g: rho=%g p=%g", x[i], rho[i], p[i])
			}
		} else {
			if rho[i] != 0.25 || p[i] != 0.1 {
				t.Fatalf("right state at x=%g: rho=%g p=%g", x[i], rho[i], p[i])
			}
		}
	}
}

func TestEllipticalDropSeeding(t *testing.T) {
	cfg := testConfig()
	cfg.Scenario = "drop"
	cfg.Dim = 2

	fluid, err := EllipticalDrop(cfg, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if fluid.Len() == 0 {
		t.Fatal("no particles seeded")
	}

	x, _ := fluid.Floats("x")
	y, _ := fluid.Floats("y")
	u, _ := fluid.Floats("u")
	v, _ := fluid.Floats("v")

	for i := range x {
		if x[i]*x[i]+y[i]*y[i] > 1.0 {
			t.Fatalf("particle %d at (%g,%g) outside unit disc", i, x[i], y[i])
		}
		if u[i] != -100*x[i] || v[i] != 100*y[i] {
			t.Fatalf("particle %d velocity (%g,%g) breaks the drop field", i, u[i], v[i])
		}
	}
}

func TestSeedUnknownScenario(t *testing.T) {
	cfg := testConfig()
	if _, err := Seed("vortex", cfg, nil); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestKernelByName(t *testing.T) {
	for _, name := range []string{"cubic", "gaussian"} {
		if _, err := KernelByName(name); err != nil {
			t.Errorf("kernel %q: %v", name, err)
		}
	}
	if _, err := KernelByName("quintic"); err == nil {
		t.Error("expected error for unknown kernel")
	}
}

func TestBackendByName(t *testing.T) {
	for _, name := range []string{"auto", "cpu", "accelerator"} {
		if _, err := BackendByName(name); err != nil {
			t.Errorf("backend %q: %v", name, err)
		}
	}
	if _, err := BackendByName("tpu"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestUpdatePressureEOS(t *testing.T) {
	cfg := testConfig()
	fluid, err := ShockTube(cfg, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	e, _ := fluid.Floats("e")
	rho, _ := fluid.Floats("rho")
	for i := range e {
		e[i] = 2.0
		rho[i] = 0.5
	}
	if err := UpdatePressure(fluid, 1.4); err != nil {
		t.Fatalf("eos: %v", err)
	}

	p, _ := fluid.Floats("p")
	want := 0.4 * 0.5 * 2.0
	for i := range p {
		if math.Abs(p[i]-want) > 1e-12 {
			t.Fatalf("particle %d pressure %g, want %g", i, p[i], want)
		}
	}
}

func TestSimStepAdvances(t *testing.T) {
	cfg := testConfig()
	sim, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := sim.Step(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if sim.StepCount() != 5 {
		t.Errorf("expected 5 steps, got %d", sim.StepCount())
	}
	if math.Abs(sim.Time()-5*cfg.Dt) > 1e-12 {
		t.Errorf("expected t=%g, got %g", 5*cfg.Dt, sim.Time())
	}

	rho, _ := sim.Fluid().Floats("rho")
	for i, r := range rho {
		if r <= 0 || math.IsNaN(r) {
			t.Fatalf("particle %d density %g after stepping", i, r)
		}
	}
}

func TestSimConservesMomentum(t *testing.T) {
	cfg := testConfig()
	cfg.Symmetrize = true
	sim, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	momentum := func() float64 {
		m, _ := sim.Fluid().Floats("m")
		u, _ := sim.Fluid().Floats("u")
		total := 0.0
		for i := range m {
			total += m[i] * u[i]
		}
		return total
	}

	before := momentum()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := sim.Step(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	after := momentum()

	if math.Abs(after-before) > 1e-8 {
		t.Errorf("momentum drifted from %g to %g", before, after)
	}
}

func TestSimRunObserves(t *testing.T) {
	cfg := testConfig()
	cfg.Duration = 5 * cfg.Dt
	sim, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	calls := 0
	err = sim.Run(context.Background(), func(*Sim) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sim.Done() {
		t.Error("run returned before duration elapsed")
	}
	if calls != sim.StepCount() {
		t.Errorf("observer called %d times over %d steps", calls, sim.StepCount())
	}
}

func TestSimRunCanceled(t *testing.T) {
	cfg := testConfig()
	sim, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx, nil); err == nil {
		t.Error("expected error from canceled context")
	}
}
