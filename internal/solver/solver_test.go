package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/sphlab/internal/carray"
	"github.com/san-kum/sphlab/internal/compute"
	"github.com/san-kum/sphlab/internal/kernels"
	"github.com/san-kum/sphlab/internal/nnps"
	"github.com/san-kum/sphlab/internal/particles"
	"github.com/san-kum/sphlab/internal/sphfunc"
)

func testStore(t *testing.T, xs []float64) *particles.ParticleArray {
	t.Helper()
	n := len(xs)
	ones := make([]float64, n)
	zeros := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	pa, err := particles.New("fluid", nil,
		particles.PropertySpec{Name: "x", Type: carray.Float64, Data: xs},
		particles.PropertySpec{Name: "y", Type: carray.Float64, Data: zeros},
		particles.PropertySpec{Name: "z", Type: carray.Float64, Data: zeros},
		particles.PropertySpec{Name: "u", Type: carray.Float64, Data: zeros},
		particles.PropertySpec{Name: "v", Type: carray.Float64, Data: zeros},
		particles.PropertySpec{Name: "w", Type: carray.Float64, Data: zeros},
		particles.PropertySpec{Name: "m", Type: carray.Float64, Data: ones},
		particles.PropertySpec{Name: "rho", Type: carray.Float64, Data: ones},
		particles.PropertySpec{Name: "p", Type: carray.Float64, Data: ones},
		particles.PropertySpec{Name: "h", Type: carray.Float64, Data: ones},
		particles.PropertySpec{Name: "cs", Type: carray.Float64, Data: ones},
	)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return pa
}

func densityOp(t *testing.T, pa *particles.ParticleArray, id string) Operation {
	t.Helper()
	fn, err := sphfunc.NewSummationDensity(pa, pa, kernels.CubicSpline{}, sphfunc.Config{ID: id})
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	nb, err := nnps.NewBruteForce(pa, pa, kernels.CubicSpline{}.Radius())
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	return Operation{Fn: fn, Source: pa, Dest: pa, Neighbors: nb, Outputs: []string{"arho_" + id}}
}

func TestRunPassSummationDensity(t *testing.T) {
	pa := testStore(t, []float64{0, 0.5})
	s := New(nil, compute.NewCPU(1))

	if err := s.AddOperation(densityOp(t, pa, "density")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RunPass(context.Background(), 0); err != nil {
		t.Fatalf("pass: %v", err)
	}

	got, err := pa.Floats("arho_density")
	if err != nil {
		t.Fatalf("output: %v", err)
	}

	k := kernels.CubicSpline{}
	want := k.Value(0, 1) + k.Value(0.5, 1)
	for i, g := range got {
		if math.Abs(g-want) > 1e-12 {
			t.Errorf("particle %d: density %g, want %g", i, g, want)
		}
	}
}

func TestRunPassZeroesAccumulators(t *testing.T) {
	pa := testStore(t, []float64{0, 0.5})
	s := New(nil, compute.NewCPU(1))
	if err := s.AddOperation(densityOp(t, pa, "density")); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Two passes must not double the accumulated values.
	if err := s.RunPass(context.Background(), 0); err != nil {
		t.Fatalf("pass 1: %v", err)
	}
	first, _ := pa.Floats("arho_density")
	snapshot := append([]float64(nil), first...)

	if err := s.RunPass(context.Background(), 0); err != nil {
		t.Fatalf("pass 2: %v", err)
	}
	second, _ := pa.Floats("arho_density")

	for i := range snapshot {
		if math.Abs(second[i]-snapshot[i]) > 1e-12 {
			t.Errorf("particle %d: accumulator not reset between passes", i)
		}
	}
}

func TestRunPassParallelMatchesSerial(t *testing.T) {
	xs := make([]float64, 400)
	for i := range xs {
		xs[i] = float64(i) * 0.3
	}

	serial := testStore(t, xs)
	parallel := testStore(t, xs)

	s1 := New(nil, compute.NewCPU(1))
	s4 := New(nil, compute.NewCPU(4))
	if err := s1.AddOperation(densityOp(t, serial, "density")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s4.AddOperation(densityOp(t, parallel, "density")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s1.RunPass(context.Background(), 0); err != nil {
		t.Fatalf("serial pass: %v", err)
	}
	if err := s4.RunPass(context.Background(), 0); err != nil {
		t.Fatalf("parallel pass: %v", err)
	}

	a, _ := serial.Floats("arho_density")
	b, _ := parallel.Floats("arho_density")
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-12 {
			t.Fatalf("particle %d: serial %g vs parallel %g", i, a[i], b[i])
		}
	}
}

func TestRegistryOrdering(t *testing.T) {
	pa := testStore(t, []float64{0, 0.5})
	s := New(nil, nil)

	if err := s.AddOperation(densityOp(t, pa, "a")); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := s.AddOperation(densityOp(t, pa, "c")); err != nil {
		t.Fatalf("add c: %v", err)
	}
	if err := s.AddOperationBefore(densityOp(t, pa, "b"), "c"); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if err := s.AddOperationAfter(densityOp(t, pa, "d"), "c"); err != nil {
		t.Fatalf("insert d: %v", err)
	}

	want := []string{"a", "b", "c", "d"}
	got := s.Order()
	if len(got) != len(want) {
		t.Fatalf("order %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestRegistryDuplicateAndUnknown(t *testing.T) {
	pa := testStore(t, []float64{0, 0.5})
	s := New(nil, nil)

	if err := s.AddOperation(densityOp(t, pa, "a")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddOperation(densityOp(t, pa, "a")); !errors.Is(err, ErrDuplicateOperation) {
		t.Errorf("expected ErrDuplicateOperation, got %v", err)
	}
	if err := s.AddOperationBefore(densityOp(t, pa, "b"), "nope"); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("expected ErrUnknownOperation, got %v", err)
	}
	if err := s.RemoveOperation("nope"); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("expected ErrUnknownOperation, got %v", err)
	}

	if err := s.RemoveOperation("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(s.Order()) != 0 {
		t.Errorf("registry should be empty, got %v", s.Order())
	}
}

func TestSetOrder(t *testing.T) {
	pa := testStore(t, []float64{0, 0.5})
	s := New(nil, nil)
	for _, id := range []string{"a", "b"} {
		if err := s.AddOperation(densityOp(t, pa, id)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	if err := s.SetOrder([]string{"b", "a"}); err != nil {
		t.Fatalf("set order: %v", err)
	}
	if got := s.Order(); got[0] != "b" || got[1] != "a" {
		t.Errorf("order %v, want [b a]", got)
	}

	if err := s.SetOrder([]string{"a"}); err == nil {
		t.Error("partial order must fail")
	}
	if err := s.SetOrder([]string{"a", "a"}); !errors.Is(err, ErrDuplicateOperation) {
		t.Errorf("expected ErrDuplicateOperation, got %v", err)
	}
	if err := s.SetOrder([]string{"a", "x"}); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestStepHooks(t *testing.T) {
	pa := testStore(t, []float64{0, 0.5})
	s := New(nil, compute.NewCPU(1))
	if err := s.AddOperation(densityOp(t, pa, "density")); err != nil {
		t.Fatalf("add: %v", err)
	}

	var events []string
	s.OnPreStep(func(t float64) { events = append(events, "pre") })
	s.OnPostStep(func(t float64) { events = append(events, "post") })

	if err := s.RunPass(context.Background(), 1.5); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(events) != 2 || events[0] != "pre" || events[1] != "post" {
		t.Errorf("hook order %v, want [pre post]", events)
	}
}

func TestRunPassCanceled(t *testing.T) {
	pa := testStore(t, []float64{0, 0.5})
	s := New(nil, nil)
	if err := s.AddOperation(densityOp(t, pa, "density")); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.RunPass(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
