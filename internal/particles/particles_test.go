package particles

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/sphlab/internal/carray"
)

func newTestStore(t *testing.T) *ParticleArray {
	t.Helper()
	p, err := New("fluid", nil,
		PropertySpec{Name: "x", Type: carray.Float64, Data: []float64{0, 1, 2, 3}},
		PropertySpec{Name: "m", Type: carray.Float64, Default: 1.0, Data: []float64{1, 1, 1, 1}},
	)
	require.NoError(t, err)
	return p
}

// checkLengths asserts the N-invariant: every property column has the same
// length as the store.
func checkLengths(t *testing.T, p *ParticleArray) {
	t.Helper()
	n := p.Len()
	for _, name := range p.Properties() {
		col, err := p.Get(name)
		require.NoError(t, err)
		assert.Equal(t, n, col.Len(), "property %q length", name)
	}
}

func TestNewEmpty(t *testing.T) {
	p, err := New("empty", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, []string{"tag"}, p.Properties())
}

func TestInitializeCommonLength(t *testing.T) {
	_, err := New("bad", nil,
		PropertySpec{Name: "x", Type: carray.Float64, Data: []float64{0, 1}},
		PropertySpec{Name: "y", Type: carray.Float64, Data: []float64{0, 1, 2}},
	)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestInitializeBackfillsTag(t *testing.T) {
	p := newTestStore(t)
	assert.Equal(t, 4, p.Len())
	tags, err := p.Ints("tag")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 0}, tags)
	checkLengths(t, p)
}

func TestAddPropertyBackfill(t *testing.T) {
	// Empty store: first data-carrying property establishes N, a later
	// data-less property is backfilled with its default.
	p, err := New("fluid", nil)
	require.NoError(t, err)

	require.NoError(t, p.AddProperty(PropertySpec{
		Name: "x", Type: carray.Float64, Data: []float64{1.0, 2.0, 3.0},
	}))
	require.NoError(t, p.AddProperty(PropertySpec{
		Name: "y", Type: carray.Float64, Default: 5.0,
	}))

	y, err := p.Floats("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{5.0, 5.0, 5.0}, y)
	checkLengths(t, p)
}

func TestAddPropertyEmptyStoreBackfillsExisting(t *testing.T) {
	p, err := New("fluid", nil)
	require.NoError(t, err)
	require.NoError(t, p.AddProperty(PropertySpec{Name: "rho", Type: carray.Float64, Default: 1000}))
	assert.Equal(t, 0, p.Len())

	// The data-carrying add flips Empty -> Populated and must backfill
	// rho with its own default, not zero.
	require.NoError(t, p.AddProperty(PropertySpec{Name: "x", Type: carray.Float64, Data: []float64{1, 2}}))
	rho, err := p.Floats("rho")
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 1000}, rho)
	checkLengths(t, p)
}

func TestAddPropertyDuplicate(t *testing.T) {
	p := newTestStore(t)
	err := p.AddProperty(PropertySpec{Name: "x", Type: carray.Float64})
	assert.ErrorIs(t, err, ErrDuplicateName)

	// Register-if-absent leaves the existing column alone.
	require.NoError(t, p.EnsureProperty(PropertySpec{Name: "x", Type: carray.Float64}))
	x, err := p.Floats("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, x)
}

func TestAddPropertySizeMismatch(t *testing.T) {
	p := newTestStore(t)
	err := p.AddProperty(PropertySpec{Name: "y", Type: carray.Float64, Data: []float64{1, 2}})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	var sm *SizeMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, 4, sm.Want)
	assert.Equal(t, 2, sm.Got)

	// Failed call must leave the store unchanged.
	assert.False(t, p.Has("y"))
	checkLengths(t, p)
}

func TestRemoveParticles(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.RemoveParticles([]int{1, 3}))

	assert.Equal(t, 2, p.Len())
	x, err := p.Floats("x")
	require.NoError(t, err)

	got := append([]float64(nil), x...)
	sort.Float64s(got)
	// Survivor values are exactly {0, 2}; order is unspecified.
	assert.Equal(t, []float64{0, 2}, got)
	assert.True(t, p.Dirty())
	checkLengths(t, p)
}

func TestRemoveParticlesTooMany(t *testing.T) {
	p := newTestStore(t)
	err := p.RemoveParticles([]int{0, 1, 2, 3, 0})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 4, p.Len())
}

func TestRemoveByTag(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.Set(map[string][]float64{"tag": {0, 1, 1, 0}}))
	p.MarkClean()

	removed, err := p.RemoveByTag(1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, p.Len())
	assert.True(t, p.Dirty())
	checkLengths(t, p)

	// No matches: count zero, dirty untouched.
	p.MarkClean()
	removed, err = p.RemoveByTag(7)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.False(t, p.Dirty())
}

func TestAddThenRemoveByTagRestoresCount(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.Set(map[string][]float64{"tag": {1, 1, 1, 1}}))

	require.NoError(t, p.AddParticles(map[string][]float64{
		"x": {10, 11, 12},
	}))
	assert.Equal(t, 7, p.Len())

	// The added particles carry the default tag; nothing else does.
	removed, err := p.RemoveByTag(DefaultTag)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 4, p.Len())
	checkLengths(t, p)
}

func TestAddParticlesUnknownProperty(t *testing.T) {
	p := newTestStore(t)
	err := p.AddParticles(map[string][]float64{"nope": {1}})
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.Equal(t, 4, p.Len())
}

func TestAddParticlesRaggedBatches(t *testing.T) {
	p := newTestStore(t)
	err := p.AddParticles(map[string][]float64{
		"x": {1, 2},
		"m": {1},
	})
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, 4, p.Len())
	checkLengths(t, p)
}

func TestAddParticlesBackfillsDefaults(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.AddTemporaryArray("scratch"))

	require.NoError(t, p.AddParticles(map[string][]float64{"x": {9, 9}}))
	assert.Equal(t, 6, p.Len())

	m, err := p.Floats("m")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, m)

	scratch, err := p.Floats("scratch")
	require.NoError(t, err)
	assert.Len(t, scratch, 6)
	checkLengths(t, p)
}

func TestExtend(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.Extend(3))
	assert.Equal(t, 7, p.Len())

	m, err := p.Floats("m")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1, 1}, m)

	assert.ErrorIs(t, p.Extend(-1), ErrValidation)
	checkLengths(t, p)
}

func TestSetStrictLength(t *testing.T) {
	p := newTestStore(t)

	require.NoError(t, p.Set(map[string][]float64{"x": {4, 5, 6, 7}}))
	x, _ := p.Floats("x")
	assert.Equal(t, []float64{4, 5, 6, 7}, x)

	err := p.Set(map[string][]float64{"x": {1, 2}})
	assert.ErrorIs(t, err, ErrSizeMismatch)
	x, _ = p.Floats("x")
	assert.Equal(t, []float64{4, 5, 6, 7}, x, "failed Set must not write")

	err = p.Set(map[string][]float64{"ghost": {1, 2, 3, 4}})
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestTemporaryNamespace(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.AddTemporaryArray("accel"))

	// Both namespaces reject the occupied name.
	assert.ErrorIs(t, p.AddTemporaryArray("accel"), ErrDuplicateName)
	assert.ErrorIs(t, p.AddTemporaryArray("x"), ErrDuplicateName)
	assert.ErrorIs(t, p.AddProperty(PropertySpec{Name: "accel", Type: carray.Float64}), ErrDuplicateName)

	a, err := p.Floats("accel")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, a)
}

func TestTemporaryTracksRemoval(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.AddTemporaryArray("accel"))
	require.NoError(t, p.RemoveParticles([]int{0}))

	a, err := p.Floats("accel")
	require.NoError(t, err)
	assert.Len(t, a, 3)
}

func TestClear(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.AddTemporaryArray("accel"))
	p.Clear()

	assert.Equal(t, 0, p.Len())
	assert.Equal(t, []string{"tag"}, p.Properties())
	assert.False(t, p.Has("accel"))
	assert.True(t, p.Dirty())
}

func TestRemovePropertyKeepsTag(t *testing.T) {
	p := newTestStore(t)
	require.NoError(t, p.RemoveProperty("m"))
	assert.False(t, p.Has("m"))

	assert.ErrorIs(t, p.RemoveProperty("tag"), ErrValidation)
	assert.ErrorIs(t, p.RemoveProperty("m"), ErrUnknownProperty)
}

func TestFloatsLiveView(t *testing.T) {
	p := newTestStore(t)
	x, err := p.Floats("x")
	require.NoError(t, err)

	x[0] = 42
	again, _ := p.Floats("x")
	assert.Equal(t, float64(42), again[0], "Floats must return the live column")
}
