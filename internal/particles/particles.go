package particles

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/san-kum/sphlab/internal/carray"
)

// TagProperty is the integer property every store carries. Its value
// classifies a particle's role; DefaultTag marks a real (local) particle.
const (
	TagProperty = "tag"
	DefaultTag  = 0
)

// PropertySpec describes one property for Initialize or AddProperty.
// Data, when non-nil, supplies initial per-particle values (converted to
// the column's scalar type).
type PropertySpec struct {
	Name    string
	Type    carray.Type
	Default float64
	Data    []float64
}

// ParticleArray is a named collection of equal-length property columns.
type ParticleArray struct {
	name string
	log  *slog.Logger

	mu       sync.RWMutex
	props    map[string]carray.Column
	temps    map[string]carray.Column
	defaults map[string]float64
	dirty    bool
}

// New creates a store holding only the "tag" property, then registers the
// given specs via Initialize. A nil logger disables diagnostics.
func New(name string, log *slog.Logger, specs ...PropertySpec) (*ParticleArray, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	p := &ParticleArray{
		name: name,
		log:  log.With("store", name),
	}
	p.reset()
	if len(specs) > 0 {
		if err := p.Initialize(specs...); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// reset drops everything and recreates the bare tag column. Callers hold mu.
func (p *ParticleArray) reset() {
	tag, _ := carray.New[int64](0, DefaultTag)
	p.props = map[string]carray.Column{TagProperty: tag}
	p.temps = map[string]carray.Column{}
	p.defaults = map[string]float64{TagProperty: DefaultTag}
}

// Name returns the store's name.
func (p *ParticleArray) Name() string { return p.name }

// Len returns the particle count N, the common length of all property
// columns.
func (p *ParticleArray) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.props[TagProperty].Len()
}

// Dirty reports whether particle membership changed since the last
// MarkClean, signalling spatial indices must rebuild.
func (p *ParticleArray) Dirty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dirty
}

// MarkClean clears the dirty flag, typically after a neighbor index
// rebuild.
func (p *ParticleArray) MarkClean() {
	p.mu.Lock()
	p.dirty = false
	p.mu.Unlock()
}

// BeginPass marks the start of a read-only interaction pass. Structural
// mutation blocks until every open pass has called EndPass.
func (p *ParticleArray) BeginPass() { p.mu.RLock() }

// EndPass closes a pass opened with BeginPass.
func (p *ParticleArray) EndPass() { p.mu.RUnlock() }

// Properties returns the registered property names, sorted.
func (p *ParticleArray) Properties() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.props))
	for n := range p.props {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name exists in either namespace.
func (p *ParticleArray) Has(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, inProps := p.props[name]
	_, inTemps := p.temps[name]
	return inProps || inTemps
}

// Initialize clears the store and registers the given properties. All
// supplied data arrays must share one common length, which becomes the new
// particle count; properties without data are backfilled to that length
// with their defaults. A "tag" spec, if present, is registered first.
func (p *ParticleArray) Initialize(specs ...PropertySpec) error {
	// Validate the whole spec list before clearing anything.
	common := -1
	seen := make(map[string]bool, len(specs))
	for i := range specs {
		s := &specs[i]
		if seen[s.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, s.Name)
		}
		seen[s.Name] = true
		if s.Name == TagProperty && s.Type != carray.Int64 {
			return fmt.Errorf("%w: tag must be int64", ErrValidation)
		}
		if s.Data == nil {
			continue
		}
		if common == -1 {
			common = len(s.Data)
		} else if len(s.Data) != common {
			return &SizeMismatchError{Property: s.Name, Want: common, Got: len(s.Data)}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()

	// Tag first, so the store adopts N from it before anything else.
	ordered := make([]*PropertySpec, 0, len(specs))
	for i := range specs {
		if specs[i].Name == TagProperty {
			ordered = append(ordered, &specs[i])
		}
	}
	for i := range specs {
		if specs[i].Name != TagProperty {
			ordered = append(ordered, &specs[i])
		}
	}

	for _, s := range ordered {
		if err := p.addPropertyLocked(*s, false); err != nil {
			return err
		}
	}
	p.dirty = true
	return nil
}

// AddProperty registers a new property; an existing name in either
// namespace is an error. With non-nil data and N>0, len(data) must equal
// N. With non-nil data and N==0, the store adopts len(data) as its new
// particle count and backfills every existing property with its default.
func (p *ParticleArray) AddProperty(spec PropertySpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addPropertyLocked(spec, false)
}

// EnsureProperty is the register-if-absent variant of AddProperty: an
// existing property of the same name is left untouched and logged, not an
// error.
func (p *ParticleArray) EnsureProperty(spec PropertySpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addPropertyLocked(spec, true)
}

func (p *ParticleArray) addPropertyLocked(spec PropertySpec, ifAbsent bool) error {
	// The builtin tag column may be replaced only while the store is empty
	// (Initialize registers it first); afterwards it is a duplicate like
	// any other name.
	replacingTag := spec.Name == TagProperty && p.props[TagProperty].Len() == 0
	if replacingTag && spec.Type != carray.Int64 {
		return fmt.Errorf("%w: tag must be int64", ErrValidation)
	}
	if _, ok := p.props[spec.Name]; ok && !replacingTag {
		if ifAbsent {
			p.log.Debug("property already registered", "property", spec.Name)
			return nil
		}
		return fmt.Errorf("%w: %q", ErrDuplicateName, spec.Name)
	}
	if _, ok := p.temps[spec.Name]; ok {
		if ifAbsent {
			p.log.Debug("name held by temporary array", "property", spec.Name)
			return nil
		}
		return fmt.Errorf("%w: %q (temporary array)", ErrDuplicateName, spec.Name)
	}

	n := p.props[TagProperty].Len()
	size := n
	if spec.Data != nil {
		if n > 0 && len(spec.Data) != n {
			return &SizeMismatchError{Property: spec.Name, Want: n, Got: len(spec.Data)}
		}
		size = len(spec.Data)
	}

	// Empty -> populated transition: grow every existing column to the new
	// count, each padded with its own recorded default.
	if n == 0 && size > 0 {
		for name, col := range p.props {
			col.Grow(size, p.defaults[name])
		}
		for _, col := range p.temps {
			col.Grow(size, 0)
		}
	}

	col := newColumn(spec.Type, size, spec.Default)
	if spec.Data != nil {
		for i, v := range spec.Data {
			// Index is in range by construction.
			_ = col.SetValueAt(i, v)
		}
	}
	p.props[spec.Name] = col
	p.defaults[spec.Name] = spec.Default
	return nil
}

func newColumn(t carray.Type, n int, fill float64) carray.Column {
	switch t {
	case carray.Int64:
		c, _ := carray.New[int64](n, int64(fill))
		return c
	case carray.Float32:
		c, _ := carray.New[float32](n, float32(fill))
		return c
	default:
		c, _ := carray.New[float64](n, fill)
		return c
	}
}

// RemoveProperty drops a property column. The tag column cannot be
// removed.
func (p *ParticleArray) RemoveProperty(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name == TagProperty {
		return fmt.Errorf("%w: cannot remove %q", ErrValidation, TagProperty)
	}
	if _, ok := p.props[name]; !ok {
		return &UnknownPropertyError{Store: p.name, Property: name}
	}
	delete(p.props, name)
	delete(p.defaults, name)
	return nil
}

// AddTemporaryArray registers a zero-filled float64 scratch column of the
// current particle count. The name must not collide with either namespace.
func (p *ParticleArray) AddTemporaryArray(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.props[name]; ok {
		return fmt.Errorf("%w: %q (property)", ErrDuplicateName, name)
	}
	if _, ok := p.temps[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	col, _ := carray.New[float64](p.props[TagProperty].Len(), 0)
	p.temps[name] = col
	return nil
}

// Get returns the live column registered under name in either namespace.
// The view is invalidated by any structural mutation.
func (p *ParticleArray) Get(name string) (carray.Column, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.getLocked(name)
}

func (p *ParticleArray) getLocked(name string) (carray.Column, error) {
	if col, ok := p.props[name]; ok {
		return col, nil
	}
	if col, ok := p.temps[name]; ok {
		return col, nil
	}
	return nil, &UnknownPropertyError{Store: p.name, Property: name}
}

// Floats returns the live float64 slice behind a property or temporary
// column. It fails for non-float64 columns.
func (p *ParticleArray) Floats(name string) ([]float64, error) {
	col, err := p.Get(name)
	if err != nil {
		return nil, err
	}
	f, ok := col.(*carray.Float64Array)
	if !ok {
		return nil, fmt.Errorf("%w: property %q is %s, not float64", ErrValidation, name, col.Type())
	}
	return f.Data(), nil
}

// Ints returns the live int64 slice behind a property column.
func (p *ParticleArray) Ints(name string) ([]int64, error) {
	col, err := p.Get(name)
	if err != nil {
		return nil, err
	}
	f, ok := col.(*carray.Int64Array)
	if !ok {
		return nil, fmt.Errorf("%w: property %q is %s, not int64", ErrValidation, name, col.Type())
	}
	return f.Data(), nil
}

// Set overwrites column contents in place. Every name must be registered
// and every value slice must match the column's current length; any
// violation fails the whole call before anything is written.
func (p *ParticleArray) Set(values map[string][]float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, vals := range values {
		col, err := p.getLocked(name)
		if err != nil {
			return err
		}
		if len(vals) != col.Len() {
			return &SizeMismatchError{Property: name, Want: col.Len(), Got: len(vals)}
		}
	}
	for name, vals := range values {
		col, _ := p.getLocked(name)
		for i, v := range vals {
			_ = col.SetValueAt(i, v)
		}
	}
	return nil
}

// AddParticles appends particles. Every key must name an existing
// property and all batches must share one length; properties absent from
// the batch (and all temporaries) are padded with their defaults.
func (p *ParticleArray) AddParticles(batches map[string][]float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := -1
	for name, vals := range batches {
		if _, ok := p.props[name]; !ok {
			return &UnknownPropertyError{Store: p.name, Property: name}
		}
		if count == -1 {
			count = len(vals)
		} else if len(vals) != count {
			return &SizeMismatchError{Property: name, Want: count, Got: len(vals)}
		}
	}
	if count <= 0 {
		return nil
	}

	for name, col := range p.props {
		if vals, ok := batches[name]; ok {
			base := col.Len()
			col.Grow(count, 0)
			for i, v := range vals {
				_ = col.SetValueAt(base+i, v)
			}
		} else {
			col.Grow(count, p.defaults[name])
		}
	}
	for _, col := range p.temps {
		col.Grow(count, 0)
	}
	p.dirty = true
	p.log.Debug("particles added", "count", count, "total", p.props[TagProperty].Len())
	return nil
}

// Extend grows every property and temporary column by count slots, each
// property padded with its recorded default.
func (p *ParticleArray) Extend(count int) error {
	if count < 0 {
		return fmt.Errorf("%w: negative extend count %d", ErrValidation, count)
	}
	if count == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, col := range p.props {
		col.Grow(count, p.defaults[name])
	}
	for _, col := range p.temps {
		col.Grow(count, 0)
	}
	p.dirty = true
	return nil
}

// RemoveParticles deletes the particle slots at the given indices from
// every property and temporary column using tail-swap compaction, so
// survivor order is unspecified. More indices than particles is an error.
func (p *ParticleArray) RemoveParticles(indices []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(indices)
}

func (p *ParticleArray) removeLocked(indices []int) error {
	n := p.props[TagProperty].Len()
	if len(indices) > n {
		return fmt.Errorf("%w: removing %d of %d particles", ErrValidation, len(indices), n)
	}
	if len(indices) == 0 {
		return nil
	}

	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	uniq := sorted[:1]
	for _, i := range sorted[1:] {
		if i != uniq[len(uniq)-1] {
			uniq = append(uniq, i)
		}
	}
	sorted = uniq

	for _, col := range p.props {
		col.Remove(sorted)
	}
	for _, col := range p.temps {
		col.Remove(sorted)
	}
	p.dirty = true
	p.log.Debug("particles removed", "count", len(sorted), "remaining", p.props[TagProperty].Len())
	return nil
}

// RemoveByTag deletes every particle whose tag equals tag, in one O(N)
// scan. It returns the number removed; the dirty flag is only set when
// that count is nonzero.
func (p *ParticleArray) RemoveByTag(tag int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tags := p.props[TagProperty].(*carray.Int64Array).Data()
	var matched []int
	for i, t := range tags {
		if t == tag {
			matched = append(matched, i)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	if err := p.removeLocked(matched); err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Clear empties the store: N drops to zero and the property set reduces
// to the builtin "tag".
func (p *ParticleArray) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	p.dirty = true
}
