// Package particles implements the columnar particle store.
//
// A [ParticleArray] owns a named set of property columns (position, mass,
// density, ...) that always share one common length N, the particle count,
// plus a disjoint namespace of temporary scratch columns kept at the same
// length by convention. The integer "tag" property always exists and
// classifies each particle's role (real, ghost, ...); filtered removal
// keys off it.
//
// All mutating operations are all-or-nothing: a failed call leaves the
// store exactly as it was. Removal uses the tail-swap compaction of
// [carray.Array.Remove], so particle order is not stable across removals.
//
// # Concurrency
//
// An SPH interaction pass reads live column views in a tight loop.
// Structural mutation during a pass would invalidate those views, so a
// pass brackets itself with [ParticleArray.BeginPass] and
// [ParticleArray.EndPass]; mutating calls block until all passes finish.
package particles
