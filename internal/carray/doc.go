// Package carray provides typed, resizable, densely packed scalar columns.
//
// A column is a single homogeneously typed array of int64, float32 or
// float64 values. Columns are the storage unit behind
// [particles.ParticleArray]: every particle property (position, mass,
// density, ...) is one column, indexed by particle.
//
//   - [Array]: generic dense column with checked access
//   - [Column]: type-erased view used by the particle store
//
// # Removal semantics
//
// [Array.Remove] compacts by swapping removed slots with elements from the
// tail and shrinking, which is O(k) in the number of removed indices but
// does not preserve the relative order of survivors. Callers that depend
// on ordering must not remove.
package carray
