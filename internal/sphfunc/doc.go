// Package sphfunc implements the pairwise SPH interaction evaluators.
//
// Each evaluator implements one physical law (pressure-gradient force,
// momentum with artificial viscosity, energy rate) over a (source,
// destination) pair of particle stores. For every neighbor pair the outer
// loop supplies, an evaluator reads the columns it declared at setup,
// asks the smoothing kernel for a gradient, and adds its contribution
// into a per-destination accumulator. Accumulation is strictly additive,
// which is what makes the O(N·neighbors) pairwise summation of the outer
// integrator work.
//
// Evaluators are configured once before the time loop. Column existence
// is validated at construction ([ErrConfiguration] on a miss); a pass
// then calls [Function.Bind] to refresh the live column views after any
// structural store mutation.
package sphfunc
