// Package compute executes SPH interaction passes on a pluggable backend.
//
// A pass is an embarrassingly parallel map over destination particles:
// each destination's accumulator is written only by iterations carrying
// that destination index, so backends may split the destination range
// across workers freely as long as the shared property columns are only
// read during the pass.
//
// The [PassSpec] handed to a backend (the declared property read-lists
// plus the coefficient set) is sufficient to reconstruct the computation
// externally, which is the contract an accelerated (GPU) backend would
// build on. The tree ships the CPU backend and an accelerator stub that
// reports unavailable.
package compute
