// Package kernels provides SPH smoothing kernels.
//
// A [Kernel] maps particle separation to an interpolation weight and its
// spatial gradient. Implementations are pure and stateless: the smoothing
// length h arrives with every call, which lets the interaction layer
// evaluate the same kernel at per-particle smoothing lengths when
// symmetrizing gradients.
package kernels

import (
	"math"

	"github.com/san-kum/sphlab/internal/vec"
)

// Kernel is the smoothing-kernel contract consumed by the interaction
// layer.
type Kernel interface {
	// Value returns W(r, h) for particle separation r.
	Value(r, h float64) float64
	// Gradient returns the gradient of W evaluated at posA with respect to
	// posA, for the pair (posA, posB).
	Gradient(posA, posB vec.Vec3, h float64) vec.Vec3
	// Radius returns the support radius in units of h.
	Radius() float64
}

// gradFromRadial converts a radial derivative dW/dr into a gradient vector
// along a-b. Coincident points get a zero gradient.
func gradFromRadial(a, b vec.Vec3, dwdr float64) vec.Vec3 {
	rab := a.Sub(b)
	r := rab.Norm()
	if r < 1e-12 {
		return vec.Vec3{}
	}
	return rab.Scale(dwdr / r)
}

// CubicSpline is the M4 cubic spline kernel with support radius 2h,
// normalized for three dimensions.
type CubicSpline struct{}

func (CubicSpline) Radius() float64 { return 2.0 }

func (CubicSpline) Value(r, h float64) float64 {
	sigma := 1.0 / (math.Pi * h * h * h)
	q := r / h
	switch {
	case q <= 1.0:
		return sigma * (1.0 - 1.5*q*q + 0.75*q*q*q)
	case q <= 2.0:
		d := 2.0 - q
		return sigma * 0.25 * d * d * d
	}
	return 0.0
}

func (k CubicSpline) Gradient(posA, posB vec.Vec3, h float64) vec.Vec3 {
	sigma := 1.0 / (math.Pi * h * h * h)
	r := posA.Sub(posB).Norm()
	q := r / h

	var dwdr float64
	switch {
	case q <= 1.0:
		dwdr = sigma / h * (-3.0*q + 2.25*q*q)
	case q <= 2.0:
		d := 2.0 - q
		dwdr = -sigma / h * 0.75 * d * d
	default:
		return vec.Vec3{}
	}
	return gradFromRadial(posA, posB, dwdr)
}

// Gaussian is the truncated Gaussian kernel, cut off at 3h.
type Gaussian struct{}

func (Gaussian) Radius() float64 { return 3.0 }

func (Gaussian) Value(r, h float64) float64 {
	q := r / h
	if q > 3.0 {
		return 0.0
	}
	sigma := 1.0 / (math.Pow(math.Pi, 1.5) * h * h * h)
	return sigma * math.Exp(-q*q)
}

func (k Gaussian) Gradient(posA, posB vec.Vec3, h float64) vec.Vec3 {
	r := posA.Sub(posB).Norm()
	q := r / h
	if q > 3.0 {
		return vec.Vec3{}
	}
	dwdr := -2.0 * q / h * k.Value(r, h)
	return gradFromRadial(posA, posB, dwdr)
}
