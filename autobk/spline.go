// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autobk

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// knotSpline is a uniform cubic B-spline basis over Nknot knots
// equispaced on [kMin,kMax], support ≈ 4h where h is the knot spacing
// (§4.E step 2)
type knotSpline struct {
	knots []float64
	h     float64
}

// newKnotSpline builds the knot sequence for the given range and knot
// count
func newKnotSpline(kMin, kMax float64, nKnot int) *knotSpline {
	if nKnot < 2 {
		chk.Panic("knot spline needs at least 2 knots, got %d", nKnot)
	}
	h := (kMax - kMin) / float64(nKnot-1)
	knots := make([]float64, nKnot)
	for j := range knots {
		knots[j] = kMin + float64(j)*h
	}
	return &knotSpline{knots: knots, h: h}
}

// nBasis returns the number of basis functions (== number of knots)
func (s *knotSpline) nBasis() int { return len(s.knots) }

// basis evaluates every B_j(k) at a single k
func (s *knotSpline) basis(k float64) []float64 {
	out := make([]float64, len(s.knots))
	for j, kj := range s.knots {
		out[j] = cubicBSplineKernel((k - kj) / s.h)
	}
	return out
}

// basisDeriv evaluates every B_j'(k) at a single k
func (s *knotSpline) basisDeriv(k float64) []float64 {
	out := make([]float64, len(s.knots))
	for j, kj := range s.knots {
		out[j] = cubicBSplineKernelDeriv((k-kj)/s.h) / s.h
	}
	return out
}

// cubicBSplineKernel is the standard uniform cubic B-spline kernel with
// support [-2,2] and unit knot spacing
func cubicBSplineKernel(u float64) float64 {
	au := math.Abs(u)
	switch {
	case au < 1:
		return (4 - 6*au*au + 3*au*au*au) / 6
	case au < 2:
		d := 2 - au
		return d * d * d / 6
	default:
		return 0
	}
}

// cubicBSplineKernelDeriv is d/du of cubicBSplineKernel
func cubicBSplineKernelDeriv(u float64) float64 {
	au := math.Abs(u)
	sign := 1.0
	if u < 0 {
		sign = -1
	}
	switch {
	case au < 1:
		return sign * (-12*au + 9*au*au) / 6
	case au < 2:
		d := 2 - au
		return sign * (-3 * d * d) / 6
	default:
		return 0
	}
}

// evalSum evaluates Σ_j c_j B_j(k)
func (s *knotSpline) evalSum(k float64, c []float64) float64 {
	b := s.basis(k)
	acc := 0.0
	for j, bj := range b {
		acc += bj * c[j]
	}
	return acc
}
