// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package numx implements the numerical primitives shared by every stage
// of the XAS pipeline: grid checks, smoothing, interpolation and
// derivatives (component A)
package numx

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/xerr"
	"github.com/cpmech/gosl/utl"
)

// CheckGrid validates that x is strictly increasing, finite, and has at
// least two points; every primitive in this package calls it first
func CheckGrid(x []float64) error {
	if len(x) < 2 {
		return xerr.New(xerr.InvalidInput, "grid must have at least 2 points, got %d", len(x))
	}
	for i, xi := range x {
		if math.IsNaN(xi) || math.IsInf(xi, 0) {
			return xerr.New(xerr.InvalidInput, "grid value at index %d is NaN/Inf", i)
		}
		if i > 0 && xi <= x[i-1] {
			return xerr.New(xerr.InvalidInput, "grid is not strictly increasing at index %d (%.6g <= %.6g)", i, xi, x[i-1])
		}
	}
	return nil
}

// CheckFinite validates that y contains no NaN/Inf values
func CheckFinite(y []float64) error {
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return xerr.New(xerr.InvalidInput, "value at index %d is NaN/Inf", i)
		}
	}
	return nil
}

// MedianDelta returns the median spacing of a strictly increasing grid;
// used as the default smoothing scale in Smooth
func MedianDelta(x []float64) float64 {
	n := len(x) - 1
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = x[i+1] - x[i]
	}
	return median(d)
}

// median computes the median of a slice without mutating the caller's copy
func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	// simple insertion sort; these slices are always small (grid spacings)
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
	n := len(s)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}

// Uniform builds a uniform grid of n points starting at x0 with step dx,
// via gosl/utl.LinSpace(start, stop, n)
func Uniform(x0, dx float64, n int) []float64 {
	if n < 2 {
		return utl.LinSpace(x0, x0, n)
	}
	return utl.LinSpace(x0, x0+dx*float64(n-1), n)
}

// IsUniform reports whether x is equispaced to within a relative tolerance
func IsUniform(x []float64, tol float64) bool {
	if len(x) < 2 {
		return true
	}
	dx := x[1] - x[0]
	for i := 2; i < len(x); i++ {
		if math.Abs((x[i]-x[i-1])-dx) > tol*math.Abs(dx) {
			return false
		}
	}
	return true
}
