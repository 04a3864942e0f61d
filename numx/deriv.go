// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package numx

import (
	"github.com/Ameyanagi/xraytsubaki/xerr"
)

// Deriv1 returns the first derivative of y(x) on the native (possibly
// non-uniform) grid via centered differences, with one-sided differences
// at the two boundaries (component A)
func Deriv1(x, y []float64) ([]float64, error) {
	if err := CheckGrid(x); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, xerr.New(xerr.InvalidInput, "x and y length mismatch: %d vs %d", len(x), len(y))
	}
	n := len(x)
	d := make([]float64, n)
	d[0] = (y[1] - y[0]) / (x[1] - x[0])
	d[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])
	for i := 1; i < n-1; i++ {
		d[i] = (y[i+1] - y[i-1]) / (x[i+1] - x[i-1])
	}
	return d, nil
}

// Deriv2 returns the second derivative of y(x) on the native grid via
// centered second differences, one-sided at the boundaries
func Deriv2(x, y []float64) ([]float64, error) {
	if err := CheckGrid(x); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, xerr.New(xerr.InvalidInput, "x and y length mismatch: %d vs %d", len(x), len(y))
	}
	n := len(x)
	if n < 3 {
		return nil, xerr.New(xerr.InvalidInput, "second derivative needs at least 3 points")
	}
	d := make([]float64, n)
	d[0] = secondOneSided(x[0], x[1], x[2], y[0], y[1], y[2])
	d[n-1] = secondOneSided(x[n-1], x[n-2], x[n-3], y[n-1], y[n-2], y[n-3])
	for i := 1; i < n-1; i++ {
		h1 := x[i] - x[i-1]
		h2 := x[i+1] - x[i]
		d[i] = 2 * (h1*y[i+1] - (h1+h2)*y[i] + h2*y[i-1]) / (h1 * h2 * (h1 + h2))
	}
	return d, nil
}

// secondOneSided fits the unique quadratic through three points and
// returns its (constant) second derivative, used at grid boundaries
func secondOneSided(x0, x1, x2, y0, y1, y2 float64) float64 {
	h1 := x1 - x0
	h2 := x2 - x0
	// Lagrange basis second derivative for a 3-point quadratic fit
	denom := h1 * h2 * (h2 - h1)
	if denom == 0 {
		return 0
	}
	return 2 * (h1*y2 - h2*y1 + (h2-h1)*y0) / denom
}

// SavGolOptions configures SavitzkyGolay
type SavGolOptions struct {
	Window int // odd number of points in the fitting window
	Order  int // polynomial order, must be < Window
	Deriv  int // 0: smoothed value, 1: first derivative, 2: second derivative
}

// SavitzkyGolay fits a degree-Order polynomial in a sliding window of the
// given (odd) size and returns either the smoothed value or one of its
// derivatives, evaluated on a UNIFORM grid (the classical Savitzky-Golay
// convolution); at the boundaries the last full window is reused with its
// one-sided coefficients carried over
func SavitzkyGolay(x, y []float64, opts SavGolOptions) ([]float64, error) {
	if err := CheckGrid(x); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, xerr.New(xerr.InvalidInput, "x and y length mismatch: %d vs %d", len(x), len(y))
	}
	if opts.Window < 3 || opts.Window%2 == 0 {
		return nil, xerr.New(xerr.InvalidInput, "window must be odd and >= 3, got %d", opts.Window)
	}
	if opts.Order >= opts.Window {
		return nil, xerr.New(xerr.InvalidInput, "polynomial order %d must be < window %d", opts.Order, opts.Window)
	}
	if !IsUniform(x, 1e-6) {
		return nil, xerr.New(xerr.InvalidInput, "Savitzky-Golay requires a uniform grid")
	}
	dx := x[1] - x[0]
	n := len(y)
	half := opts.Window / 2

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + half
		// clamp the window to stay inside [0,n) at the boundaries (one-sided)
		if lo < 0 {
			hi -= lo
			lo = 0
		}
		if hi >= n {
			lo -= hi - (n - 1)
			hi = n - 1
		}
		if lo < 0 {
			lo = 0
		}
		coeffs, err := savGolCoeffs(lo, hi, i, opts.Order, opts.Deriv, dx)
		if err != nil {
			return nil, err
		}
		acc := 0.0
		for k := lo; k <= hi; k++ {
			acc += coeffs[k-lo] * y[k]
		}
		out[i] = acc
	}
	return out, nil
}

// savGolCoeffs solves the normal equations for the least-squares
// polynomial fit over window [lo,hi] centered conceptually at i, and
// returns the linear combination coefficients producing the requested
// derivative order at position i (in grid-step units, scaled by dx)
func savGolCoeffs(lo, hi, i, order, deriv int, dx float64) ([]float64, error) {
	m := hi - lo + 1
	p := order + 1
	// design matrix A[k][j] = (k-i)^j
	A := make([][]float64, m)
	for k := 0; k < m; k++ {
		A[k] = make([]float64, p)
		t := float64(lo + k - i)
		pw := 1.0
		for j := 0; j < p; j++ {
			A[k][j] = pw
			pw *= t
		}
	}
	// normal equations AtA c = At e_deriv, solved once per output point via
	// Cholesky-free Gaussian elimination (small p x p system, p <= ~7)
	AtA := make([][]float64, p)
	for r := 0; r < p; r++ {
		AtA[r] = make([]float64, p)
		for c := 0; c < p; c++ {
			s := 0.0
			for k := 0; k < m; k++ {
				s += A[k][r] * A[k][c]
			}
			AtA[r][c] = s
		}
	}
	// AtA^{-1} At is the "hat" matrix row we need; compute AtA^{-1} via
	// Gauss-Jordan then coeffs[k] = sum_j AtAinv[deriv][j] * A[k][j] * factorial(deriv)/dx^deriv
	inv, err := invertSmall(AtA)
	if err != nil {
		return nil, err
	}
	if deriv >= p {
		return nil, xerr.New(xerr.InvalidInput, "derivative order %d exceeds polynomial order %d", deriv, order)
	}
	fact := 1.0
	for d := 2; d <= deriv; d++ {
		fact *= float64(d)
	}
	scale := fact
	for d := 0; d < deriv; d++ {
		scale /= dx
	}
	coeffs := make([]float64, m)
	for k := 0; k < m; k++ {
		s := 0.0
		for j := 0; j < p; j++ {
			s += inv[deriv][j] * A[k][j]
		}
		coeffs[k] = s * scale
	}
	return coeffs, nil
}

// invertSmall inverts a small square matrix via Gauss-Jordan elimination
func invertSmall(a [][]float64) ([][]float64, error) {
	n := len(a)
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], a[i])
		aug[i][n+i] = 1
	}
	for col := 0; col < n; col++ {
		piv := col
		best := aug[col][col]
		for r := col + 1; r < n; r++ {
			if abs(aug[r][col]) > abs(best) {
				piv = r
				best = aug[r][col]
			}
		}
		if abs(best) < 1e-300 {
			return nil, xerr.New(xerr.SolverFailed, "singular matrix in Savitzky-Golay coefficient solve")
		}
		aug[col], aug[piv] = aug[piv], aug[col]
		pivot := aug[col][col]
		for c := 0; c < 2*n; c++ {
			aug[col][c] /= pivot
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			for c := 0; c < 2*n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}
	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = append([]float64(nil), aug[i][n:]...)
	}
	return inv, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
