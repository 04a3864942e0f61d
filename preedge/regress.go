// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package preedge

import (
	"github.com/Ameyanagi/xraytsubaki/xerr"
	"gonum.org/v1/gonum/mat"
)

// polyfit fits a degree-th order polynomial to (x,y) by ordinary least
// squares via the normal equations, solved by Cholesky; if the normal
// matrix is near-singular, falls back to an SVD-based pseudo-inverse
// (§4.D: "via normal equations with Cholesky; if near-singular, fall
// back to SVD")
func polyfit(x, y []float64, degree int) ([]float64, error) {
	n := len(x)
	p := degree + 1
	if n < p {
		return nil, xerr.New(xerr.InvalidInput, "need at least %d points to fit a degree-%d polynomial, got %d", p, degree, n)
	}

	A := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		pw := 1.0
		for j := 0; j < p; j++ {
			A.Set(i, j, pw)
			pw *= x[i]
		}
	}
	Y := mat.NewDense(n, 1, append([]float64(nil), y...))

	var AtA mat.Dense
	AtA.Mul(A.T(), A)
	var Aty mat.Dense
	Aty.Mul(A.T(), Y)

	symAtA := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			symAtA.SetSym(i, j, AtA.At(i, j))
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(symAtA) {
		var coeffs mat.Dense
		if err := chol.SolveTo(&coeffs, &Aty); err == nil {
			out := make([]float64, p)
			for i := 0; i < p; i++ {
				out[i] = coeffs.At(i, 0)
			}
			return out, nil
		}
	}

	// Cholesky failed (non-PSD / near-singular): fall back to an
	// SVD-based pseudo-inverse of the normal matrix
	var svd mat.SVD
	if !svd.Factorize(&AtA, mat.SVDFull) {
		return nil, xerr.New(xerr.SolverFailed, "both Cholesky and SVD failed for a degree-%d polynomial fit", degree)
	}
	var pinvAtA mat.Dense
	if err := pseudoInverse(&svd, &pinvAtA); err != nil {
		return nil, err
	}
	var coeffs mat.Dense
	coeffs.Mul(&pinvAtA, &Aty)
	out := make([]float64, p)
	for i := 0; i < p; i++ {
		out[i] = coeffs.At(i, 0)
	}
	return out, nil
}

// pseudoInverse builds the Moore-Penrose pseudo-inverse V·Σ⁺·Uᵀ from an
// already-factorized SVD, truncating singular values below 1e-12 of the
// largest (the same threshold a near-singular Cholesky would have failed
// under)
func pseudoInverse(svd *mat.SVD, dst *mat.Dense) error {
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)
	if len(s) == 0 {
		return xerr.New(xerr.SolverFailed, "SVD produced no singular values")
	}
	smax := s[0]
	sInv := mat.NewDense(len(s), len(s), nil)
	for i, sv := range s {
		if sv > 1e-12*smax {
			sInv.Set(i, i, 1/sv)
		}
	}
	var vSinv mat.Dense
	vSinv.Mul(&v, sInv)
	dst.Reset()
	dst.Mul(&vSinv, u.T())
	return nil
}

// evalPoly evaluates a polynomial (lowest-degree-first coefficients) at
// every point of x
func evalPoly(x, coeffs []float64) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = evalPolyAt(coeffs, xi)
	}
	return out
}

// evalPolyAt evaluates a polynomial (lowest-degree-first) at a single
// point via Horner's rule
func evalPolyAt(coeffs []float64, x float64) float64 {
	acc := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = acc*x + coeffs[i]
	}
	return acc
}
