// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package numx

import (
	"sort"

	"github.com/Ameyanagi/xraytsubaki/xerr"
)

// InterpMethod selects the interpolation kernel used by Interp1
type InterpMethod int

const (
	Linear InterpMethod = iota
	CubicSpline
)

// SplineBC selects the boundary condition used by the cubic-spline method
type SplineBC int

const (
	Natural SplineBC = iota // zero second derivative at both ends (default)
	Clamped                 // caller-supplied first derivatives at both ends
)

// CubicSplineOptions configures the Clamped boundary condition; ignored
// for Natural
type CubicSplineOptions struct {
	BC        SplineBC
	DerivLo   float64 // y'(x[0]), used only when BC == Clamped
	DerivHi   float64 // y'(x[n-1]), used only when BC == Clamped
}

// Interp1 evaluates the interpolant of (xSrc,ySrc) at each point of xDst.
// Extrapolation (xDst outside [xSrc[0], xSrc[n-1]]) returns the nearest
// endpoint value, per §4.A
func Interp1(xSrc, ySrc, xDst []float64, method InterpMethod) ([]float64, error) {
	return Interp1BC(xSrc, ySrc, xDst, method, CubicSplineOptions{BC: Natural})
}

// Interp1BC is Interp1 with explicit cubic-spline boundary conditions
func Interp1BC(xSrc, ySrc, xDst []float64, method InterpMethod, opts CubicSplineOptions) ([]float64, error) {
	if err := CheckGrid(xSrc); err != nil {
		return nil, err
	}
	if len(xSrc) != len(ySrc) {
		return nil, xerr.New(xerr.InvalidInput, "xSrc and ySrc length mismatch: %d vs %d", len(xSrc), len(ySrc))
	}
	if err := CheckFinite(ySrc); err != nil {
		return nil, err
	}
	if err := CheckFinite(xDst); err != nil {
		return nil, err
	}

	switch method {
	case Linear:
		return interpLinear(xSrc, ySrc, xDst), nil
	case CubicSpline:
		sp, err := newCubicSpline(xSrc, ySrc, opts)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(xDst))
		for i, xd := range xDst {
			out[i] = sp.eval(xd)
		}
		return out, nil
	default:
		return nil, xerr.New(xerr.InvalidInput, "unknown interpolation method %d", method)
	}
}

func interpLinear(xSrc, ySrc, xDst []float64) []float64 {
	n := len(xSrc)
	out := make([]float64, len(xDst))
	for i, xd := range xDst {
		if xd <= xSrc[0] {
			out[i] = ySrc[0]
			continue
		}
		if xd >= xSrc[n-1] {
			out[i] = ySrc[n-1]
			continue
		}
		j := sort.SearchFloat64s(xSrc, xd)
		if xSrc[j] == xd {
			out[i] = ySrc[j]
			continue
		}
		// j is the first index with xSrc[j] > xd, so the bracket is (j-1,j)
		lo, hi := j-1, j
		t := (xd - xSrc[lo]) / (xSrc[hi] - xSrc[lo])
		out[i] = ySrc[lo] + t*(ySrc[hi]-ySrc[lo])
	}
	return out
}

// cubicSpline holds the per-interval coefficients of a natural/clamped
// cubic spline, evaluated with Horner's rule in eval
type cubicSpline struct {
	x          []float64
	a, b, c, d []float64 // y = a + b*dx + c*dx^2 + d*dx^3, dx = x - x[i]
}

// newCubicSpline solves the standard tridiagonal second-derivative system
// for a natural or clamped cubic spline (component A)
func newCubicSpline(x, y []float64, opts CubicSplineOptions) (*cubicSpline, error) {
	n := len(x)
	if n < 2 {
		return nil, xerr.New(xerr.InvalidInput, "cubic spline needs at least 2 points")
	}
	if n == 2 {
		// degenerate: a straight line
		slope := (y[1] - y[0]) / (x[1] - x[0])
		return &cubicSpline{
			x: append([]float64(nil), x...),
			a: []float64{y[0], y[1]},
			b: []float64{slope, slope},
			c: []float64{0, 0},
			d: []float64{0, 0},
		}, nil
	}

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
	}

	// tridiagonal system for the second derivatives m (Thomas algorithm)
	alpha := make([]float64, n)
	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)

	switch opts.BC {
	case Clamped:
		alpha[0] = 3*(y[1]-y[0])/h[0] - 3*opts.DerivLo
		alpha[n-1] = 3*opts.DerivHi - 3*(y[n-1]-y[n-2])/h[n-2]
		l[0] = 2 * h[0]
		mu[0] = 0.5
		z[0] = alpha[0] / l[0]
	default: // Natural
		l[0] = 1
		mu[0] = 0
		z[0] = 0
	}

	for i := 1; i < n-1; i++ {
		alpha[i] = 3/h[i]*(y[i+1]-y[i]) - 3/h[i-1]*(y[i]-y[i-1])
		l[i] = 2*(x[i+1]-x[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}

	c := make([]float64, n)
	switch opts.BC {
	case Clamped:
		l[n-1] = h[n-2] * (2 - mu[n-2])
		z[n-1] = (alpha[n-1] - h[n-2]*z[n-2]) / l[n-1]
		c[n-1] = z[n-1]
	default:
		l[n-1] = 1
		z[n-1] = 0
		c[n-1] = 0
	}

	b := make([]float64, n-1)
	d := make([]float64, n-1)
	for j := n - 2; j >= 0; j-- {
		c[j] = z[j] - mu[j]*c[j+1]
		b[j] = (y[j+1]-y[j])/h[j] - h[j]*(c[j+1]+2*c[j])/3
		d[j] = (c[j+1] - c[j]) / (3 * h[j])
	}

	return &cubicSpline{
		x: append([]float64(nil), x...),
		a: append([]float64(nil), y[:n-1]...),
		b: b,
		c: c[:n-1],
		d: d,
	}, nil
}

func (sp *cubicSpline) eval(xd float64) float64 {
	n := len(sp.x)
	if xd <= sp.x[0] {
		return sp.a[0]
	}
	if xd >= sp.x[n-1] {
		dx := sp.x[n-1] - sp.x[n-2]
		return sp.a[n-2] + dx*(sp.b[n-2]+dx*(sp.c[n-2]+dx*sp.d[n-2]))
	}
	i := sort.SearchFloat64s(sp.x, xd) - 1
	if i < 0 {
		i = 0
	}
	if i > len(sp.a)-1 {
		i = len(sp.a) - 1
	}
	dx := xd - sp.x[i]
	return sp.a[i] + dx*(sp.b[i]+dx*(sp.c[i]+dx*sp.d[i]))
}
