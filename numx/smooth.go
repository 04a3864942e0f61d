// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package numx

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/xerr"
	"gonum.org/v1/gonum/floats"
)

// SmoothOptions configures Smooth; zero values mean "use the default"
type SmoothOptions struct {
	Sigma      float64 // Gaussian kernel width in x-units; default 3*median(Δx)
	WindowSize int     // number of kernel taps on each side of center; default derived from Sigma
}

// Smooth returns y convolved with a Gaussian kernel on grid x, using
// reflective padding at the boundaries so the output length equals the
// input length (component A)
func Smooth(x, y []float64, opts SmoothOptions) ([]float64, error) {
	if err := CheckGrid(x); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, xerr.New(xerr.InvalidInput, "x and y length mismatch: %d vs %d", len(x), len(y))
	}
	if err := CheckFinite(y); err != nil {
		return nil, err
	}

	sigma := opts.Sigma
	if sigma <= 0 {
		sigma = 3 * MedianDelta(x)
	}
	dx := MedianDelta(x)
	if dx <= 0 {
		return nil, xerr.New(xerr.InvalidInput, "median grid spacing is non-positive")
	}

	half := opts.WindowSize
	if half <= 0 {
		half = int(math.Ceil(4 * sigma / dx))
		if half < 1 {
			half = 1
		}
	}

	// build normalized Gaussian kernel on the native (possibly non-uniform)
	// grid, centered on each output point, re-weighted per point since the
	// grid spacing may vary locally
	n := len(y)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + half
		weights := make([]float64, 0, hi-lo+1)
		values := make([]float64, 0, hi-lo+1)
		for j := lo; j <= hi; j++ {
			xj := reflectIndex(j, n)
			d := x[i] - reflectedX(x, j)
			w := math.Exp(-0.5 * (d / sigma) * (d / sigma))
			// point reflection about the endpoint, matching reflectedX, so a
			// linear input is extended linearly past the boundary
			v := y[xj]
			if j < 0 {
				v = 2*y[0] - y[xj]
			} else if j >= n {
				v = 2*y[n-1] - y[xj]
			}
			weights = append(weights, w)
			values = append(values, v)
		}
		wsum := floats.Sum(weights)
		if wsum == 0 {
			out[i] = y[i]
			continue
		}
		acc := 0.0
		for k, w := range weights {
			acc += w * values[k]
		}
		out[i] = acc / wsum
	}
	return out, nil
}

// reflectIndex maps an out-of-range index j (from a centered window) back
// into [0,n) by reflection at the boundaries, the same convention used for
// reflectedX below
func reflectIndex(j, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	j = ((j % period) + period) % period
	if j >= n {
		j = period - j
	}
	return j
}

// reflectedX returns the x-coordinate corresponding to a reflected index j,
// extending the grid symmetrically about its endpoints so a Gaussian
// kernel near a boundary still integrates against a physically sensible
// abscissa rather than wrapping in index-space only
func reflectedX(x []float64, j int) float64 {
	n := len(x)
	i := reflectIndex(j, n)
	if j < 0 {
		return 2*x[0] - x[i]
	}
	if j >= n {
		return 2*x[n-1] - x[i]
	}
	return x[i]
}
