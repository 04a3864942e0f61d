// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package preedge implements E0 detection and pre-edge/post-edge
// normalization (component D): find_e0 and pre_edge from §4.D
package preedge

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/numx"
	"github.com/Ameyanagi/xraytsubaki/xerr"
	"gonum.org/v1/gonum/stat"
)

// FindE0Options configures FindE0
type FindE0Options struct {
	Threshold float64 // |dµ/dE|_max must exceed Threshold*std(dµ/dE); default 1
}

// FindE0 locates the absorption edge energy as the maximum of |dµ/dE|
// within the interior 90% of the energy range, refined by a parabolic fit
// to the three points around the maximum (§4.D)
func FindE0(e, mu []float64, opts FindE0Options) (float64, error) {
	if err := numx.CheckGrid(e); err != nil {
		return 0, err
	}
	if len(e) != len(mu) {
		return 0, xerr.New(xerr.InvalidInput, "e and mu length mismatch: %d vs %d", len(e), len(mu))
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 1
	}

	smu, err := numx.Smooth(e, mu, numx.SmoothOptions{})
	if err != nil {
		return 0, err
	}
	d1, err := numx.Deriv1(e, smu)
	if err != nil {
		return 0, err
	}

	n := len(e)
	lo := int(0.05 * float64(n))
	hi := n - lo
	if hi-lo < 3 {
		return 0, xerr.New(xerr.InvalidInput, "too few interior points to search for an edge")
	}

	absD := make([]float64, hi-lo)
	for i := lo; i < hi; i++ {
		absD[i-lo] = math.Abs(d1[i])
	}
	maxIdx, maxVal := argmax(absD)
	idx := maxIdx + lo

	sigma := stat.StdDev(absDFull(d1), nil)
	if maxVal < threshold*sigma {
		return 0, xerr.New(xerr.EdgeNotFound, "max|dµ/dE|=%.6g does not exceed threshold*std=%.6g", maxVal, threshold*sigma)
	}

	// parabolic refinement using the three points around idx
	if idx <= 0 || idx >= n-1 {
		return e[idx], nil
	}
	x0, x1, x2 := e[idx-1], e[idx], e[idx+1]
	y0, y1, y2 := absD[clampIdx(idx-1-lo, 0, len(absD)-1)], maxVal, absD[clampIdx(idx+1-lo, 0, len(absD)-1)]
	return parabolicVertex(x0, x1, x2, y0, y1, y2), nil
}

func absDFull(d []float64) []float64 {
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = math.Abs(v)
	}
	return out
}

func argmax(v []float64) (int, float64) {
	bi, bv := 0, v[0]
	for i, x := range v {
		if x > bv {
			bi, bv = i, x
		}
	}
	return bi, bv
}

func clampIdx(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}

// parabolicVertex returns the x of the vertex of the parabola through
// three (possibly unevenly spaced) points
func parabolicVertex(x0, x1, x2, y0, y1, y2 float64) float64 {
	// Lagrange-basis derivative root: fit y=a x^2+b x+c through 3 points,
	// vertex at x = -b/(2a)
	d1 := (y1 - y0) / (x1 - x0)
	d2 := (y2 - y1) / (x2 - x1)
	a := (d2 - d1) / (x2 - x0)
	if a == 0 {
		return x1
	}
	b := d1 - a*(x1+x0)
	return -b / (2 * a)
}

// Config configures PreEdge, following §6's pre_edge config object; zero
// values select the §4.D defaults via WithDefaults
type Config struct {
	E0                   *float64 // nil => find via FindE0
	Pre1, Pre2   float64 // relative to e0; defaults -200,-30
	Norm1, Norm2 float64 // relative to e0; defaults 100, end-of-range
	Nnorm        *int    // 0..3; nil means "auto" (§9 open question iii)
}

// WithDefaults fills unset fields given the energy range [e[0], e[n-1]]
// and the detected e0, per §4.D and the nnorm thresholds of §9(iii).
// Nnorm is resolved separately by resolveNnorm since its zero value (0,
// "constant") is a legitimate explicit choice, unlike the float fields
// above where 0 can safely double as "unset".
func (c Config) WithDefaults(e0, eMax float64) Config {
	if c.Pre1 == 0 {
		c.Pre1 = -200
	}
	if c.Pre2 == 0 {
		c.Pre2 = -30
	}
	if c.Norm1 == 0 {
		c.Norm1 = 100
	}
	if c.Norm2 == 0 {
		c.Norm2 = eMax - e0
	}
	return c
}

// resolveNnorm implements the auto-selection thresholds of §9(iii):
// norm-range width >350 eV => 2, 50-350 => 1, <50 => 0
func resolveNnorm(n *int, norm1, norm2 float64) int {
	if n != nil {
		return *n
	}
	width := norm2 - norm1
	switch {
	case width > 350:
		return 2
	case width >= 50:
		return 1
	default:
		return 0
	}
}

// Result holds every array and scalar produced by PreEdge (§4.D)
type Result struct {
	E0        float64
	EdgeStep  float64
	PreEdge   []float64
	PostEdge  []float64
	Norm      []float64
	Nnorm     int
}

// PreEdge fits the pre-edge line and post-edge polynomial, and returns the
// normalized spectrum (component D, the one-shot function; Builder is
// sugar over this per §9)
func PreEdge(e, mu []float64, cfg Config) (*Result, error) {
	if err := numx.CheckGrid(e); err != nil {
		return nil, err
	}
	if len(e) != len(mu) {
		return nil, xerr.New(xerr.InvalidInput, "e and mu length mismatch: %d vs %d", len(e), len(mu))
	}

	e0 := cfg.E0
	var e0v float64
	if e0 == nil {
		v, err := FindE0(e, mu, FindE0Options{})
		if err != nil {
			return nil, err
		}
		e0v = v
	} else {
		e0v = *e0
	}

	cfg = cfg.WithDefaults(e0v, e[len(e)-1])

	preX, preY := sliceRange(e, mu, e0v+cfg.Pre1, e0v+cfg.Pre2)
	if len(preX) < 2 {
		return nil, xerr.New(xerr.InvalidInput, "pre-edge range [%.6g,%.6g] contains fewer than 2 points", e0v+cfg.Pre1, e0v+cfg.Pre2)
	}
	preCoeffs, err := polyfit(preX, preY, 1)
	if err != nil {
		return nil, err
	}
	preLine := evalPoly(e, preCoeffs)

	resid := make([]float64, len(mu))
	for i := range mu {
		resid[i] = mu[i] - preLine[i]
	}

	nnorm := resolveNnorm(cfg.Nnorm, cfg.Norm1, cfg.Norm2)
	postX, postY := sliceRange(e, resid, e0v+cfg.Norm1, e0v+cfg.Norm2)
	if len(postX) < nnorm+1 {
		return nil, xerr.New(xerr.InvalidInput, "post-edge range [%.6g,%.6g] contains fewer than %d points", e0v+cfg.Norm1, e0v+cfg.Norm2, nnorm+1)
	}
	postCoeffs, err := polyfit(postX, postY, nnorm)
	if err != nil {
		return nil, err
	}
	postLine := evalPoly(e, postCoeffs)

	edgeStep := evalPolyAt(postCoeffs, e0v)
	if edgeStep == 0 {
		return nil, xerr.New(xerr.InvalidInput, "edge step evaluated to zero at e0=%.6g", e0v)
	}

	norm := make([]float64, len(mu))
	for i := range mu {
		norm[i] = (mu[i] - preLine[i]) / edgeStep
	}

	return &Result{
		E0:       e0v,
		EdgeStep: edgeStep,
		PreEdge:  preLine,
		PostEdge: postLine,
		Norm:     norm,
		Nnorm:    nnorm,
	}, nil
}

// sliceRange returns the subset of (x,y) with x in [lo,hi]
func sliceRange(x, y []float64, lo, hi float64) ([]float64, []float64) {
	var xs, ys []float64
	for i, xi := range x {
		if xi >= lo && xi <= hi {
			xs = append(xs, xi)
			ys = append(ys, y[i])
		}
	}
	return xs, ys
}
