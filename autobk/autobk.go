// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package autobk implements the AUTOBK background-removal engine
// (component E): a knot-based cubic B-spline model of µ0(E) is fit by
// constrained linear least squares to minimize the low-R Fourier content
// of the resulting χ(k), coupling the xft forward transform into the
// normal-equations solve the way preedge/regress.go couples mat.Cholesky
// into a plain polynomial fit.
package autobk

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/numx"
	"github.com/Ameyanagi/xraytsubaki/preedge"
	"github.com/Ameyanagi/xraytsubaki/xerr"
	"github.com/Ameyanagi/xraytsubaki/xwin"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// ktoE is the photoelectron wavenumber conversion constant, k=√(ktoE·(E-e0))
const ktoE = 0.2624682925836908

// Config configures Background, following §6's autobk config object; zero
// values select the §4.E defaults via WithDefaults
type Config struct {
	E0         *float64 // nil => find via preedge.FindE0
	Rbkg       float64  // knot density control, default 1.0
	Kmin, Kmax float64  // default 0, data-range-derived
	Kweight    *int     // FFT k-weight, nil => default 2
	Dk         float64  // uniform working-grid step, default 0.05
	WinDk      float64  // window taper width, default 1
	Window     xwin.Name
	Nknot      int  // 0 => auto via the §4.E knot-count formula
	Nfft       int  // default 2048
	Verbose    bool // trace knot count and solver fallback via gosl/io
}

// WithDefaults fills unset fields per §4.E and §6
func (c Config) WithDefaults(kMaxData float64) Config {
	if c.Rbkg == 0 {
		c.Rbkg = 1
	}
	if c.Kmax == 0 {
		c.Kmax = kMaxData
	}
	if c.Kweight == nil {
		two := 2
		c.Kweight = &two
	}
	if c.Dk == 0 {
		c.Dk = 0.05
	}
	if c.WinDk == 0 {
		c.WinDk = 1
	}
	if c.Nfft == 0 {
		c.Nfft = 2048
	}
	return c
}

// Result holds the AUTOBK output (§4.E)
type Result struct {
	E0    float64
	K     []float64 // uniform working k-grid
	Chi   []float64 // background-subtracted χ(k) on K
	Bkg   []float64 // µ0(E) on the original energy grid
	Nknot int
}

// ktoEnergy maps a photoelectron wavenumber back to energy above e0
func ktoEnergy(e0, k float64) float64 {
	return e0 + k*k/ktoE
}

// etoK maps energy to photoelectron wavenumber, clamped to 0 below e0
func etoK(e0, e float64) float64 {
	if e <= e0 {
		return 0
	}
	return math.Sqrt(ktoE * (e - e0))
}

// Background fits and removes the smooth atomic background from a raw
// (E, µ) spectrum, returning the background-subtracted χ(k) on a uniform
// grid and the background µ0(E) on the original grid (component E)
func Background(e, mu []float64, cfg Config) (*Result, error) {
	if err := numx.CheckGrid(e); err != nil {
		return nil, err
	}
	if len(e) != len(mu) {
		return nil, xerr.New(xerr.InvalidInput, "e and mu length mismatch: %d vs %d", len(e), len(mu))
	}

	pre, err := preedge.PreEdge(e, mu, preedge.Config{E0: cfg.E0})
	if err != nil {
		return nil, err
	}
	e0 := pre.E0
	edgeStep := pre.EdgeStep

	kMaxData := etoK(e0, e[len(e)-1])
	cfg = cfg.WithDefaults(kMaxData)
	if cfg.Kmax > kMaxData {
		cfg.Kmax = kMaxData
	}
	if cfg.Kmax <= cfg.Kmin {
		return nil, xerr.New(xerr.InvalidInput, "kmax (%.6g) must exceed kmin (%.6g)", cfg.Kmax, cfg.Kmin)
	}

	nKnot := cfg.Nknot
	if nKnot == 0 {
		nKnot = int(2*(cfg.Kmax-cfg.Kmin)*cfg.Rbkg/math.Pi) + 2
	}
	if nKnot < 4 {
		return nil, xerr.New(xerr.TooFewKnots, "r_bkg=%.6g and k-range [%.6g,%.6g] give only %d knots, need >=4", cfg.Rbkg, cfg.Kmin, cfg.Kmax, nKnot)
	}
	if cfg.Verbose {
		io.Pf("autobk: e0=%.4g r_bkg=%.4g knots=%d k-range=[%.4g,%.4g]\n", e0, cfg.Rbkg, nKnot, cfg.Kmin, cfg.Kmax)
	}

	nU := int((cfg.Kmax-cfg.Kmin)/cfg.Dk) + 1
	if nU < 2 {
		return nil, xerr.New(xerr.InvalidInput, "working k-grid has fewer than 2 points")
	}
	kU := numx.Uniform(cfg.Kmin, cfg.Dk, nU)
	eAtK := make([]float64, nU)
	for i := range kU {
		eAtK[i] = ktoEnergy(e0, kU[i])
	}

	muU, err := numx.Interp1(e, mu, eAtK, numx.CubicSpline)
	if err != nil {
		return nil, err
	}
	preU, err := numx.Interp1(e, pre.PreEdge, eAtK, numx.CubicSpline)
	if err != nil {
		return nil, err
	}

	d := make([]float64, nU)
	for i := range d {
		d[i] = (muU[i] - preU[i]) / edgeStep
	}

	sp := newKnotSpline(cfg.Kmin, cfg.Kmax, nKnot)

	w, err := xwin.Window(cfg.Window, kU, cfg.Kmin, cfg.Kmax, cfg.WinDk)
	if err != nil {
		return nil, err
	}
	weight := make([]float64, nU)
	for i := range weight {
		weight[i] = w[i] * math.Pow(kU[i], float64(*cfg.Kweight))
	}

	c, err := solveSpline(kU, d, weight, sp, cfg)
	if err != nil {
		return nil, err
	}

	chi := make([]float64, nU)
	for i := range kU {
		chi[i] = d[i] - sp.evalSum(kU[i], c)
	}
	if len(chi) > 0 {
		chi[0] = 0 // §4.E postcondition: χ(k=0)=0
	}

	bkg := make([]float64, len(e))
	for i, ei := range e {
		if ei < e0 {
			bkg[i] = pre.PreEdge[i]
			continue
		}
		k := etoK(e0, ei)
		bkg[i] = pre.PreEdge[i] + edgeStep*sp.evalSum(k, c)
	}

	return &Result{E0: e0, K: kU, Chi: chi, Bkg: bkg, Nknot: nKnot}, nil
}

// solveSpline builds and solves the constrained linear least-squares
// system for the spline coefficients: minimize the low-R FFT content of
// the windowed, k-weighted residual d - B·c, softly constrained so the
// background stays C¹ at e0 (§4.E invariant)
func solveSpline(k, d, weight []float64, sp *knotSpline, cfg Config) ([]float64, error) {
	n := cfg.Nfft
	dk := cfg.Dk
	nBasis := sp.nBasis()

	nRlow := 0
	rStep := math.Pi / (float64(n) * dk)
	for r := 0; float64(r)*rStep < cfg.Rbkg && r < n/2; r++ {
		nRlow++
	}
	if nRlow == 0 {
		return nil, xerr.New(xerr.TooFewKnots, "r_bkg=%.6g is too small to contain any FFT bin", cfg.Rbkg)
	}

	fft := fourier.NewCmplxFFT(n)
	scale := dk / math.Sqrt(math.Pi)

	transform := func(signal []float64) []complex128 {
		buf := make([]complex128, n)
		for i, v := range signal {
			if i >= n {
				break
			}
			buf[i] = complex(v, 0)
		}
		out := make([]complex128, n)
		fft.Coefficients(out, buf)
		low := make([]complex128, nRlow)
		for i := 0; i < nRlow; i++ {
			low[i] = out[i] * complex(scale, 0)
		}
		return low
	}

	wd := make([]float64, len(d))
	for i := range wd {
		wd[i] = weight[i] * d[i]
	}
	y0 := transform(wd)

	a := make([][]complex128, nBasis)
	wBCol := make([]float64, len(k))
	for j := 0; j < nBasis; j++ {
		for i := range k {
			wBCol[i] = weight[i] * cubicBSplineKernel((k[i]-sp.knots[j])/sp.h)
		}
		a[j] = transform(wBCol)
	}

	m := mat.NewSymDense(nBasis, nil)
	rhs := mat.NewDense(nBasis, 1, nil)
	for jRow := 0; jRow < nBasis; jRow++ {
		var rhsVal float64
		for ri := 0; ri < nRlow; ri++ {
			rhsVal += real(a[jRow][ri])*real(y0[ri]) + imag(a[jRow][ri])*imag(y0[ri])
		}
		rhs.Set(jRow, 0, rhsVal)
		for jCol := jRow; jCol < nBasis; jCol++ {
			var mv float64
			for ri := 0; ri < nRlow; ri++ {
				mv += real(a[jRow][ri])*real(a[jCol][ri]) + imag(a[jRow][ri])*imag(a[jCol][ri])
			}
			m.SetSym(jRow, jCol, mv)
		}
	}

	// soft constraint: Σ_j c_j B_j(kmin) ≈ 0 and Σ_j c_j B_j'(kmin) ≈ 0,
	// anchoring the background to a C¹ match with the pre-edge line at e0
	const wConstraint = 1e6
	b0 := sp.basis(cfg.Kmin)
	b0p := sp.basisDeriv(cfg.Kmin)
	for jRow := 0; jRow < nBasis; jRow++ {
		for jCol := jRow; jCol < nBasis; jCol++ {
			add := wConstraint * (b0[jRow]*b0[jCol] + b0p[jRow]*b0p[jCol])
			m.SetSym(jRow, jCol, m.At(jRow, jCol)+add)
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(m) {
		var coeffs mat.Dense
		if err := chol.SolveTo(&coeffs, rhs); err == nil {
			c := denseCol(&coeffs, nBasis)
			if cfg.Verbose {
				io.Pf("autobk: spline solved via cholesky, |c|=%.4g\n", la.VecNorm(c))
			}
			return c, nil
		}
	}

	if cfg.Verbose {
		io.Pfred("autobk: cholesky factorization failed for the %d-knot spline, falling back to SVD\n", nBasis)
	}

	var dense mat.Dense
	dense.CloneFrom(m)
	var svd mat.SVD
	if !svd.Factorize(&dense, mat.SVDFull) {
		return nil, xerr.New(xerr.SolverFailed, "both Cholesky and SVD failed for the %d-knot spline fit", nBasis)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)
	smax := sv[0]
	sInv := mat.NewDense(len(sv), len(sv), nil)
	for i, s := range sv {
		if s > 1e-12*smax {
			sInv.Set(i, i, 1/s)
		}
	}
	var vSinv, pinv, coeffs mat.Dense
	vSinv.Mul(&v, sInv)
	pinv.Mul(&vSinv, u.T())
	coeffs.Mul(&pinv, rhs)
	c := denseCol(&coeffs, nBasis)
	if cfg.Verbose {
		io.Pf("autobk: spline solved via SVD, |c|=%.4g\n", la.VecNorm(c))
	}
	return c, nil
}

func denseCol(m *mat.Dense, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}
