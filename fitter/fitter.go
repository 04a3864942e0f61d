// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fitter implements the bounded Levenberg-Marquardt EXAFS fitting
// engine (component J): a single residual function drives both the
// single-dataset and shared-parameter multi-dataset cases, since
// dataset.FittingDataset and dataset.MultiDataset expose the same
// Residual(*param.ParameterSet) shape.
package fitter

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/param"
	"github.com/Ameyanagi/xraytsubaki/xerr"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ResidualFunc computes the current residual vector from a parameter
// set's values; both dataset.FittingDataset.Residual and
// dataset.MultiDataset.Residual satisfy this shape
type ResidualFunc func(params *param.ParameterSet) ([]float64, error)

// State is the fitter's lifecycle, per §4.J's state machine
type State int

const (
	Initialized State = iota
	Running
	Converged
	MaxIter
	Diverged
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case Running:
		return "Running"
	case Converged:
		return "Converged"
	case MaxIter:
		return "MaxIter"
	case Diverged:
		return "Diverged"
	default:
		return "Unknown"
	}
}

// Config configures the LM loop, per §4.J
type Config struct {
	Ftol       float64
	Xtol       float64
	MaxIter    int
	LambdaInit float64
	LambdaMax  float64
	Verbose    bool // trace iter/lambda/chi-square/step-norm via gosl/io
}

// WithDefaults fills unset fields per §4.J
func (c Config) WithDefaults() Config {
	if c.Ftol == 0 {
		c.Ftol = 1e-8
	}
	if c.Xtol == 0 {
		c.Xtol = 1e-8
	}
	if c.MaxIter == 0 {
		c.MaxIter = 200
	}
	if c.LambdaInit == 0 {
		c.LambdaInit = 1e-3
	}
	if c.LambdaMax == 0 {
		c.LambdaMax = 1e10
	}
	return c
}

// Statistics holds the post-convergence diagnostics of §4.J
type Statistics struct {
	N, NVary               int
	ChiSquare, RedChiSquare float64
	RFactor                float64
	AIC, BIC               float64
	StdErr                 map[string]float64 // empty if no Jacobian was computed, N <= NVary, or the SVD of JtJ failed
}

// Fitter drives a bounded Levenberg-Marquardt fit of Params against
// Residual (component J)
type Fitter struct {
	Params   *param.ParameterSet
	Residual ResidualFunc
	// RFactorFunc, if set, is called once after the fit settles to fill
	// Statistics.RFactor (dataset.FittingDataset.RFactor and
	// dataset.MultiDataset.RFactor satisfy this shape); left nil leaves
	// Stats.RFactor at zero.
	RFactorFunc func(params *param.ParameterSet) (float64, error)
	Cfg         Config
	State       State
	Stats       Statistics
	Iters       int
}

// New returns an Initialized Fitter
func New(params *param.ParameterSet, residual ResidualFunc, cfg Config) *Fitter {
	return &Fitter{Params: params, Residual: residual, Cfg: cfg.WithDefaults(), State: Initialized}
}

// bound holds the finite-ness of a free parameter's bounds, cached once
// per Run so the transform doesn't re-inspect the ParameterSet every
// evaluation
type bound struct {
	name           string
	lower, upper   float64
	loFin, hiFin   bool
}

func (b bound) toInternal(v float64) float64 {
	switch {
	case b.loFin && b.hiFin:
		x := 2*(v-b.lower)/(b.upper-b.lower) - 1
		x = clampUnit(x)
		return math.Asin(x)
	case b.loFin:
		return v - b.lower
	default:
		return v
	}
}

func (b bound) toExternal(u float64) float64 {
	switch {
	case b.loFin && b.hiFin:
		return b.lower + (b.upper-b.lower)/2*(1+math.Sin(u))
	case b.loFin:
		return b.lower + u
	default:
		return u
	}
}

// dvdu is the chain-rule factor dv/du at internal coordinate u
func (b bound) dvdu(u float64) float64 {
	switch {
	case b.loFin && b.hiFin:
		return (b.upper - b.lower) / 2 * math.Cos(u)
	default:
		return 1
	}
}

func clampUnit(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

// Run executes the LM loop to convergence, the iteration cap, or
// divergence (§4.J)
func (f *Fitter) Run() error {
	f.State = Running
	names := f.Params.FreeNames()
	nVary := len(names)
	if nVary == 0 {
		return xerr.New(xerr.InvalidInput, "no free parameters to fit")
	}

	bounds := make([]bound, nVary)
	u := make([]float64, nVary)
	for i, name := range names {
		p, err := f.Params.Get(name)
		if err != nil {
			return err
		}
		b := bound{name: name, lower: p.Lower, upper: p.Upper, loFin: !math.IsInf(p.Lower, 0), hiFin: !math.IsInf(p.Upper, 0)}
		bounds[i] = b
		u[i] = b.toInternal(p.Value)
	}

	eval := func(uv []float64) ([]float64, error) {
		ext := make([]float64, nVary)
		for i, b := range bounds {
			ext[i] = b.toExternal(uv[i])
		}
		if err := f.Params.SetFreeVector(ext); err != nil {
			return nil, err
		}
		if err := f.Params.ApplyConstraints(); err != nil {
			return nil, err
		}
		return f.Residual(f.Params)
	}

	r, err := eval(u)
	if err != nil {
		return err
	}
	chi2 := sumSquares(r)
	lambda := f.Cfg.LambdaInit

	var lastJ *mat.Dense
	for iter := 0; iter < f.Cfg.MaxIter; iter++ {
		f.Iters = iter + 1
		J, err := jacobian(eval, u, r)
		if err != nil {
			return err
		}
		lastJ = J

		var jtj mat.Dense
		jtj.Mul(J.T(), J)
		var jtr mat.Dense
		rMat := mat.NewDense(len(r), 1, append([]float64(nil), r...))
		jtr.Mul(J.T(), rMat)

		nU := len(u)
		damped := mat.NewSymDense(nU, nil)
		for i := 0; i < nU; i++ {
			for j := i; j < nU; j++ {
				v := jtj.At(i, j)
				if i == j {
					v += lambda * jtj.At(i, i)
				}
				damped.SetSym(i, j, v)
			}
		}
		negJtr := mat.NewDense(nU, 1, nil)
		for i := 0; i < nU; i++ {
			negJtr.Set(i, 0, -jtr.At(i, 0))
		}

		du, err := solveSym(damped, negJtr, nU)
		if err != nil {
			lambda *= 10
			if lambda > f.Cfg.LambdaMax {
				f.State = Diverged
				f.finalize(u, bounds, r, lastJ)
				return xerr.New(xerr.NonConvergent, "LM diverged: normal-equations matrix unsolvable even at lambda=%.3g", lambda)
			}
			continue
		}

		uNew := make([]float64, nU)
		maxDu := 0.0
		for i := range u {
			uNew[i] = u[i] + du[i]
			if math.Abs(du[i]) > maxDu {
				maxDu = math.Abs(du[i])
			}
		}

		rNew, err := eval(uNew)
		if err != nil {
			return err
		}
		chi2New := sumSquares(rNew)

		if f.Cfg.Verbose {
			io.Pf("fitter: iter=%d lambda=%.3e chi2=%.6g |du|=%.3e\n", iter, lambda, chi2New, la.VecNorm(du))
		}

		if chi2New < chi2 {
			relReduction := (chi2 - chi2New) / math.Max(chi2, 1e-300)
			u, r, chi2 = uNew, rNew, chi2New
			lambda /= 10
			if relReduction < f.Cfg.Ftol || maxDu < f.Cfg.Xtol {
				f.State = Converged
				f.finalize(u, bounds, r, lastJ)
				return nil
			}
		} else {
			lambda *= 10
			if lambda > f.Cfg.LambdaMax {
				f.State = Diverged
				f.finalize(u, bounds, r, lastJ)
				return xerr.New(xerr.NonConvergent, "LM diverged: lambda exceeded %.3g without improving chi-square", f.Cfg.LambdaMax)
			}
		}
	}

	f.State = MaxIter
	f.finalize(u, bounds, r, lastJ)
	return xerr.New(xerr.NonConvergent, "LM hit the %d-iteration cap without converging", f.Cfg.MaxIter)
}

// finalize writes the best-so-far parameters and statistics; called on
// every terminal transition so the fitter's partial-results contract
// (§7) holds even on a non-fatal failure
func (f *Fitter) finalize(u []float64, bounds []bound, r []float64, J *mat.Dense) {
	ext := make([]float64, len(u))
	for i, b := range bounds {
		ext[i] = b.toExternal(u[i])
	}
	_ = f.Params.SetFreeVector(ext)
	_ = f.Params.ApplyConstraints()

	n := len(r)
	nVary := len(u)
	chi2 := sumSquares(r)
	stats := Statistics{N: n, NVary: nVary, ChiSquare: chi2}
	if n > nVary {
		stats.RedChiSquare = chi2 / float64(n-nVary)
	}
	if chi2 > 0 && n > 0 {
		stats.AIC = float64(n)*math.Log(chi2/float64(n)) + 2*float64(nVary)
		stats.BIC = float64(n)*math.Log(chi2/float64(n)) + float64(nVary)*math.Log(float64(n))
	}

	stats.StdErr = make(map[string]float64)
	if J != nil && n > nVary {
		var jtj mat.Dense
		jtj.Mul(J.T(), J)
		cov, err := pseudoInverseDense(&jtj)
		if err == nil {
			for i, b := range bounds {
				variance := cov.At(i, i) * stats.RedChiSquare
				if variance < 0 {
					variance = 0
				}
				dvdu := b.dvdu(u[i])
				stats.StdErr[b.name] = math.Sqrt(variance) * math.Abs(dvdu)
			}
		}
	}
	if f.RFactorFunc != nil {
		if rf, err := f.RFactorFunc(f.Params); err == nil {
			stats.RFactor = rf
		}
	}
	f.Stats = stats
}

// jacobian computes the forward finite-difference Jacobian of eval at u
// w.r.t. internal coordinates (§4.J)
func jacobian(eval func([]float64) ([]float64, error), u, r0 []float64) (*mat.Dense, error) {
	n := len(r0)
	m := len(u)
	J := mat.NewDense(n, m, nil)
	for j := 0; j < m; j++ {
		step := math.Max(1e-7, 1e-3*math.Abs(u[j]))
		up := append([]float64(nil), u...)
		up[j] += step
		rp, err := eval(up)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			J.Set(i, j, (rp[i]-r0[i])/step)
		}
	}
	return J, nil
}

// solveSym solves a symmetric positive (semi-)definite system via
// Cholesky, falling back to an SVD pseudo-inverse, mirroring
// preedge/regress.go's polyfit solve
func solveSym(m *mat.SymDense, rhs *mat.Dense, n int) ([]float64, error) {
	var chol mat.Cholesky
	if chol.Factorize(m) {
		var x mat.Dense
		if err := chol.SolveTo(&x, rhs); err == nil {
			out := make([]float64, n)
			for i := 0; i < n; i++ {
				out[i] = x.At(i, 0)
			}
			return out, nil
		}
	}
	var dense mat.Dense
	dense.CloneFrom(m)
	pinv, err := pseudoInverseDense(&dense)
	if err != nil {
		return nil, err
	}
	var x mat.Dense
	x.Mul(pinv, rhs)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = x.At(i, 0)
	}
	return out, nil
}

// pseudoInverseDense returns the Moore-Penrose pseudo-inverse of a square
// matrix via SVD, truncating singular values below 1e-12 of the largest
func pseudoInverseDense(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, xerr.New(xerr.SingularJacobian, "SVD failed to factorize the normal-equations matrix")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)
	if len(s) == 0 {
		return nil, xerr.New(xerr.SingularJacobian, "SVD produced no singular values")
	}
	smax := s[0]
	sInv := mat.NewDense(len(s), len(s), nil)
	for i, sv := range s {
		if sv > 1e-12*smax {
			sInv.Set(i, i, 1/sv)
		}
	}
	var vSinv, out mat.Dense
	vSinv.Mul(&v, sInv)
	out.Mul(&vSinv, u.T())
	return &out, nil
}

func sumSquares(v []float64) float64 {
	return floats.Dot(v, v)
}
