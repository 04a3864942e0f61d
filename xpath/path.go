// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package xpath implements the single-scattering path models (component
// H): SimplePath evaluates the closed-form χ_path(k) of §3 directly;
// FeffPath interpolates tabulated amp(k)/φ(k)/λ(k) curves the way a
// Feff-derived scattering path would supply them, since computing those
// tables from first principles is explicitly out of scope (§1 Non-goals).
package xpath

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/numx"
	"github.com/Ameyanagi/xraytsubaki/param"
	"github.com/Ameyanagi/xraytsubaki/xerr"
)

// Path computes a single scattering contribution to χ(k) on a given
// k-grid given the current values of a ParameterSet
type Path interface {
	CalcChi(params *param.ParameterSet, k []float64) ([]float64, error)
}

// SimplePath is the minimal analytical path model of §3: a sinusoid with
// Debye-Waller damping and a constant mean free path, parameterized by
// four named scalars (amp, r, phase, sigma2) plus a fixed degeneracy and
// initial half-path-length
type SimplePath struct {
	AmpParam, RParam, PhaseParam, Sigma2Param string
	Degeneracy                                float64 // N
	Reff                                       float64 // initial reff, Å
	Lambda                                    float64 // constant mean free path, Å (default 15 via WithDefaults)
	PhaseSlope                                float64 // φ(k) = PhaseSlope·k + value(PhaseParam)
}

// WithDefaults fills the zero-valued fields of SimplePath
func (p SimplePath) WithDefaults() SimplePath {
	if p.Degeneracy == 0 {
		p.Degeneracy = 1
	}
	if p.Lambda == 0 {
		p.Lambda = 15
	}
	return p
}

// CalcChi implements Path for SimplePath (§4.H, §3's formula)
func (p SimplePath) CalcChi(params *param.ParameterSet, k []float64) ([]float64, error) {
	p = p.WithDefaults()
	amp, err := lookup(params, p.AmpParam)
	if err != nil {
		return nil, err
	}
	dr, err := lookup(params, p.RParam)
	if err != nil {
		return nil, err
	}
	phase0, err := lookup(params, p.PhaseParam)
	if err != nil {
		return nil, err
	}
	sigma2, err := lookup(params, p.Sigma2Param)
	if err != nil {
		return nil, err
	}

	reff := p.Reff + dr
	out := make([]float64, len(k))
	for i, ki := range k {
		phi := p.PhaseSlope*ki + phase0
		out[i] = p.Degeneracy * amp * math.Sin(2*ki*reff+phi) *
			math.Exp(-2*ki*ki*sigma2) * math.Exp(-2*reff/p.Lambda)
	}
	return out, nil
}

// FeffPath interpolates tabulated scattering amplitude, phase, and
// mean-free-path curves at an E0-shifted effective wavenumber, and
// applies the full single-scattering EXAFS equation (amplitude falling
// as 1/(k·R²)), per the original implementation's path model
type FeffPath struct {
	K                                   []float64 // tabulation grid
	Amp, Phase, Lambda                  []float64 // tabulated at K
	AmpParam, RParam, Sigma2Param       string
	E0Param                             string // k_eff shift parameter
	Degeneracy                          float64
	Reff                                float64
}

// WithDefaults fills the zero-valued fields of FeffPath
func (p FeffPath) WithDefaults() FeffPath {
	if p.Degeneracy == 0 {
		p.Degeneracy = 1
	}
	return p
}

// CalcChi implements Path for FeffPath (§4.H)
func (p FeffPath) CalcChi(params *param.ParameterSet, k []float64) ([]float64, error) {
	p = p.WithDefaults()
	if err := numx.CheckGrid(p.K); err != nil {
		return nil, err
	}
	s02, err := lookup(params, p.AmpParam)
	if err != nil {
		return nil, err
	}
	dr, err := lookup(params, p.RParam)
	if err != nil {
		return nil, err
	}
	sigma2, err := lookup(params, p.Sigma2Param)
	if err != nil {
		return nil, err
	}
	e0shift, err := lookup(params, p.E0Param)
	if err != nil {
		return nil, err
	}

	reff := p.Reff + dr
	out := make([]float64, len(k))
	keff := make([]float64, len(k))
	valid := make([]bool, len(k))
	for i, ki := range k {
		arg := ki*ki - e0shift*0.262468
		if arg < 0 || ki == 0 {
			continue
		}
		keff[i] = math.Sqrt(arg)
		valid[i] = true
	}

	amp, err := numx.Interp1(p.K, p.Amp, keff, numx.CubicSpline)
	if err != nil {
		return nil, err
	}
	phase, err := numx.Interp1(p.K, p.Phase, keff, numx.CubicSpline)
	if err != nil {
		return nil, err
	}
	lam, err := numx.Interp1(p.K, p.Lambda, keff, numx.CubicSpline)
	if err != nil {
		return nil, err
	}

	for i, ki := range k {
		if !valid[i] {
			continue
		}
		out[i] = p.Degeneracy * s02 * amp[i] / (ki * reff * reff) *
			math.Sin(2*ki*reff+phase[i]) *
			math.Exp(-2*reff/lam[i]) * math.Exp(-2*ki*ki*sigma2)
	}
	return out, nil
}

func lookup(params *param.ParameterSet, name string) (float64, error) {
	p, err := params.Get(name)
	if err != nil {
		return 0, xerr.New(xerr.UnknownParameter, "path references unknown parameter %q", name).WithOperand(name)
	}
	return p.Value, nil
}
