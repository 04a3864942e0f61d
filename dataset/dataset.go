// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package dataset implements FittingDataset and MultiDataset (component
// I): the model/residual/r_factor machinery the fitter drives, with a
// k-space/R-space dual residual mode selected by whether an r-range is
// configured.
package dataset

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/param"
	"github.com/Ameyanagi/xraytsubaki/xerr"
	"github.com/Ameyanagi/xraytsubaki/xft"
	"github.com/Ameyanagi/xraytsubaki/xpath"
	"github.com/Ameyanagi/xraytsubaki/xwin"
	"gonum.org/v1/gonum/floats"
)

// Config configures a FittingDataset's residual weighting and, when
// Rmin/Rmax are non-zero, switches residual/r_factor into R-space mode
// (§4.I)
type Config struct {
	Kweight    int
	Kmin, Kmax float64
	Dk         float64
	Window     xwin.Name

	Rmin, Rmax float64 // both zero => k-space mode
	Dr         float64
	Nfft       int
}

// WithDefaults fills unset fields per §6's xftf/xftr defaults
func (c Config) WithDefaults() Config {
	if c.Kmax == 0 {
		c.Kmax = 12
	}
	if c.Dk == 0 {
		c.Dk = 1
	}
	if c.Nfft == 0 {
		c.Nfft = 2048
	}
	if c.rSpace() && c.Dr == 0 {
		c.Dr = 0.1
	}
	return c
}

func (c Config) rSpace() bool { return c.Rmax > 0 }

// zeroKweight is passed to xft.ForwardConfig wherever this package has
// already applied its own k-weight before transforming, so Xftf's
// internal weighting (which otherwise defaults to 2) must be a no-op
var zeroKweight = 0

// FittingDataset couples one experimental χ(k) curve to a sum of path
// models and a residual weighting scheme (component I)
type FittingDataset struct {
	K       []float64
	ChiData []float64
	Paths   []xpath.Path
	Cfg     Config
}

// NewFittingDataset validates and wraps a dataset
func NewFittingDataset(k, chiData []float64, paths []xpath.Path, cfg Config) (*FittingDataset, error) {
	if len(k) != len(chiData) {
		return nil, xerr.New(xerr.InvalidInput, "k and chiData length mismatch: %d vs %d", len(k), len(chiData))
	}
	return &FittingDataset{K: k, ChiData: chiData, Paths: paths, Cfg: cfg.WithDefaults()}, nil
}

// CalcModelChi sums every path's contribution on the dataset k-grid
// (§4.I)
func (d *FittingDataset) CalcModelChi(params *param.ParameterSet) ([]float64, error) {
	model := make([]float64, len(d.K))
	for _, p := range d.Paths {
		chi, err := p.CalcChi(params, d.K)
		if err != nil {
			return nil, err
		}
		for i := range model {
			model[i] += chi[i]
		}
	}
	return model, nil
}

// weightedDiff applies the k-weight and window to (chiData - model)
func (d *FittingDataset) weightedDiff(diff []float64) ([]float64, error) {
	w, err := xwin.Window(d.Cfg.Window, d.K, d.Cfg.Kmin, d.Cfg.Kmax, d.Cfg.Dk)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(diff))
	for i, ki := range d.K {
		out[i] = diff[i] * w[i] * math.Pow(ki, float64(d.Cfg.Kweight))
	}
	return out, nil
}

// Residual returns (chi_data - chi_model)·kʷ·W on the windowed k-range
// when Cfg is in k-space mode, or the concatenated real/imaginary parts
// of χ_data(R)-χ_model(R) on [Rmin,Rmax] in R-space mode (§4.I)
func (d *FittingDataset) Residual(params *param.ParameterSet) ([]float64, error) {
	model, err := d.CalcModelChi(params)
	if err != nil {
		return nil, err
	}
	diff := make([]float64, len(d.K))
	for i := range diff {
		diff[i] = d.ChiData[i] - model[i]
	}
	weighted, err := d.weightedDiff(diff)
	if err != nil {
		return nil, err
	}
	if !d.Cfg.rSpace() {
		return weighted, nil
	}

	dataWeighted, err := d.weightedChi(d.ChiData)
	if err != nil {
		return nil, err
	}
	modelWeighted, err := d.weightedChi(model)
	if err != nil {
		return nil, err
	}
	fwdCfg := xft.ForwardConfig{Window: d.Cfg.Window, Kmin: d.Cfg.Kmin, Kmax: d.Cfg.Kmax, Dk: d.Cfg.Dk, Kweight: &zeroKweight, Nfft: d.Cfg.Nfft}
	dataR, err := xft.Xftf(d.K, dataWeighted, fwdCfg)
	if err != nil {
		return nil, err
	}
	modelR, err := xft.Xftf(d.K, modelWeighted, fwdCfg)
	if err != nil {
		return nil, err
	}

	var out []float64
	for i, ri := range dataR.R {
		if ri < d.Cfg.Rmin || ri > d.Cfg.Rmax {
			continue
		}
		diffR := dataR.Chir[i] - modelR.Chir[i]
		out = append(out, real(diffR), imag(diffR))
	}
	return out, nil
}

// weightedChi applies only the k-weight (the window is applied inside
// xft.Xftf itself), used when pre-weighting data/model before an R-space
// comparison that must not double-apply the window
func (d *FittingDataset) weightedChi(chi []float64) ([]float64, error) {
	out := make([]float64, len(chi))
	for i, ki := range d.K {
		out[i] = chi[i] * math.Pow(ki, float64(d.Cfg.Kweight))
	}
	return out, nil
}

// RFactor implements §4.I's r_factor
func (d *FittingDataset) RFactor(params *param.ParameterSet) (float64, error) {
	num, den, err := d.rFactorParts(params)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, xerr.New(xerr.InvalidInput, "r_factor denominator is zero")
	}
	return num / den, nil
}

// rFactorParts returns the numerator/denominator sums-of-squares behind
// RFactor, so MultiDataset.RFactor can pool them across datasets instead
// of averaging per-dataset ratios
func (d *FittingDataset) rFactorParts(params *param.ParameterSet) (num, den float64, err error) {
	res, err := d.Residual(params)
	if err != nil {
		return 0, 0, err
	}
	num = sumSquares(res)

	if !d.Cfg.rSpace() {
		dataWeighted, err := d.weightedDiff(d.ChiData)
		if err != nil {
			return 0, 0, err
		}
		return num, sumSquares(dataWeighted), nil
	}

	dataWeighted, err := d.weightedChi(d.ChiData)
	if err != nil {
		return 0, 0, err
	}
	fwdCfg := xft.ForwardConfig{Window: d.Cfg.Window, Kmin: d.Cfg.Kmin, Kmax: d.Cfg.Kmax, Dk: d.Cfg.Dk, Kweight: &zeroKweight, Nfft: d.Cfg.Nfft}
	dataR, err := xft.Xftf(d.K, dataWeighted, fwdCfg)
	if err != nil {
		return 0, 0, err
	}
	for i, ri := range dataR.R {
		if ri < d.Cfg.Rmin || ri > d.Cfg.Rmax {
			continue
		}
		den += real(dataR.Chir[i])*real(dataR.Chir[i]) + imag(dataR.Chir[i])*imag(dataR.Chir[i])
	}
	return num, den, nil
}

func sumSquares(v []float64) float64 {
	return floats.Dot(v, v)
}

// MultiDataset drives several datasets that share one ParameterSet
// (component I, the multi-dataset path of §4.J)
type MultiDataset struct {
	Datasets []*FittingDataset
}

// Residual concatenates every dataset's residual in insertion order
func (m *MultiDataset) Residual(params *param.ParameterSet) ([]float64, error) {
	var out []float64
	for _, d := range m.Datasets {
		r, err := d.Residual(params)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

// RFactor pools every dataset's r_factor numerator/denominator before
// dividing, rather than averaging per-dataset ratios, so datasets with
// larger signal dominate proportionally to their weight in Residual
func (m *MultiDataset) RFactor(params *param.ParameterSet) (float64, error) {
	var num, den float64
	for _, d := range m.Datasets {
		n, dn, err := d.rFactorParts(params)
		if err != nil {
			return 0, err
		}
		num += n
		den += dn
	}
	if den == 0 {
		return 0, xerr.New(xerr.InvalidInput, "r_factor denominator is zero")
	}
	return num / den, nil
}
