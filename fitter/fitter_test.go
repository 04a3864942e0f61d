// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitter

import (
	"math"
	"math/rand"
	"testing"

	"github.com/Ameyanagi/xraytsubaki/dataset"
	"github.com/Ameyanagi/xraytsubaki/param"
	"github.com/Ameyanagi/xraytsubaki/xpath"
	"github.com/Ameyanagi/xraytsubaki/xwin"
	"github.com/cpmech/gosl/chk"
)

func kGrid() []float64 {
	k := make([]float64, 0, 201)
	for v := 2.0; v <= 12.0001; v += 0.05 {
		k = append(k, v)
	}
	return k
}

// Test_single_shell_fit reproduces §8 scenario 6
func Test_single_shell_fit(tst *testing.T) {

	chk.PrintTitle("single_shell_fit")

	k := kGrid()
	truePath := xpath.SimplePath{AmpParam: "amp", RParam: "dr", PhaseParam: "phase", Sigma2Param: "sigma2", Degeneracy: 1, Reff: 2.5, Lambda: 15}.WithDefaults()

	trueParams := param.NewParameterSet()
	mustAdd(tst, trueParams, "amp", 0.8, 0, 2, true)
	mustAdd(tst, trueParams, "dr", 0.05, -0.5, 0.5, true)
	mustAdd(tst, trueParams, "phase", 0, -math.Pi, math.Pi, false)
	mustAdd(tst, trueParams, "sigma2", 0.004, 0, 0.02, true)

	chiTrue, err := truePath.CalcChi(trueParams, k)
	if err != nil {
		tst.Fatalf("CalcChi failed: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	chiNoisy := make([]float64, len(chiTrue))
	for i, v := range chiTrue {
		chiNoisy[i] = v + 0.02*rng.NormFloat64()
	}

	fitParams := param.NewParameterSet()
	mustAdd(tst, fitParams, "amp", 0.7, 0, 2, true)
	mustAdd(tst, fitParams, "dr", 0.0, -0.5, 0.5, true)
	mustAdd(tst, fitParams, "phase", 0, -math.Pi, math.Pi, false)
	mustAdd(tst, fitParams, "sigma2", 0.005, 0, 0.02, true)

	fitPath := xpath.SimplePath{AmpParam: "amp", RParam: "dr", PhaseParam: "phase", Sigma2Param: "sigma2", Degeneracy: 1, Reff: 2.5, Lambda: 15}

	ds, err := dataset.NewFittingDataset(k, chiNoisy, []xpath.Path{fitPath}, dataset.Config{Kweight: 2, Kmin: 2, Kmax: 12, Dk: 1, Window: xwin.Hanning})
	if err != nil {
		tst.Fatalf("NewFittingDataset failed: %v", err)
	}

	f := New(fitParams, ds.Residual, Config{})
	f.RFactorFunc = ds.RFactor
	runErr := f.Run()
	if f.State != Converged {
		tst.Fatalf("state=%v (err=%v), want Converged", f.State, runErr)
	}

	amp := fitParams.Value("amp")
	dr := fitParams.Value("dr")
	sigma2 := fitParams.Value("sigma2")
	if math.Abs(amp-0.8) >= 0.1 {
		tst.Fatalf("amp=%.6g, want within 0.1 of 0.8", amp)
	}
	if math.Abs(dr-0.05) >= 0.02 {
		tst.Fatalf("dr=%.6g, want within 0.02 of 0.05", dr)
	}
	if math.Abs(sigma2-0.004) >= 0.001 {
		tst.Fatalf("sigma2=%.6g, want within 0.001 of 0.004", sigma2)
	}

	if f.Stats.RFactor >= 0.05 {
		tst.Fatalf("r_factor=%.6g, want < 0.05", f.Stats.RFactor)
	}
	if f.Stats.N != len(k) {
		tst.Fatalf("Stats.N=%d, want %d", f.Stats.N, len(k))
	}
	if len(f.Stats.StdErr) != 3 {
		tst.Fatalf("StdErr has %d entries, want 3 (amp, dr, sigma2 vary)", len(f.Stats.StdErr))
	}
}

// Test_multi_spectrum_fit reproduces §8 scenario 7
func Test_multi_spectrum_fit(tst *testing.T) {

	chk.PrintTitle("multi_spectrum_fit")

	k := kGrid()
	trueAmp := []float64{0.8, 0.72, 0.64}
	trueSigma2 := []float64{0.004, 0.005, 0.006}

	rng := rand.New(rand.NewSource(7))
	var chis [][]float64
	for i := range trueAmp {
		p := param.NewParameterSet()
		mustAdd(tst, p, "amp", trueAmp[i], 0, 2, true)
		mustAdd(tst, p, "dr", 0, -0.5, 0.5, false)
		mustAdd(tst, p, "phase", 0, -math.Pi, math.Pi, false)
		mustAdd(tst, p, "sigma2", trueSigma2[i], 0, 0.02, true)
		path := xpath.SimplePath{AmpParam: "amp", RParam: "dr", PhaseParam: "phase", Sigma2Param: "sigma2", Degeneracy: 1, Reff: 2.5, Lambda: 15}.WithDefaults()
		chiTrue, err := path.CalcChi(p, k)
		if err != nil {
			tst.Fatalf("CalcChi failed: %v", err)
		}
		noisy := make([]float64, len(chiTrue))
		for j, v := range chiTrue {
			noisy[j] = v + 0.02*rng.NormFloat64()
		}
		chis = append(chis, noisy)
	}

	fitParams := param.NewParameterSet()
	mustAdd(tst, fitParams, "amp1", 0.75, 0, 2, true)
	mustAdd(tst, fitParams, "amp_scale_2", 1.0, 0.1, 3, true)
	mustAdd(tst, fitParams, "amp_scale_3", 1.0, 0.1, 3, true)
	mustAdd(tst, fitParams, "dr", 0, -0.5, 0.5, false)
	mustAdd(tst, fitParams, "phase", 0, -math.Pi, math.Pi, false)
	mustAdd(tst, fitParams, "sigma2_1", 0.0045, 0, 0.02, true)
	mustAdd(tst, fitParams, "dsigma2_2", 0.001, -0.02, 0.02, true)
	mustAdd(tst, fitParams, "dsigma2_3", 0.002, -0.02, 0.02, true)

	if err := fitParams.AddConstrained("amp2", param.Constraint{Kind: param.Scale, Ref: "amp1", Ref2: "amp_scale_2"}); err != nil {
		tst.Fatalf("AddConstrained amp2 failed: %v", err)
	}
	if err := fitParams.AddConstrained("amp3", param.Constraint{Kind: param.Scale, Ref: "amp1", Ref2: "amp_scale_3"}); err != nil {
		tst.Fatalf("AddConstrained amp3 failed: %v", err)
	}
	if err := fitParams.AddConstrained("sigma2_2", param.Constraint{Kind: param.Offset, Ref: "sigma2_1", Ref2: "dsigma2_2"}); err != nil {
		tst.Fatalf("AddConstrained sigma2_2 failed: %v", err)
	}
	if err := fitParams.AddConstrained("sigma2_3", param.Constraint{Kind: param.Offset, Ref: "sigma2_1", Ref2: "dsigma2_3"}); err != nil {
		tst.Fatalf("AddConstrained sigma2_3 failed: %v", err)
	}
	if err := fitParams.ApplyConstraints(); err != nil {
		tst.Fatalf("ApplyConstraints failed: %v", err)
	}

	paths := []xpath.Path{
		xpath.SimplePath{AmpParam: "amp1", RParam: "dr", PhaseParam: "phase", Sigma2Param: "sigma2_1", Degeneracy: 1, Reff: 2.5, Lambda: 15},
		xpath.SimplePath{AmpParam: "amp2", RParam: "dr", PhaseParam: "phase", Sigma2Param: "sigma2_2", Degeneracy: 1, Reff: 2.5, Lambda: 15},
		xpath.SimplePath{AmpParam: "amp3", RParam: "dr", PhaseParam: "phase", Sigma2Param: "sigma2_3", Degeneracy: 1, Reff: 2.5, Lambda: 15},
	}

	var multi dataset.MultiDataset
	for i, chi := range chis {
		ds, err := dataset.NewFittingDataset(k, chi, []xpath.Path{paths[i]}, dataset.Config{Kweight: 2, Kmin: 2, Kmax: 12, Dk: 1, Window: xwin.Hanning})
		if err != nil {
			tst.Fatalf("NewFittingDataset failed: %v", err)
		}
		multi.Datasets = append(multi.Datasets, ds)
	}

	f := New(fitParams, multi.Residual, Config{})
	f.RFactorFunc = multi.RFactor
	runErr := f.Run()
	if f.State != Converged {
		tst.Fatalf("state=%v (err=%v), want Converged", f.State, runErr)
	}

	ampScale2 := fitParams.Value("amp_scale_2")
	ampScale3 := fitParams.Value("amp_scale_3")
	dSigma3 := fitParams.Value("dsigma2_3")

	if ampScale2 < 0.85 || ampScale2 > 0.95 {
		tst.Fatalf("amp_scale_2=%.6g, want in [0.85,0.95]", ampScale2)
	}
	if ampScale3 < 0.75 || ampScale3 > 0.85 {
		tst.Fatalf("amp_scale_3=%.6g, want in [0.75,0.85]", ampScale3)
	}
	if dSigma3 < 0.0015 || dSigma3 > 0.0025 {
		tst.Fatalf("dsigma2_3=%.6g, want in [0.0015,0.0025]", dSigma3)
	}
	if f.Stats.RFactor >= 0.05 {
		tst.Fatalf("r_factor=%.6g, want < 0.05", f.Stats.RFactor)
	}
}

func mustAdd(tst *testing.T, ps *param.ParameterSet, name string, value, lower, upper float64, vary bool) {
	if err := ps.Add(name, value, lower, upper, vary); err != nil {
		tst.Fatalf("Add(%q) failed: %v", name, err)
	}
}
