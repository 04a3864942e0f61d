// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xpath

import (
	"math"
	"testing"

	"github.com/Ameyanagi/xraytsubaki/param"
	"github.com/cpmech/gosl/chk"
)

func Test_simple_path01(tst *testing.T) {

	chk.PrintTitle("simple_path01")

	ps := param.NewParameterSet()
	must(tst, ps.Add("amp", 0.8, 0, 2, true))
	must(tst, ps.Add("dr", 0.0, -1, 1, true))
	must(tst, ps.Add("phase", 0, -math.Pi, math.Pi, false))
	must(tst, ps.Add("sigma2", 0.003, 0, 0.02, true))

	p := SimplePath{AmpParam: "amp", RParam: "dr", PhaseParam: "phase", Sigma2Param: "sigma2", Reff: 2.0}.WithDefaults()
	k := []float64{2, 4, 6, 8}
	chi, err := p.CalcChi(ps, k)
	if err != nil {
		tst.Fatalf("CalcChi failed: %v", err)
	}
	if len(chi) != len(k) {
		tst.Fatalf("len(chi)=%d, want %d", len(chi), len(k))
	}
	for i, ki := range k {
		want := 0.8 * math.Sin(2*ki*2.0) * math.Exp(-2*ki*ki*0.003) * math.Exp(-2*2.0/15)
		if math.Abs(chi[i]-want) > 1e-9 {
			tst.Fatalf("chi[%d]=%.9g, want %.9g", i, chi[i], want)
		}
	}
}

func Test_feff_path_zero_below_threshold(tst *testing.T) {

	chk.PrintTitle("feff_path_zero_below_threshold")

	ps := param.NewParameterSet()
	must(tst, ps.Add("s02", 0.9, 0, 2, true))
	must(tst, ps.Add("dr", 0.0, -1, 1, true))
	must(tst, ps.Add("sigma2", 0.003, 0, 0.02, true))
	must(tst, ps.Add("e0shift", 50, -50, 50, true)) // large positive shift forces k_eff imaginary at small k

	fp := FeffPath{
		K:          []float64{0, 2, 4, 6, 8, 10, 12},
		Amp:        []float64{0, 0.5, 0.6, 0.55, 0.5, 0.45, 0.4},
		Phase:      []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		Lambda:     []float64{10, 10, 10, 10, 10, 10, 10},
		AmpParam:   "s02", RParam: "dr", Sigma2Param: "sigma2", E0Param: "e0shift",
		Reff: 2.0,
	}.WithDefaults()

	chi, err := fp.CalcChi(ps, []float64{1, 2, 12})
	if err != nil {
		tst.Fatalf("CalcChi failed: %v", err)
	}
	if chi[0] != 0 {
		tst.Fatalf("chi[0]=%.6g, want 0 (k^2 < e0_shift*0.262468)", chi[0])
	}
}

func must(tst *testing.T, err error) {
	if err != nil {
		tst.Fatalf("setup failed: %v", err)
	}
}
