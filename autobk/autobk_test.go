// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autobk

import (
	"math"
	"testing"

	"github.com/Ameyanagi/xraytsubaki/xft"
	"github.com/Ameyanagi/xraytsubaki/xwin"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"
)

func intPtr(v int) *int { return &v }

// twoShellChi is a synthetic single-scattering EXAFS signal with shells
// at R1=2.0Å and R2=4.0Å, used to build the §8 scenario 4 fixture
func twoShellChi(k float64) float64 {
	if k <= 0 {
		return 0
	}
	shell := func(amp, r, sigma2, phase float64) float64 {
		return amp * math.Sin(2*k*r+phase) * math.Exp(-2*k*k*sigma2) / (k * k)
	}
	return shell(3.0, 2.0, 0.003, 0.3) + shell(2.0, 4.0, 0.005, 0.6)
}

// Test_background_two_shell reproduces §8 scenario 4: background removal
// from a synthetic two-shell spectrum should recover χ(R) peaks near
// r≈2.0Å and r≈4.0Å
func Test_background_two_shell(tst *testing.T) {

	chk.PrintTitle("background_two_shell")

	const e0 = 17500.0
	e := utl.LinSpace(17000, 18500, 1500)
	mu := make([]float64, len(e))
	for i, ei := range e {
		pre := 1.0 + 0.002*(ei-17000)
		step := 0.5 * (1 + math.Tanh((ei-e0)/1))
		var chiTerm float64
		if ei > e0 {
			k := math.Sqrt(ktoE * (ei - e0))
			chiTerm = twoShellChi(k)
		}
		mu[i] = pre + 1.0*(step+chiTerm)
	}

	res, err := Background(e, mu, Config{Rbkg: 1.0, Kmax: 14, Window: xwin.Hanning})
	if err != nil {
		tst.Fatalf("Background failed: %v", err)
	}
	if res.Chi[0] != 0 {
		tst.Fatalf("chi[0]=%.6g, want 0", res.Chi[0])
	}

	fwd, err := xft.Xftf(res.K, res.Chi, xft.ForwardConfig{
		Window: xwin.Hanning, Kmin: 2, Kmax: 12, Dk: 1, Kweight: intPtr(2), Nfft: 2048,
	})
	if err != nil {
		tst.Fatalf("Xftf failed: %v", err)
	}

	mag := make([]float64, len(fwd.Chir))
	for i, c := range fwd.Chir {
		mag[i] = math.Hypot(real(c), imag(c))
	}

	peak1 := peakNear(fwd.R, mag, 1.2, 2.8)
	peak2 := peakNear(fwd.R, mag, 3.2, 4.8)
	if peak1 < 1.2 || peak1 > 2.8 {
		tst.Fatalf("first shell peak at r=%.3g, want near 2.0", peak1)
	}
	if peak2 < 3.2 || peak2 > 4.8 {
		tst.Fatalf("second shell peak at r=%.3g, want near 4.0", peak2)
	}
}

func peakNear(r, mag []float64, lo, hi float64) float64 {
	bestR, bestV := 0.0, -1.0
	for i, ri := range r {
		if ri >= lo && ri <= hi && mag[i] > bestV {
			bestR, bestV = ri, mag[i]
		}
	}
	return bestR
}

// Test_background_idempotent checks that re-running Background on the
// same input reproduces the same χ(k)
func Test_background_idempotent(tst *testing.T) {

	chk.PrintTitle("background_idempotent")

	const e0 = 17500.0
	e := utl.LinSpace(17000, 18500, 1500)
	mu := make([]float64, len(e))
	for i, ei := range e {
		pre := 1.0 + 0.002*(ei-17000)
		step := 0.5 * (1 + math.Tanh((ei-e0)/1))
		mu[i] = pre + 1.0*step
	}

	r1, err := Background(e, mu, Config{Rbkg: 1.0, Kmax: 14})
	if err != nil {
		tst.Fatalf("first Background failed: %v", err)
	}
	r2, err := Background(e, mu, Config{Rbkg: 1.0, Kmax: 14})
	if err != nil {
		tst.Fatalf("second Background failed: %v", err)
	}
	for i := range r1.Chi {
		if math.Abs(r1.Chi[i]-r2.Chi[i]) > 1e-9 {
			tst.Fatalf("chi[%d] differs between identical runs: %.6g vs %.6g", i, r1.Chi[i], r2.Chi[i])
		}
	}
}
