// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xft

import (
	"math"
	"testing"

	"github.com/Ameyanagi/xraytsubaki/xwin"
	"github.com/cpmech/gosl/chk"
)

func intPtr(v int) *int { return &v }

func syntheticChi(n int, dk float64) ([]float64, []float64) {
	k := make([]float64, n)
	chi := make([]float64, n)
	for i := range k {
		k[i] = float64(i) * dk
		chi[i] = 0.4*math.Sin(2*2.5*k[i]) * math.Exp(-2*0.004*k[i]*k[i])
	}
	return k, chi
}

// Test_roundtrip01 checks that forward-then-reverse reproduces χ(k) on the
// interior of the k-window, per §8's round-trip invariant
func Test_roundtrip01(tst *testing.T) {

	chk.PrintTitle("xft_roundtrip01")

	n := 401
	dk := 12.0 / float64(n-1)
	k, chi := syntheticChi(n, dk)

	fwd, err := Xftf(k, chi, ForwardConfig{Window: xwin.Rectangular, Kmin: 0, Kmax: 12, Dk: 0, Kweight: intPtr(0), Nfft: 2048})
	if err != nil {
		tst.Fatalf("Xftf failed: %v", err)
	}

	rev, err := Xftr(fwd.R, fwd.Chir, ReverseConfig{Window: xwin.Rectangular, Rmin: 0, Rmax: fwd.R[len(fwd.R)-1], Dr: 0, Nfft: 2048, Dk: dk})
	if err != nil {
		tst.Fatalf("Xftr failed: %v", err)
	}

	for i := 50; i < 150; i++ {
		re := real(rev.Chiq[i])
		if math.Abs(re-chi[i]) > 5e-2 {
			tst.Fatalf("round trip mismatch at i=%d: got %.6g want %.6g", i, re, chi[i])
		}
	}
}

// Test_hermitian01 checks that a real χ(k) forward-transforms to a
// Hermitian-consistent spectrum: Nfft/2 finite r-points and a purely real
// r=0 (DC) term
func Test_hermitian01(tst *testing.T) {

	chk.PrintTitle("xft_hermitian01")

	n := 201
	dk := 10.0 / float64(n-1)
	k, chi := syntheticChi(n, dk)

	fwd, err := Xftf(k, chi, ForwardConfig{Window: xwin.Hanning, Kmin: 2, Kmax: 10, Dk: 1, Kweight: intPtr(2), Nfft: 1024})
	if err != nil {
		tst.Fatalf("Xftf failed: %v", err)
	}
	if len(fwd.Chir) != 512 {
		tst.Fatalf("expected Nfft/2=512 r-points, got %d", len(fwd.Chir))
	}
	for _, v := range fwd.Chir {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) {
			tst.Fatalf("NaN in chi(R)")
		}
	}
	if math.Abs(imag(fwd.Chir[0])) > 1e-12*(1+math.Abs(real(fwd.Chir[0]))) {
		tst.Fatalf("chi(R=0)=%v has an imaginary part, want real for a real chi(k)", fwd.Chir[0])
	}
}
