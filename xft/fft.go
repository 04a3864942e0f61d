// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package xft implements the windowed forward/reverse XAFS Fourier
// transform pair (component C): χ(k) -> χ(R) and χ(R) -> χ(q). The
// underlying power-of-two real-to-complex DFT is
// gonum.org/v1/gonum/dsp/fourier's CmplxFFT, grounded on
// bob-anderson-ok/IOTAdiffraction/convolution.go's fft2InPlace, which
// drives the same Coefficients/Sequence API for a 2-D transform built
// from 1-D passes. All XAFS-specific scaling (δk/√π, (2δk√π)/N) is
// applied here, never inside the FFT call, per the library-boundary
// note in the design.
package xft

import (
	"math"

	"github.com/Ameyanagi/xraytsubaki/xerr"
	"github.com/Ameyanagi/xraytsubaki/xwin"
	"gonum.org/v1/gonum/dsp/fourier"
)

// ForwardConfig configures Xftf (component C, forward leg)
type ForwardConfig struct {
	Window     xwin.Name
	Kmin, Kmax float64
	Dk         float64 // taper width, in k-units
	Kweight    *int    // 0..3, nil => default 2
	Nfft       int     // power of two, default 2048
}

// WithDefaults fills the zero-valued fields of ForwardConfig with the
// defaults from §6
func (c ForwardConfig) WithDefaults() ForwardConfig {
	if c.Kmin == 0 {
		c.Kmin = 2
	}
	if c.Kmax == 0 {
		c.Kmax = 12
	}
	if c.Dk == 0 {
		c.Dk = 1
	}
	if c.Kweight == nil {
		two := 2
		c.Kweight = &two
	}
	if c.Nfft == 0 {
		c.Nfft = 2048
	}
	return c
}

// ForwardResult holds the output of Xftf
type ForwardResult struct {
	R    []float64
	Chir []complex128 // length Nfft/2
}

// Xftf computes the forward XAFS FFT: windows and k-weights χ(k), places
// it on a zero-padded uniform grid of length Nfft, and returns χ(R) on
// r_i = i·π/(Nfft·δk) (component C, forward leg)
func Xftf(k, chi []float64, cfg ForwardConfig) (*ForwardResult, error) {
	cfg = cfg.WithDefaults()
	if len(k) != len(chi) {
		return nil, xerr.New(xerr.InvalidInput, "k and chi length mismatch: %d vs %d", len(k), len(chi))
	}
	if len(k) < 2 {
		return nil, xerr.New(xerr.InvalidInput, "need at least 2 k points")
	}
	dk := k[1] - k[0]
	if dk <= 0 {
		return nil, xerr.New(xerr.InvalidInput, "k grid must be increasing and uniform")
	}
	n := cfg.Nfft
	if n <= 0 || n&(n-1) != 0 {
		return nil, xerr.New(xerr.InvalidInput, "Nfft must be a positive power of two, got %d", n)
	}

	w, err := xwin.Window(cfg.Window, k, cfg.Kmin, cfg.Kmax, cfg.Dk)
	if err != nil {
		return nil, err
	}

	buf := make([]complex128, n)
	for i := range k {
		if i >= n {
			break
		}
		kw := math.Pow(k[i], float64(*cfg.Kweight))
		buf[i] = complex(w[i]*kw*chi[i], 0)
	}

	fft := fourier.NewCmplxFFT(n)
	coeffs := make([]complex128, n)
	fft.Coefficients(coeffs, buf)

	nr := n / 2
	r := make([]float64, nr)
	chir := make([]complex128, nr)
	scale := complex(dk/math.Sqrt(math.Pi), 0)
	for i := 0; i < nr; i++ {
		r[i] = float64(i) * math.Pi / (float64(n) * dk)
		chir[i] = coeffs[i] * scale
	}
	return &ForwardResult{R: r, Chir: chir}, nil
}

// ReverseConfig configures Xftr (component C, reverse leg)
type ReverseConfig struct {
	Window     xwin.Name
	Rmin, Rmax float64
	Dr         float64
	Nfft       int
	Dk         float64 // output k-grid step, must match the forward leg's δk
}

// WithDefaults fills the zero-valued fields of ReverseConfig with the
// defaults from §6
func (c ReverseConfig) WithDefaults() ReverseConfig {
	if c.Rmin == 0 {
		c.Rmin = 1
	}
	if c.Rmax == 0 {
		c.Rmax = 3
	}
	if c.Dr == 0 {
		c.Dr = 0.1
	}
	if c.Nfft == 0 {
		c.Nfft = 2048
	}
	if c.Dk == 0 {
		c.Dk = 0.05
	}
	return c
}

// ReverseResult holds the output of Xftr
type ReverseResult struct {
	Q    []float64
	Chiq []complex128
}

// Xftr computes the reverse XAFS FFT: windows χ(R), inverse-transforms,
// and returns χ(q) on a k-like grid matching the forward leg's δk
// (component C, reverse leg)
func Xftr(r []float64, chir []complex128, cfg ReverseConfig) (*ReverseResult, error) {
	cfg = cfg.WithDefaults()
	if len(r) != len(chir) {
		return nil, xerr.New(xerr.InvalidInput, "r and chir length mismatch: %d vs %d", len(r), len(chir))
	}
	n := cfg.Nfft
	if n <= 0 || n&(n-1) != 0 {
		return nil, xerr.New(xerr.InvalidInput, "Nfft must be a positive power of two, got %d", n)
	}

	rGrid := make([]float64, len(r))
	copy(rGrid, r)
	w, err := xwin.Window(cfg.Window, rGrid, cfg.Rmin, cfg.Rmax, cfg.Dr)
	if err != nil {
		return nil, err
	}

	buf := make([]complex128, n)
	for i := range r {
		if i >= n {
			break
		}
		buf[i] = complex(w[i], 0) * chir[i]
	}

	fft := fourier.NewCmplxFFT(n)
	seq := make([]complex128, n)
	fft.Sequence(seq, buf)

	nq := n / 2
	q := make([]float64, nq)
	chiq := make([]complex128, nq)
	// gonum's Sequence already returns the unnormalized inverse transform
	// (a bare sum, not 1/N·sum), so this is the complete §4.C scale factor
	scale := complex(2*cfg.Dk*math.Sqrt(math.Pi)/float64(n), 0)
	for i := 0; i < nq; i++ {
		q[i] = float64(i) * cfg.Dk
		chiq[i] = seq[i] * scale
	}
	return &ReverseResult{Q: q, Chiq: chiq}, nil
}
