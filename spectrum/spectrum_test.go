// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spectrum

import (
	"math"
	"testing"

	"github.com/Ameyanagi/xraytsubaki/autobk"
	"github.com/Ameyanagi/xraytsubaki/preedge"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"
)

func syntheticSpectrum(name string) *Spectrum {
	e := utl.LinSpace(17000, 18500, 1500)
	mu := make([]float64, len(e))
	for i, ei := range e {
		pre := 1.0 + 0.002*(ei-17000)
		step := 0.5 * (1 + math.Tanh((ei-17500)/1))
		mu[i] = pre + step
	}
	return New(name, e, mu)
}

func Test_pipeline_staging01(tst *testing.T) {

	chk.PrintTitle("pipeline_staging01")

	s := syntheticSpectrum("s1")

	if err := s.Autobk(autobkDefaults()); err == nil {
		tst.Fatalf("Autobk before Normalize should have failed")
	}

	if err := s.Normalize(preedge.Config{}); err != nil {
		tst.Fatalf("Normalize failed: %v", err)
	}
	if s.Norm == nil {
		tst.Fatalf("Norm is nil after Normalize")
	}

	if err := s.Autobk(autobkDefaults()); err != nil {
		tst.Fatalf("Autobk failed: %v", err)
	}
	if s.Chi == nil {
		tst.Fatalf("Chi is nil after Autobk")
	}

	// re-running Normalize must invalidate the background-stage fields
	if err := s.Normalize(preedge.Config{}); err != nil {
		tst.Fatalf("second Normalize failed: %v", err)
	}
	if s.Chi != nil {
		tst.Fatalf("Chi survived a re-run of Normalize, want nil")
	}
}

func Test_group_batch01(tst *testing.T) {

	chk.PrintTitle("group_batch01")

	g := NewGroup()
	for _, name := range []string{"a", "b", "c"} {
		if err := g.Add(syntheticSpectrum(name)); err != nil {
			tst.Fatalf("Add(%q) failed: %v", name, err)
		}
	}
	g.Parallel = true
	g.MaxConcurrency = 2

	for _, err := range g.NormalizeAll(preedge.Config{}) {
		if err != nil {
			tst.Fatalf("NormalizeAll error: %v", err)
		}
	}
	for _, err := range g.AutobkAll(autobkDefaults()) {
		if err != nil {
			tst.Fatalf("AutobkAll error: %v", err)
		}
	}
	for i, s := range g.Spectra() {
		if s.Chi == nil {
			tst.Fatalf("spectrum %d has no Chi after AutobkAll", i)
		}
	}
}

func autobkDefaults() autobk.Config {
	return autobk.Config{Rbkg: 1.0, Kmax: 14}
}
