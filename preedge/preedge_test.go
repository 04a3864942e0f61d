// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package preedge

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"
)

// Test_find_e0_01 reproduces §8 scenario 2: µ(E) = tanh((E-17500)/10)
func Test_find_e0_01(tst *testing.T) {

	chk.PrintTitle("find_e0_01")

	e := utl.LinSpace(17000, 18000, 1000)
	mu := make([]float64, len(e))
	for i, ei := range e {
		mu[i] = math.Tanh((ei - 17500) / 10)
	}
	e0, err := FindE0(e, mu, FindE0Options{})
	if err != nil {
		tst.Fatalf("FindE0 failed: %v", err)
	}
	chk.Scalar(tst, "e0≈17500", 1.0, e0, 17500)
}

// Test_pre_edge_01 reproduces §8 scenario 3
func Test_pre_edge_01(tst *testing.T) {

	chk.PrintTitle("pre_edge_01")

	e := utl.LinSpace(17000, 18000, 1000)
	mu := make([]float64, len(e))
	for i, ei := range e {
		mu[i] = 1 + 0.01*(ei-17000) + 1*0.5*(1+math.Tanh((ei-17500)/10))
	}

	res, err := PreEdge(e, mu, Config{})
	if err != nil {
		tst.Fatalf("PreEdge failed: %v", err)
	}
	if res.EdgeStep < 0.95 || res.EdgeStep > 1.05 {
		tst.Fatalf("edge_step=%.6g outside [0.95,1.05]", res.EdgeStep)
	}

	sum, n := 0.0, 0
	for i, ei := range e {
		if ei > 17700 {
			sum += res.Norm[i]
			n++
		}
	}
	mean := sum / float64(n)
	if mean < 0.95 || mean > 1.05 {
		tst.Fatalf("mean(norm above 17700)=%.6g outside [0.95,1.05]", mean)
	}
}

// Test_pre_edge_fluent checks the builder produces the same result as the
// one-shot function, per §9's "builders are sugar" requirement
func Test_pre_edge_fluent(tst *testing.T) {

	chk.PrintTitle("pre_edge_fluent")

	e := utl.LinSpace(17000, 18000, 1000)
	mu := make([]float64, len(e))
	for i, ei := range e {
		mu[i] = 1 + 0.01*(ei-17000) + 1*0.5*(1+math.Tanh((ei-17500)/10))
	}

	direct, err := PreEdge(e, mu, Config{Pre1: -200, Pre2: -30, Norm1: 100, Norm2: 600, Nnorm: intp(2)})
	if err != nil {
		tst.Fatalf("PreEdge failed: %v", err)
	}
	fluent, err := NewBuilder().Energy(e).Mu(mu).PreRange(-200, -30).NormRange(100, 600).Nnorm(2).Run()
	if err != nil {
		tst.Fatalf("fluent Run failed: %v", err)
	}
	chk.Scalar(tst, "fluent edge_step == direct", 1e-9, fluent.EdgeStep, direct.EdgeStep)
}

func intp(v int) *int { return &v }
