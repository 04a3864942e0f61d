// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"testing"

	"github.com/Ameyanagi/xraytsubaki/xerr"
	"github.com/cpmech/gosl/chk"
)

func Test_scale_offset01(tst *testing.T) {

	chk.PrintTitle("param_scale_offset01")

	ps := NewParameterSet()
	must(tst, ps.Add("amp1", 0.8, 0, 2, true))
	must(tst, ps.Add("scale2", 0.9, 0, 2, true))
	must(tst, ps.AddConstrained("amp2", Constraint{Kind: Scale, Ref: "amp1", Ref2: "scale2"}))
	must(tst, ps.Add("offset3", 0.002, -1, 1, true))
	must(tst, ps.AddConstrained("sigma2_3", Constraint{Kind: Offset, Ref: "amp1", Ref2: "offset3"}))

	if err := ps.ApplyConstraints(); err != nil {
		tst.Fatalf("ApplyConstraints failed: %v", err)
	}
	p2, _ := ps.Get("amp2")
	chk.Scalar(tst, "amp2 = amp1*scale2", 1e-12, p2.Value, 0.8*0.9)

	p3, _ := ps.Get("sigma2_3")
	chk.Scalar(tst, "sigma2_3 = amp1+offset3", 1e-12, p3.Value, 0.8+0.002)
}

func Test_cycle_detected(tst *testing.T) {

	chk.PrintTitle("param_cycle_detected")

	ps := NewParameterSet()
	must(tst, ps.Add("a", 1, 0, 2, true))
	must(tst, ps.AddConstrained("b", Constraint{Kind: Ratio, Ref: "a", C: 2}))
	// manually wire a cycle by overwriting b's constraint to reference c,
	// and c to reference b, bypassing the UnknownParameter check at
	// construction time (simulating a DAG edit)
	pb, _ := ps.Get("b")
	pc := &Parameter{Name: "c", Constraint: &Constraint{Kind: Ratio, Ref: "b", C: 1}}
	ps.byName["c"] = pc
	ps.order = append(ps.order, "c")
	pb.Constraint = &Constraint{Kind: Ratio, Ref: "c", C: 1}

	err := ps.ApplyConstraints()
	if err == nil {
		tst.Fatalf("expected ConstraintCycle error")
	}
	if !xerr.Is(err, xerr.ConstraintCycle) {
		tst.Fatalf("expected ConstraintCycle kind, got %v", err)
	}
}

func Test_free_vector_roundtrip(tst *testing.T) {

	chk.PrintTitle("param_free_vector_roundtrip")

	ps := NewParameterSet()
	must(tst, ps.Add("a", 1.0, 0, 2, true))
	must(tst, ps.Add("b", 2.0, 0, 5, true))
	must(tst, ps.Add("fixed", 9.0, 0, 10, false))

	v := ps.FreeVector()
	chk.IntAssert(len(v), 2)

	v[0] = 10 // outside [0,2], should clamp on read-back
	if err := ps.SetFreeVector(v); err != nil {
		tst.Fatalf("SetFreeVector failed: %v", err)
	}
	pa, _ := ps.Get("a")
	chk.Scalar(tst, "clamped to upper bound", 1e-12, pa.Value, 2)
}

func Test_snapshot_restore(tst *testing.T) {

	chk.PrintTitle("param_snapshot_restore")

	ps := NewParameterSet()
	must(tst, ps.Add("a", 1.0, 0, 2, true))
	snap := ps.Snapshot()
	pa, _ := ps.Get("a")
	pa.Value = 1.9
	ps.Restore(snap)
	chk.Scalar(tst, "restored", 1e-12, pa.Value, 1.0)
}

func must(tst *testing.T, err error) {
	if err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
}
