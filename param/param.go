// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package param implements the bounded scalar parameter system shared by
// every path model and the fitter (component G). Parameter generalizes
// gosl/fun's Prm{N,V} name/value pair (see mdl/solid's Init(prms
// fun.Prms) convention) with bounds, a vary flag, and an optional
// algebraic constraint; all lookups go through a single owning
// ParameterSet keyed by name rather than an object graph, resolving the
// cyclic ownership a dynamic-language source would otherwise rely on
package param

import (
	"math"
	"sort"

	"github.com/Ameyanagi/xraytsubaki/xerr"
)

// Parameter is one named, bounded scalar
type Parameter struct {
	Name       string
	Value      float64
	Lower      float64
	Upper      float64
	Vary       bool
	StdErr     float64
	Constraint *Constraint // non-nil iff this parameter's value is derived
}

// ConstraintKind tags the four algebraic constraint shapes of §3
type ConstraintKind int

const (
	Scale ConstraintKind = iota // value(ref) * value(factorRef)
	Offset                      // value(ref) + value(offsetRef)
	Ratio                       // value(ref) * C
	Sum                         // Σ value(refs[i]) + C
)

// Constraint derives a parameter's value from other parameters in the
// same set; constraints form a DAG, cycles are a construction error
type Constraint struct {
	Kind ConstraintKind
	Ref  string   // Scale/Offset/Ratio: the base reference
	Ref2 string   // Scale: factorRef, Offset: offsetRef
	Refs []string // Sum: the summed references
	C    float64  // Ratio/Sum: the constant
}

// refs returns every parameter name this constraint depends on
func (c *Constraint) refs() []string {
	switch c.Kind {
	case Scale, Offset:
		return []string{c.Ref, c.Ref2}
	case Ratio:
		return []string{c.Ref}
	case Sum:
		return append([]string(nil), c.Refs...)
	default:
		return nil
	}
}

// eval computes the constrained value given a lookup of other parameters'
// current values
func (c *Constraint) eval(value func(name string) float64) float64 {
	switch c.Kind {
	case Scale:
		return value(c.Ref) * value(c.Ref2)
	case Offset:
		return value(c.Ref) + value(c.Ref2)
	case Ratio:
		return value(c.Ref) * c.C
	case Sum:
		s := c.C
		for _, r := range c.Refs {
			s += value(r)
		}
		return s
	default:
		return 0
	}
}

// ParameterSet is an insertion-ordered name->Parameter store
type ParameterSet struct {
	order  []string
	byName map[string]*Parameter
}

// NewParameterSet returns an empty set
func NewParameterSet() *ParameterSet {
	return &ParameterSet{byName: make(map[string]*Parameter)}
}

// Add adds an unconstrained, free (or fixed) parameter
func (o *ParameterSet) Add(name string, value float64, lower, upper float64, vary bool) error {
	return o.add(&Parameter{Name: name, Value: value, Lower: lower, Upper: upper, Vary: vary})
}

// AddConstrained adds a parameter whose value is derived from c; its Vary
// flag is ignored once a constraint is present, per §3
func (o *ParameterSet) AddConstrained(name string, c Constraint) error {
	for _, r := range c.refs() {
		if _, ok := o.byName[r]; !ok {
			return xerr.New(xerr.UnknownParameter, "constraint on %q references unknown parameter %q", name, r).WithOperand(name)
		}
	}
	return o.add(&Parameter{Name: name, Lower: math.Inf(-1), Upper: math.Inf(1), Constraint: &c})
}

func (o *ParameterSet) add(p *Parameter) error {
	if _, dup := o.byName[p.Name]; dup {
		return xerr.New(xerr.InvalidInput, "duplicate parameter name %q", p.Name).WithOperand(p.Name)
	}
	if p.Lower > p.Value || p.Value > p.Upper {
		return xerr.New(xerr.BoundViolation, "parameter %q value %.6g outside [%.6g,%.6g]", p.Name, p.Value, p.Lower, p.Upper).WithOperand(p.Name)
	}
	o.byName[p.Name] = p
	o.order = append(o.order, p.Name)
	return nil
}

// Get returns the named parameter, or UnknownParameter
func (o *ParameterSet) Get(name string) (*Parameter, error) {
	p, ok := o.byName[name]
	if !ok {
		return nil, xerr.New(xerr.UnknownParameter, "no such parameter %q", name).WithOperand(name)
	}
	return p, nil
}

// Value is a convenience accessor returning 0 for an unknown name, used
// internally by constraint evaluation after names have already been
// validated at AddConstrained time
func (o *ParameterSet) Value(name string) float64 {
	if p, ok := o.byName[name]; ok {
		return p.Value
	}
	return 0
}

// Names returns every parameter name in insertion order
func (o *ParameterSet) Names() []string {
	return append([]string(nil), o.order...)
}

// ApplyConstraints topologically sorts the constrained parameters and
// assigns their derived values; it is idempotent and its result does not
// depend on insertion order within a topological level, per §8
func (o *ParameterSet) ApplyConstraints() error {
	// Kahn's algorithm over the (small) constraint sub-DAG
	indeg := make(map[string]int)
	constrained := make(map[string]*Parameter)
	for _, name := range o.order {
		p := o.byName[name]
		if p.Constraint != nil {
			constrained[name] = p
			indeg[name] = 0
		}
	}
	dependents := make(map[string][]string) // ref -> constrained names depending on it
	for name, p := range constrained {
		for _, r := range p.Constraint.refs() {
			if _, isConstrained := constrained[r]; isConstrained {
				indeg[name]++
				dependents[r] = append(dependents[r], name)
			}
		}
	}

	var ready []string
	for _, name := range o.order { // deterministic order within a level
		if indeg[name] == 0 {
			if _, ok := constrained[name]; ok {
				ready = append(ready, name)
			}
		}
	}
	sort.Strings(ready) // order-independence within a level, per §8

	visited := 0
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		p := constrained[name]
		p.Value = p.Constraint.eval(o.Value)
		visited++
		var freed []string
		for _, dep := range dependents[name] {
			indeg[dep]--
			if indeg[dep] == 0 {
				freed = append(freed, dep)
			}
		}
		sort.Strings(freed)
		ready = append(ready, freed...)
		sort.Strings(ready)
	}

	if visited != len(constrained) {
		return xerr.New(xerr.ConstraintCycle, "constraint graph has a cycle (%d of %d constrained parameters resolved)", visited, len(constrained))
	}
	return nil
}

// FreeVector exposes the varying, unconstrained parameters as a
// contiguous vector for the optimizer, in insertion order
func (o *ParameterSet) FreeVector() []float64 {
	v := make([]float64, 0, len(o.order))
	for _, name := range o.order {
		p := o.byName[name]
		if p.Constraint == nil && p.Vary {
			v = append(v, p.Value)
		}
	}
	return v
}

// FreeNames returns the names matching FreeVector's order
func (o *ParameterSet) FreeNames() []string {
	names := make([]string, 0, len(o.order))
	for _, name := range o.order {
		p := o.byName[name]
		if p.Constraint == nil && p.Vary {
			names = append(names, name)
		}
	}
	return names
}

// SetFreeVector writes v back into the free parameters, clamping each to
// its bounds on read-back, per §4.G
func (o *ParameterSet) SetFreeVector(v []float64) error {
	names := o.FreeNames()
	if len(v) != len(names) {
		return xerr.New(xerr.InvalidInput, "free vector length %d does not match %d free parameters", len(v), len(names))
	}
	for i, name := range names {
		p := o.byName[name]
		p.Value = clamp(v[i], p.Lower, p.Upper)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Snapshot is an opaque copy of every parameter's value, for LM trial-step
// rollback
type Snapshot struct {
	values map[string]float64
}

// Snapshot captures the current value of every parameter
func (o *ParameterSet) Snapshot() Snapshot {
	s := Snapshot{values: make(map[string]float64, len(o.order))}
	for _, name := range o.order {
		s.values[name] = o.byName[name].Value
	}
	return s
}

// Restore writes a prior Snapshot's values back into this set
func (o *ParameterSet) Restore(s Snapshot) {
	for name, v := range s.values {
		if p, ok := o.byName[name]; ok {
			p.Value = v
		}
	}
}
