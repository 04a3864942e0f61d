// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package spectrum exposes the staged pipeline normalize -> autobk ->
// xftf -> xftr as a single aggregate (component F), and Group, an
// ordered batch of Spectra whose batch operations may dispatch to
// worker.Run.
package spectrum

import (
	"github.com/Ameyanagi/xraytsubaki/autobk"
	"github.com/Ameyanagi/xraytsubaki/preedge"
	"github.com/Ameyanagi/xraytsubaki/worker"
	"github.com/Ameyanagi/xraytsubaki/xerr"
	"github.com/Ameyanagi/xraytsubaki/xft"
)

// stage tags how far a Spectrum's pipeline has progressed; downstream
// fields are only valid at or below the current stage (§4.F)
type stage int

const (
	stageRaw stage = iota
	stageNormalized
	stageBackground
	stageForwardFT
	stageReverseFT
)

// Spectrum is one (E, µ) curve plus every derived array produced by the
// pipeline stages that have run on it (component F)
type Spectrum struct {
	Name string
	E    []float64
	Mu   []float64

	stage stage

	E0       float64
	EdgeStep float64
	PreEdge  []float64
	PostEdge []float64
	Norm     []float64

	K   []float64
	Chi []float64
	Bkg []float64

	R      []float64
	ChirRe []float64
	ChirIm []float64

	Q      []float64
	ChiqRe []float64
	ChiqIm []float64
}

// New wraps a raw (E, µ) curve
func New(name string, e, mu []float64) *Spectrum {
	return &Spectrum{Name: name, E: e, Mu: mu}
}

// Normalize runs component D and invalidates every downstream stage
func (s *Spectrum) Normalize(cfg preedge.Config) error {
	res, err := preedge.PreEdge(s.E, s.Mu, cfg)
	if err != nil {
		return err
	}
	s.E0 = res.E0
	s.EdgeStep = res.EdgeStep
	s.PreEdge = res.PreEdge
	s.PostEdge = res.PostEdge
	s.Norm = res.Norm
	s.invalidateFrom(stageNormalized)
	return nil
}

// Autobk runs component E; requires Normalize to have already run
func (s *Spectrum) Autobk(cfg autobk.Config) error {
	if s.stage < stageNormalized {
		return xerr.New(xerr.InvalidInput, "autobk requires normalize to have run first").WithOperand(s.Name)
	}
	e0 := s.E0
	cfg.E0 = &e0
	res, err := autobk.Background(s.E, s.Mu, cfg)
	if err != nil {
		return err
	}
	s.K = res.K
	s.Chi = res.Chi
	s.Bkg = res.Bkg
	s.invalidateFrom(stageBackground)
	return nil
}

// Xftf runs component C's forward leg; requires Autobk to have already
// run
func (s *Spectrum) Xftf(cfg xft.ForwardConfig) error {
	if s.stage < stageBackground {
		return xerr.New(xerr.InvalidInput, "xftf requires autobk to have run first").WithOperand(s.Name)
	}
	res, err := xft.Xftf(s.K, s.Chi, cfg)
	if err != nil {
		return err
	}
	s.R = res.R
	s.ChirRe = make([]float64, len(res.Chir))
	s.ChirIm = make([]float64, len(res.Chir))
	for i, c := range res.Chir {
		s.ChirRe[i] = real(c)
		s.ChirIm[i] = imag(c)
	}
	s.invalidateFrom(stageForwardFT)
	return nil
}

// Xftr runs component C's reverse leg; requires Xftf to have already run
func (s *Spectrum) Xftr(cfg xft.ReverseConfig) error {
	if s.stage < stageForwardFT {
		return xerr.New(xerr.InvalidInput, "xftr requires xftf to have run first").WithOperand(s.Name)
	}
	chir := make([]complex128, len(s.R))
	for i := range s.R {
		chir[i] = complex(s.ChirRe[i], s.ChirIm[i])
	}
	res, err := xft.Xftr(s.R, chir, cfg)
	if err != nil {
		return err
	}
	s.Q = res.Q
	s.ChiqRe = make([]float64, len(res.Chiq))
	s.ChiqIm = make([]float64, len(res.Chiq))
	for i, c := range res.Chiq {
		s.ChiqRe[i] = real(c)
		s.ChiqIm[i] = imag(c)
	}
	s.stage = stageReverseFT
	return nil
}

// invalidateFrom clears every field of the stages after the given one and
// records the given stage as the current one
func (s *Spectrum) invalidateFrom(reached stage) {
	s.stage = reached
	if reached < stageBackground {
		s.K, s.Chi, s.Bkg = nil, nil, nil
	}
	if reached < stageForwardFT {
		s.R, s.ChirRe, s.ChirIm = nil, nil, nil
	}
	if reached < stageReverseFT {
		s.Q, s.ChiqRe, s.ChiqIm = nil, nil, nil
	}
}

// Group is an insertion-ordered batch of Spectra
type Group struct {
	order []string
	byName map[string]*Spectrum
	Parallel bool // toggles worker.Run dispatch for the batch operations below; default sequential
	MaxConcurrency int
}

// NewGroup returns an empty Group
func NewGroup() *Group {
	return &Group{byName: make(map[string]*Spectrum)}
}

// Add appends a Spectrum, erroring on a duplicate name
func (g *Group) Add(s *Spectrum) error {
	if _, dup := g.byName[s.Name]; dup {
		return xerr.New(xerr.InvalidInput, "duplicate spectrum name %q", s.Name).WithOperand(s.Name)
	}
	g.byName[s.Name] = s
	g.order = append(g.order, s.Name)
	return nil
}

// Spectra returns every Spectrum in insertion order
func (g *Group) Spectra() []*Spectrum {
	out := make([]*Spectrum, len(g.order))
	for i, name := range g.order {
		out[i] = g.byName[name]
	}
	return out
}

// batch runs fn over every Spectrum, dispatching to worker.Run per the
// Group's Parallel toggle (§5), and returns one error per spectrum in
// insertion order
func (g *Group) batch(fn func(s *Spectrum) error) []error {
	spectra := g.Spectra()
	return worker.Run(len(spectra), g.Parallel, g.MaxConcurrency, func(i int) error {
		return fn(spectra[i])
	})
}

// NormalizeAll runs Normalize on every spectrum in the group
func (g *Group) NormalizeAll(cfg preedge.Config) []error {
	return g.batch(func(s *Spectrum) error { return s.Normalize(cfg) })
}

// AutobkAll runs Autobk on every spectrum in the group
func (g *Group) AutobkAll(cfg autobk.Config) []error {
	return g.batch(func(s *Spectrum) error { return s.Autobk(cfg) })
}

// XftfAll runs Xftf on every spectrum in the group
func (g *Group) XftfAll(cfg xft.ForwardConfig) []error {
	return g.batch(func(s *Spectrum) error { return s.Xftf(cfg) })
}

// XftrAll runs Xftr on every spectrum in the group
func (g *Group) XftrAll(cfg xft.ReverseConfig) []error {
	return g.batch(func(s *Spectrum) error { return s.Xftr(cfg) })
}
