// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package preedge

// Builder is the fluent convenience wrapper over PreEdge: it sets
// configuration and defers execution until Run(), per §9's "builders are
// sugar over" the one-shot functions and the fluent chain exercised by
// the original implementation's test suite (pre_edge().energy(e).mu(m)...).
type Builder struct {
	e, mu []float64
	cfg   Config
}

// NewBuilder starts a fluent pre-edge configuration
func NewBuilder() *Builder {
	return &Builder{}
}

// Energy sets the energy grid
func (b *Builder) Energy(e []float64) *Builder {
	b.e = e
	return b
}

// Mu sets the raw absorption array
func (b *Builder) Mu(mu []float64) *Builder {
	b.mu = mu
	return b
}

// E0 pins e0 instead of letting Run() call FindE0
func (b *Builder) E0(e0 float64) *Builder {
	b.cfg.E0 = &e0
	return b
}

// PreRange sets pre1/pre2
func (b *Builder) PreRange(pre1, pre2 float64) *Builder {
	b.cfg.Pre1 = pre1
	b.cfg.Pre2 = pre2
	return b
}

// NormRange sets norm1/norm2
func (b *Builder) NormRange(norm1, norm2 float64) *Builder {
	b.cfg.Norm1 = norm1
	b.cfg.Norm2 = norm2
	return b
}

// Nnorm sets the post-edge polynomial degree explicitly
func (b *Builder) Nnorm(n int) *Builder {
	b.cfg.Nnorm = &n
	return b
}

// Run executes PreEdge with the accumulated configuration
func (b *Builder) Run() (*Result, error) {
	return PreEdge(b.e, b.mu, b.cfg)
}
