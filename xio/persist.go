// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Ameyanagi/xraytsubaki/spectrum"
	"github.com/Ameyanagi/xraytsubaki/xerr"
)

// arrayField names one of a Spectrum's optional derived arrays, in the
// persisted order of §6
type arrayField struct {
	tag string
	get func(s *spectrum.Spectrum) []float64
	set func(s *spectrum.Spectrum, v []float64)
}

var arrayFields = []arrayField{
	{"energy", func(s *spectrum.Spectrum) []float64 { return s.E }, func(s *spectrum.Spectrum, v []float64) { s.E = v }},
	{"mu", func(s *spectrum.Spectrum) []float64 { return s.Mu }, func(s *spectrum.Spectrum, v []float64) { s.Mu = v }},
	{"norm", func(s *spectrum.Spectrum) []float64 { return s.Norm }, func(s *spectrum.Spectrum, v []float64) { s.Norm = v }},
	{"pre_edge", func(s *spectrum.Spectrum) []float64 { return s.PreEdge }, func(s *spectrum.Spectrum, v []float64) { s.PreEdge = v }},
	{"post_edge", func(s *spectrum.Spectrum) []float64 { return s.PostEdge }, func(s *spectrum.Spectrum, v []float64) { s.PostEdge = v }},
	{"k", func(s *spectrum.Spectrum) []float64 { return s.K }, func(s *spectrum.Spectrum, v []float64) { s.K = v }},
	{"chi", func(s *spectrum.Spectrum) []float64 { return s.Chi }, func(s *spectrum.Spectrum, v []float64) { s.Chi = v }},
	{"bkg", func(s *spectrum.Spectrum) []float64 { return s.Bkg }, func(s *spectrum.Spectrum, v []float64) { s.Bkg = v }},
	{"r", func(s *spectrum.Spectrum) []float64 { return s.R }, func(s *spectrum.Spectrum, v []float64) { s.R = v }},
	{"chir_re", func(s *spectrum.Spectrum) []float64 { return s.ChirRe }, func(s *spectrum.Spectrum, v []float64) { s.ChirRe = v }},
	{"chir_im", func(s *spectrum.Spectrum) []float64 { return s.ChirIm }, func(s *spectrum.Spectrum, v []float64) { s.ChirIm = v }},
	{"q", func(s *spectrum.Spectrum) []float64 { return s.Q }, func(s *spectrum.Spectrum, v []float64) { s.Q = v }},
	{"chiq_re", func(s *spectrum.Spectrum) []float64 { return s.ChiqRe }, func(s *spectrum.Spectrum, v []float64) { s.ChiqRe = v }},
	{"chiq_im", func(s *spectrum.Spectrum) []float64 { return s.ChiqIm }, func(s *spectrum.Spectrum, v []float64) { s.ChiqIm = v }},
}

// SaveText writes a tagged name->value tree: one "tag: v1 v2 ..." line per
// present array plus scalar e0/edge_step lines, using the shortest
// float64 representation that round-trips exactly (§6)
func SaveText(w io.Writer, s *spectrum.Spectrum) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "name: %s\n", s.Name)
	fmt.Fprintf(bw, "e0: %s\n", formatFloat(s.E0))
	fmt.Fprintf(bw, "edge_step: %s\n", formatFloat(s.EdgeStep))
	for _, af := range arrayFields {
		v := af.get(s)
		if v == nil {
			continue
		}
		fmt.Fprintf(bw, "%s:", af.tag)
		for _, x := range v {
			fmt.Fprintf(bw, " %s", formatFloat(x))
		}
		fmt.Fprint(bw, "\n")
	}
	return bw.Flush()
}

// LoadText is the inverse of SaveText
func LoadText(r io.Reader) (*spectrum.Spectrum, error) {
	s := &spectrum.Spectrum{}
	byTag := make(map[string]*arrayField, len(arrayFields))
	for i := range arrayFields {
		byTag[arrayFields[i].tag] = &arrayFields[i]
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		tag, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, xerr.New(xerr.IoError, "malformed line %q", line)
		}
		rest = strings.TrimSpace(rest)
		switch tag {
		case "name":
			s.Name = rest
		case "e0":
			v, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return nil, xerr.New(xerr.IoError, "bad e0 value %q", rest)
			}
			s.E0 = v
		case "edge_step":
			v, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return nil, xerr.New(xerr.IoError, "bad edge_step value %q", rest)
			}
			s.EdgeStep = v
		default:
			af, known := byTag[tag]
			if !known {
				return nil, xerr.New(xerr.IoError, "unknown tag %q", tag)
			}
			if rest == "" {
				af.set(s, []float64{})
				continue
			}
			fields := strings.Fields(rest)
			vals := make([]float64, len(fields))
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, xerr.New(xerr.IoError, "bad value %q in tag %q", f, tag)
				}
				vals[i] = v
			}
			af.set(s, vals)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, xerr.New(xerr.IoError, "scan failed: %v", err)
	}
	return s, nil
}

// formatFloat uses the shortest decimal representation that parses back
// to the exact same float64 (Go's strconv precision -1 guarantee)
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SaveBinary writes a self-delimiting length-prefixed binary record:
// name (uint32 length + bytes), e0, edge_step (float64), then one
// (uint32 length + float64s) block per array field in the fixed order of
// arrayFields; a present array sets presentMarker in its length prefix,
// so a bare zero prefix marks an absent field (§6)
func SaveBinary(w io.Writer, s *spectrum.Spectrum) error {
	bw := bufio.NewWriter(w)
	if err := writeString(bw, s.Name); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, s.E0); err != nil {
		return xerr.New(xerr.IoError, "write e0: %v", err)
	}
	if err := binary.Write(bw, binary.BigEndian, s.EdgeStep); err != nil {
		return xerr.New(xerr.IoError, "write edge_step: %v", err)
	}
	for _, af := range arrayFields {
		if err := writeFloatArray(bw, af.get(s)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadBinary is the inverse of SaveBinary
func LoadBinary(r io.Reader) (*spectrum.Spectrum, error) {
	br := bufio.NewReader(r)
	s := &spectrum.Spectrum{}
	name, err := readString(br)
	if err != nil {
		return nil, err
	}
	s.Name = name
	if err := binary.Read(br, binary.BigEndian, &s.E0); err != nil {
		return nil, xerr.New(xerr.IoError, "read e0: %v", err)
	}
	if err := binary.Read(br, binary.BigEndian, &s.EdgeStep); err != nil {
		return nil, xerr.New(xerr.IoError, "read edge_step: %v", err)
	}
	for _, af := range arrayFields {
		v, present, err := readFloatArray(br)
		if err != nil {
			return nil, err
		}
		if present {
			af.set(s, v)
		}
	}
	return s, nil
}

// presentMarker distinguishes "absent" (no array at all) from "present,
// zero-length"; a plain zero-length prefix cannot since both encode as 0
const presentMarker uint32 = 1 << 31

func writeString(w io.Writer, s string) error {
	b := []byte(s)
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return xerr.New(xerr.IoError, "write string length: %v", err)
	}
	if _, err := w.Write(b); err != nil {
		return xerr.New(xerr.IoError, "write string bytes: %v", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", xerr.New(xerr.IoError, "read string length: %v", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", xerr.New(xerr.IoError, "read string bytes: %v", err)
	}
	return string(b), nil
}

func writeFloatArray(w io.Writer, v []float64) error {
	if v == nil {
		return binary.Write(w, binary.BigEndian, uint32(0))
	}
	if err := binary.Write(w, binary.BigEndian, presentMarker|uint32(len(v))); err != nil {
		return xerr.New(xerr.IoError, "write array length: %v", err)
	}
	for _, x := range v {
		if err := binary.Write(w, binary.BigEndian, x); err != nil {
			return xerr.New(xerr.IoError, "write array element: %v", err)
		}
	}
	return nil
}

func readFloatArray(r io.Reader) ([]float64, bool, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, false, xerr.New(xerr.IoError, "read array length: %v", err)
	}
	if n&presentMarker == 0 {
		return nil, false, nil
	}
	count := n &^ presentMarker
	v := make([]float64, count)
	for i := range v {
		if err := binary.Read(r, binary.BigEndian, &v[i]); err != nil {
			return nil, false, xerr.New(xerr.IoError, "read array element: %v", err)
		}
	}
	return v, true, nil
}
