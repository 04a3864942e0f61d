// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package xio implements the external interfaces of §6: whitespace-
// delimited column-ASCII ingestion, and the text/binary persisted
// spectrum formats.
package xio

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Ameyanagi/xraytsubaki/xerr"
)

// ColumnOptions configures ReadColumns
type ColumnOptions struct {
	// MuFromIntensities treats a 3-column file as (energy, i0, it) and
	// derives µ; ignored for 2-column files
	MuFromIntensities bool
	// NegateLog selects µ = -ln(it/i0) instead of µ = ln(i0/it); both are
	// algebraically identical, the flag only matches a source file's sign
	// convention
	NegateLog bool
}

// ReadColumns parses whitespace-delimited ASCII with optional
// '#'-prefixed header/comment lines into (energy, µ) arrays (§6)
func ReadColumns(r io.Reader, opts ColumnOptions) (e, mu []float64, err error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		vals := make([]float64, len(fields))
		for i, f := range fields {
			v, perr := strconv.ParseFloat(f, 64)
			if perr != nil {
				return nil, nil, xerr.New(xerr.IoError, "line %d: cannot parse %q as a float", lineNo, f)
			}
			vals[i] = v
		}
		switch len(vals) {
		case 2:
			e = append(e, vals[0])
			mu = append(mu, vals[1])
		case 3:
			if !opts.MuFromIntensities {
				return nil, nil, xerr.New(xerr.IoError, "line %d: 3 columns present but MuFromIntensities is false", lineNo)
			}
			i0, it := vals[1], vals[2]
			var m float64
			if opts.NegateLog {
				m = -math.Log(it / i0)
			} else {
				m = math.Log(i0 / it)
			}
			e = append(e, vals[0])
			mu = append(mu, m)
		default:
			return nil, nil, xerr.New(xerr.IoError, "line %d: expected 2 or 3 columns, got %d", lineNo, len(vals))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, xerr.New(xerr.IoError, "scan failed: %v", err)
	}
	if len(e) < 2 {
		return nil, nil, xerr.New(xerr.IoError, "fewer than 2 data rows parsed")
	}
	return e, mu, nil
}
