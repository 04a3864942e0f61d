// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package xerr defines the error taxonomy shared by every pipeline stage
package xerr

import "fmt"

// Kind identifies the class of failure a public call can report
type Kind int

// error kinds, one per failure mode named in the error handling design
const (
	InvalidInput     Kind = iota // shape/monotonicity/NaN problems in a primitive's input
	EdgeNotFound                 // find_e0 could not locate a credible edge
	TooFewKnots                  // r_bkg too small for the requested k-range
	SolverFailed                 // normal-equations matrix non-PSD and SVD unstable
	ConstraintCycle              // constraint DAG has a cycle
	UnknownParameter             // a constraint or path refers to an undeclared name
	BoundViolation               // value below lower or above upper
	NonConvergent                // LM hit the iteration cap or diverged
	SingularJacobian             // JtJ could not be inverted for standard errors
	IoError                      // persistence / column-ASCII boundary
)

// String names a Kind for messages and test failures
func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case EdgeNotFound:
		return "EdgeNotFound"
	case TooFewKnots:
		return "TooFewKnots"
	case SolverFailed:
		return "SolverFailed"
	case ConstraintCycle:
		return "ConstraintCycle"
	case UnknownParameter:
		return "UnknownParameter"
	case BoundViolation:
		return "BoundViolation"
	case NonConvergent:
		return "NonConvergent"
	case SingularJacobian:
		return "SingularJacobian"
	case IoError:
		return "IoError"
	default:
		return "Unknown"
	}
}

// Error is the structured error every public call returns on failure: a
// kind, a human message, and the offending operand (a parameter name, a
// stage name, or empty)
type Error struct {
	Kind    Kind
	Msg     string
	Operand string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Operand == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s (operand=%q)", e.Kind, e.Msg, e.Operand)
}

// New builds an *Error with a formatted message; mirrors the shape of
// gosl/chk.Err's Sprintf-style constructor without chk's test-time panic
// semantics, since a library's public error path must always return
// rather than abort
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithOperand attaches the offending operand name and returns the receiver,
// so construction reads as xerr.New(...).WithOperand(name)
func (e *Error) WithOperand(name string) *Error {
	e.Operand = name
	return e
}

// Is reports whether err is an *Error of the given kind; lets callers use
// errors.Is-free kind checks without importing this package's internals
func Is(err error, kind Kind) bool {
	xe, ok := err.(*Error)
	return ok && xe.Kind == kind
}
