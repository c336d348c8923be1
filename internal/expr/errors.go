package expr

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed expression: bad syntax, an unknown
// operator, or an operand count outside the operator's arity.
//
// Parse errors surface at the first compile of a rule's expression. The
// evaluator catches them at the point of use and treats the rule as
// non-matching, so one malformed rule cannot abort a feature stream.
type ParseError struct {
	// Message describes what was wrong.
	Message string

	// Source is the offending fragment (the operator array or the string
	// form being parsed).
	Source string

	// Pos is a byte offset into Source for string-grammar errors, or -1
	// when the array form failed.
	Pos int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("parse error at offset %d: %s (in %q)", e.Pos, e.Message, e.Source)
	}
	if e.Source != "" {
		return fmt.Sprintf("parse error: %s (in %q)", e.Message, e.Source)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// EvalError reports a failure during operator evaluation: a type mismatch,
// an invalid operand (division by zero, a cast that cannot succeed), or a
// missing required operand value.
//
// Literal and variable lookups never produce an EvalError; only operator
// application can fail.
type EvalError struct {
	// Op is the operator that failed.
	Op string

	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("evaluation error in %q: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("evaluation error: %s", e.Message)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsEvalError reports whether err is (or wraps) an EvalError.
func IsEvalError(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee)
}

func parseErrorf(source string, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Source: source, Pos: -1}
}

func evalErrorf(op string, format string, args ...any) *EvalError {
	return &EvalError{Op: op, Message: fmt.Sprintf(format, args...)}
}
