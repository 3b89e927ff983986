package sqlval

import (
	"fmt"

	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Location pinpoints a source position for diagnostics.
type Location struct {
	Line, Column int
}

func (l Location) String() string {
	if l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("line %d, col %d", l.Line, l.Column)
}

// Error kinds, one per spec.md §7 category. Each is declared with
// gopkg.in/src-d/go-errors.v1, mirroring the teacher's auth package
// ("ErrNotAuthorized = errors.NewKind(...)").
var (
	ErrLex        = goerrors.NewKind("lex error: %s")
	ErrParse      = goerrors.NewKind("parse error: %s")
	ErrSemantic   = goerrors.NewKind("semantic error: %s")
	ErrPlan       = goerrors.NewKind("plan error: %s")
	ErrType       = goerrors.NewKind("type error: %s")
	ErrConstraint = goerrors.NewKind("constraint violation: %s")
	ErrIO         = goerrors.NewKind("io error: %s")
	ErrBuffer     = goerrors.NewKind("buffer exhausted: %s")
	ErrRuntime    = goerrors.NewKind("runtime error: %s")

	ErrDivByZero = goerrors.NewKind("division by zero")
)

// ConstraintKind distinguishes the three ConstraintViolation cases.
type ConstraintKind uint8

const (
	ConstraintPrimaryKey ConstraintKind = iota
	ConstraintVarcharLength
	ConstraintForeignKey
)

func (c ConstraintKind) String() string {
	switch c {
	case ConstraintPrimaryKey:
		return "primary key"
	case ConstraintVarcharLength:
		return "varchar length"
	case ConstraintForeignKey:
		return "foreign key"
	default:
		return "unknown"
	}
}
