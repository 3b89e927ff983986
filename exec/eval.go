package exec

import (
	"fmt"

	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/plan"
	"github.com/corvidsql/corvid/sqlval"
)

// Eval evaluates e against row, resolving any ast.Column through
// shape. shape/row may both be nil when e is known to contain no
// column references (e.g. an INSERT VALUES literal).
func Eval(e ast.Expr, shape plan.RowShape, row sqlval.Row) (sqlval.Value, error) {
	switch ex := e.(type) {
	case *ast.Literal:
		return ex.Value, nil

	case *ast.Column:
		if shape == nil {
			return sqlval.Value{}, fmt.Errorf("exec: column reference %s not valid here", ex.String())
		}
		idx, err := shape.Resolve(ex)
		if err != nil {
			return sqlval.Value{}, err
		}
		return row[idx], nil

	case *ast.BinOp:
		return evalBinOp(ex, shape, row)

	case *ast.Agg:
		return sqlval.Value{}, fmt.Errorf("exec: aggregate %s cannot be evaluated outside an Aggregate node", ex.String())

	default:
		return sqlval.Value{}, fmt.Errorf("exec: unsupported expression %T", e)
	}
}

func evalBinOp(b *ast.BinOp, shape plan.RowShape, row sqlval.Row) (sqlval.Value, error) {
	left, err := Eval(b.Left, shape, row)
	if err != nil {
		return sqlval.Value{}, err
	}

	if b.Op == "AND" {
		if !left.Truthy() {
			return sqlval.NewInt(0), nil
		}
		right, err := Eval(b.Right, shape, row)
		if err != nil {
			return sqlval.Value{}, err
		}
		if right.Truthy() {
			return sqlval.NewInt(1), nil
		}
		return sqlval.NewInt(0), nil
	}

	right, err := Eval(b.Right, shape, row)
	if err != nil {
		return sqlval.Value{}, err
	}

	switch b.Op {
	case "+":
		return left.Add(right)
	case "-":
		return left.Sub(right)
	case "*":
		return left.Mul(right)
	case "/":
		return left.Div(right)
	case "=":
		eq, err := left.Equal(right)
		return boolVal(eq), err
	case "!=":
		if left.IsNull() || right.IsNull() {
			return sqlval.NewInt(0), nil
		}
		eq, err := left.Equal(right)
		return boolVal(!eq), err
	case "<", ">", "<=", ">=":
		cmp, ok, err := left.Compare(right)
		if err != nil {
			return sqlval.Value{}, err
		}
		if !ok {
			return sqlval.NewInt(0), nil
		}
		switch b.Op {
		case "<":
			return boolVal(cmp < 0), nil
		case ">":
			return boolVal(cmp > 0), nil
		case "<=":
			return boolVal(cmp <= 0), nil
		case ">=":
			return boolVal(cmp >= 0), nil
		}
	}
	return sqlval.Value{}, fmt.Errorf("exec: unknown operator %q", b.Op)
}

func boolVal(b bool) sqlval.Value {
	if b {
		return sqlval.NewInt(1)
	}
	return sqlval.NewInt(0)
}
