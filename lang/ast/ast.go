// Package ast defines corvid's abstract syntax tree: a tagged-variant
// node set for the five statement kinds and the expression grammar
// they share, in place of an inheritance hierarchy.
package ast

import "github.com/corvidsql/corvid/sqlval"

// Statement is implemented by every top-level AST node.
type Statement interface {
	stmtNode()
}

// Expr is implemented by every expression node.
type Expr interface {
	exprNode()
	String() string
}

// ColumnDef describes one column in a CREATE TABLE.
type ColumnDef struct {
	Name       string
	Type       sqlval.ColumnType
	MaxLen     int
	PrimaryKey bool
}

// TableConstraint is a table-level PRIMARY KEY(col) or FOREIGN KEY(col)
// REFERENCES table(col) clause.
type TableConstraint struct {
	PrimaryKeyCol string // non-empty for PRIMARY KEY(col)

	ForeignKeyCol string // non-empty for FOREIGN KEY(col) REFERENCES ...
	RefTable      string
	RefColumn     string
}

// CreateTable is `CREATE TABLE name (col_def, ..., [constraint])`.
type CreateTable struct {
	Table       string
	Columns     []ColumnDef
	Constraints []TableConstraint
}

func (*CreateTable) stmtNode() {}

// Insert is `INSERT INTO table [(cols)] VALUES (row), (row), ...`.
// Each element of Rows is independently validated/applied (spec.md §7).
type Insert struct {
	Table   string
	Columns []string // empty means "all columns, declared order"
	Rows    [][]Expr
}

func (*Insert) stmtNode() {}

// TableRef is a FROM/JOIN table reference with its binding alias.
type TableRef struct {
	Table string
	Alias string // defaults to Table if not given
}

// EffectiveAlias returns Alias, defaulting to Table.
func (t TableRef) EffectiveAlias() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Table
}

// OrderKey is one ORDER BY column plus direction.
type OrderKey struct {
	Column string
	Desc   bool
}

// Select is the full SELECT grammar of spec.md §6.
type Select struct {
	Columns []SelectItem
	From    TableRef
	Join    *TableRef // nil when no JOIN
	On      Expr      // non-nil iff Join != nil
	Where   Expr      // nil when no WHERE
	GroupBy string    // "" when no GROUP BY
	OrderBy *OrderKey // nil when no ORDER BY
}

func (*Select) stmtNode() {}

// SelectItem is one entry of a SELECT list: either `*` (Star==true) or
// an expression with an optional AS alias.
type SelectItem struct {
	Star  bool
	Expr  Expr
	Alias string
}

// Assignment is one `col = expr` of an UPDATE's SET list.
type Assignment struct {
	Column string
	Value  Expr
}

// Update is `UPDATE table SET assignments [WHERE cond]`.
type Update struct {
	Table       string
	Assignments []Assignment
	Where       Expr
}

func (*Update) stmtNode() {}

// Delete is `DELETE FROM table [WHERE cond]`.
type Delete struct {
	Table string
	Where Expr
}

func (*Delete) stmtNode() {}

// DropTable is `DROP TABLE table`. Supplemental to the EBNF in
// spec.md §6 (mentioned as an optional lifecycle op in §3).
type DropTable struct {
	Table string
}

func (*DropTable) stmtNode() {}

// --- Expressions ---

// Column is `[qualifier.]name`.
type Column struct {
	Qualifier string
	Name      string
}

func (*Column) exprNode() {}
func (c *Column) String() string {
	if c.Qualifier != "" {
		return c.Qualifier + "." + c.Name
	}
	return c.Name
}

// Literal is a constant value parsed from the token stream.
type Literal struct {
	Value sqlval.Value
}

func (*Literal) exprNode() {}
func (l *Literal) String() string { return l.Value.String() }

// BinOp is a binary operator application: arithmetic (+ - * /),
// comparison (= != < > <= >=), or boolean conjunction (AND).
type BinOp struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*BinOp) exprNode() {}
func (b *BinOp) String() string { return b.Left.String() + " " + b.Op + " " + b.Right.String() }

// AggKind enumerates the supported aggregate functions.
type AggKind uint8

const (
	AggCount AggKind = iota
	AggSum
	AggAvg
)

func (k AggKind) String() string {
	switch k {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	default:
		return "?"
	}
}

// Agg is `COUNT(*) | COUNT(arg) | SUM(arg) | AVG(arg)`.
type Agg struct {
	Kind  AggKind
	Star  bool // true only for COUNT(*)
	Arg   Expr // nil iff Star
}

func (*Agg) exprNode() {}
func (a *Agg) String() string {
	if a.Star {
		return "COUNT(*)"
	}
	return a.Kind.String() + "(" + a.Arg.String() + ")"
}
