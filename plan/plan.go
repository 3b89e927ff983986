// Package plan implements corvid's logical plan tree (C9): the
// algebraic operators spec.md §4.4 names, independent of how the
// executor happens to interpret them.
package plan

import (
	"fmt"

	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/sqlval"
)

// FieldInfo names one column of a node's output row shape: which
// table alias it came from (empty once projected) and its declared
// type, so downstream nodes can resolve ast.Column references without
// re-consulting the catalog.
type FieldInfo struct {
	Alias string
	Name  string
	Type  sqlval.ColumnType
}

// RowShape is the ordered output column list of a plan node; a flat
// sqlval.Row produced by that node has one value per entry, in order.
type RowShape []FieldInfo

// Resolve finds the row index of col against shape, applying the same
// bare/qualified resolution rule as the semantic analyzer's scope.
func (s RowShape) Resolve(col *ast.Column) (int, error) {
	if col.Qualifier != "" {
		for i, f := range s {
			if f.Alias == col.Qualifier && f.Name == col.Name {
				return i, nil
			}
		}
		return -1, fmt.Errorf("plan: column %s.%s not found", col.Qualifier, col.Name)
	}
	found := -1
	count := 0
	for i, f := range s {
		if f.Name == col.Name {
			found = i
			count++
		}
	}
	if count == 0 {
		return -1, fmt.Errorf("plan: column %s not found", col.Name)
	}
	if count > 1 {
		return -1, fmt.Errorf("plan: column %s is ambiguous", col.Name)
	}
	return found, nil
}

// IndexOfOutputName resolves a bare name against either a source
// column or a projected output name (used by Sort, which may order by
// a SELECT alias).
func (s RowShape) IndexOfOutputName(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Node is implemented by every logical plan operator.
type Node interface {
	Shape() RowShape
	planNode()
}

// SeqScan reads every row of Table (bound to Alias) and applies its
// absorbed single-table Predicate, if any conjunct of the original
// WHERE was pushed down onto it.
type SeqScan struct {
	Table     string
	Alias     string
	Schema    sqlval.Schema
	Predicate ast.Expr // nil if nothing was pushed down
}

func (*SeqScan) planNode() {}
func (s *SeqScan) Shape() RowShape {
	shape := make(RowShape, len(s.Schema.Columns))
	for i, c := range s.Schema.Columns {
		shape[i] = FieldInfo{Alias: s.Alias, Name: c.Name, Type: c.Type}
	}
	return shape
}

// Filter evaluates Predicate over Child's rows, dropping any row for
// which it is not truthy.
type Filter struct {
	Child     Node
	Predicate ast.Expr
}

func (*Filter) planNode()        {}
func (f *Filter) Shape() RowShape { return f.Child.Shape() }

// NestedLoopJoin is corvid's only join strategy: an inner join of Left
// and Right on Predicate, which always stays on the join node (it is
// never itself a push-down candidate since it references both sides).
type NestedLoopJoin struct {
	Left, Right Node
	Predicate   ast.Expr
}

func (*NestedLoopJoin) planNode() {}
func (j *NestedLoopJoin) Shape() RowShape {
	return append(append(RowShape{}, j.Left.Shape()...), j.Right.Shape()...)
}

// ProjectItem is one output expression of a Project node.
type ProjectItem struct {
	Expr    ast.Expr
	OutName string
}

// Project evaluates each Items[i].Expr per input row, producing a row
// of len(Items) values named by Items[i].OutName.
type Project struct {
	Child Node
	Items []ProjectItem
}

func (*Project) planNode() {}
func (p *Project) Shape() RowShape {
	shape := make(RowShape, len(p.Items))
	for i, it := range p.Items {
		shape[i] = FieldInfo{Name: it.OutName}
	}
	return shape
}

// AggSpec is one aggregate computed by an Aggregate node.
type AggSpec struct {
	Kind    ast.AggKind
	Star    bool
	Arg     ast.Expr
	OutName string
}

// Aggregate partitions Child's rows by GroupKey (empty string means a
// single implicit group) and computes Aggs over each partition.
// When GroupKey != "", the output row starts with a column named
// GroupKey carrying the key's value, ahead of the Aggs columns.
type Aggregate struct {
	Child        Node
	GroupKey     string // "" means no GROUP BY
	GroupKeyType sqlval.ColumnType
	Aggs         []AggSpec
}

func (*Aggregate) planNode() {}
func (a *Aggregate) Shape() RowShape {
	var shape RowShape
	if a.GroupKey != "" {
		shape = append(shape, FieldInfo{Name: a.GroupKey, Type: a.GroupKeyType})
	}
	for _, ag := range a.Aggs {
		shape = append(shape, FieldInfo{Name: ag.OutName})
	}
	return shape
}

// Sort fully materializes Child and stably sorts by Key (resolved
// against Child's shape — a source column or a projected alias).
type Sort struct {
	Child Node
	Key   string
	Desc  bool
}

func (*Sort) planNode()        {}
func (s *Sort) Shape() RowShape { return s.Child.Shape() }

// Insert appends each of Rows (an expression tuple whose j-th entry is
// the value for Columns[j]) to Table.
type Insert struct {
	Table   string
	Schema  sqlval.Schema
	Columns []string // the statement's column list, or every schema column in declaration order when it gave none
	Rows    [][]ast.Expr
}

func (*Insert) planNode()        {}
func (*Insert) Shape() RowShape { return nil }

// Update scans Table filtered by Predicate and applies Assignments to
// every matching row.
type Update struct {
	Table       string
	Schema      sqlval.Schema
	Assignments []ast.Assignment
	Predicate   ast.Expr
}

func (*Update) planNode()        {}
func (*Update) Shape() RowShape { return nil }

// Delete scans Table filtered by Predicate and deletes every matching row.
type Delete struct {
	Table     string
	Schema    sqlval.Schema
	Predicate ast.Expr
}

func (*Delete) planNode()        {}
func (*Delete) Shape() RowShape { return nil }

// CreateTable materializes a new schema in the catalog.
type CreateTable struct {
	Schema sqlval.Schema
}

func (*CreateTable) planNode()        {}
func (*CreateTable) Shape() RowShape { return nil }

// DropTable removes Table from the catalog.
type DropTable struct {
	Table string
}

func (*DropTable) planNode()        {}
func (*DropTable) Shape() RowShape { return nil }
