package plan

import (
	"fmt"

	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/sqlval"
)

// CatalogReader is the read-only catalog slice the planner needs.
type CatalogReader interface {
	Schema(table string) (sqlval.Schema, bool)
}

// PushDown toggles predicate push-down (spec.md §4.4); disabling it
// keeps every WHERE conjunct in a Filter above the scans, so the same
// query can be planned both ways and the two plan shapes compared.
type PushDown bool

const (
	PushDownOn  PushDown = true
	PushDownOff PushDown = false
)

// Build compiles a statement into a logical plan against cat.
func Build(stmt ast.Statement, cat CatalogReader, pd PushDown) (Node, error) {
	switch s := stmt.(type) {
	case *ast.CreateTable:
		return buildCreateTable(s)
	case *ast.DropTable:
		return &DropTable{Table: s.Table}, nil
	case *ast.Insert:
		return buildInsert(s, cat)
	case *ast.Select:
		return buildSelect(s, cat, pd)
	case *ast.Update:
		return buildUpdate(s, cat)
	case *ast.Delete:
		return buildDelete(s, cat)
	default:
		return nil, fmt.Errorf("plan: unsupported statement %T", stmt)
	}
}

func buildCreateTable(s *ast.CreateTable) (Node, error) {
	sch := sqlval.Schema{TableName: s.Table}
	for _, c := range s.Columns {
		sch.Columns = append(sch.Columns, sqlval.Column{
			Name: c.Name, Type: c.Type, MaxLen: c.MaxLen, PrimaryKey: c.PrimaryKey,
		})
	}
	for _, tc := range s.Constraints {
		if tc.PrimaryKeyCol != "" {
			idx := sch.IndexOf(tc.PrimaryKeyCol)
			if idx >= 0 {
				sch.Columns[idx].PrimaryKey = true
			}
		}
		if tc.ForeignKeyCol != "" {
			idx := sch.IndexOf(tc.ForeignKeyCol)
			if idx >= 0 {
				sch.Columns[idx].ForeignKey = &sqlval.ForeignKeyRef{Table: tc.RefTable, Column: tc.RefColumn}
			}
		}
	}
	return &CreateTable{Schema: sch}, nil
}

func buildInsert(s *ast.Insert, cat CatalogReader) (Node, error) {
	sch, ok := cat.Schema(s.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table %q does not exist", s.Table)
	}
	cols := s.Columns
	if len(cols) == 0 {
		for _, c := range sch.Columns {
			cols = append(cols, c.Name)
		}
	}
	return &Insert{Table: s.Table, Schema: sch, Columns: cols, Rows: s.Rows}, nil
}

func buildUpdate(s *ast.Update, cat CatalogReader) (Node, error) {
	sch, ok := cat.Schema(s.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table %q does not exist", s.Table)
	}
	return &Update{Table: s.Table, Schema: sch, Assignments: s.Assignments, Predicate: s.Where}, nil
}

func buildDelete(s *ast.Delete, cat CatalogReader) (Node, error) {
	sch, ok := cat.Schema(s.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table %q does not exist", s.Table)
	}
	return &Delete{Table: s.Table, Schema: sch, Predicate: s.Where}, nil
}

func buildSelect(s *ast.Select, cat CatalogReader, pd PushDown) (Node, error) {
	leftSchema, ok := cat.Schema(s.From.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table %q does not exist", s.From.Table)
	}
	leftAlias := s.From.EffectiveAlias()
	leftScan := &SeqScan{Table: s.From.Table, Alias: leftAlias, Schema: leftSchema}

	var root Node = leftScan
	if s.Join != nil {
		rightSchema, ok := cat.Schema(s.Join.Table)
		if !ok {
			return nil, fmt.Errorf("plan: table %q does not exist", s.Join.Table)
		}
		rightAlias := s.Join.EffectiveAlias()
		rightScan := &SeqScan{Table: s.Join.Table, Alias: rightAlias, Schema: rightSchema}
		root = &NestedLoopJoin{Left: leftScan, Right: rightScan, Predicate: s.On}
	}

	if s.Where != nil {
		conjuncts := splitConjuncts(s.Where)
		var residual []ast.Expr
		for _, c := range conjuncts {
			aliases := referencedAliases(c)
			if pd == PushDownOn && len(aliases) == 1 {
				var only string
				for a := range aliases {
					only = a
				}
				if absorb(root, only, c) {
					continue
				}
			}
			residual = append(residual, c)
		}
		if len(residual) > 0 {
			root = &Filter{Child: root, Predicate: andAll(residual)}
		}
	}

	hasAgg := false
	for _, item := range s.Columns {
		if _, ok := item.Expr.(*ast.Agg); ok {
			hasAgg = true
		}
	}
	if s.GroupBy != "" {
		hasAgg = true
	}

	if hasAgg {
		shape := root.Shape()
		var groupType sqlval.ColumnType
		if s.GroupBy != "" {
			idx := shape.IndexOfOutputName(s.GroupBy)
			if idx < 0 {
				return nil, fmt.Errorf("plan: GROUP BY column %q not found", s.GroupBy)
			}
			groupType = shape[idx].Type
		}
		agg := &Aggregate{Child: root, GroupKey: s.GroupBy, GroupKeyType: groupType}
		for _, item := range s.Columns {
			out := outputName(item)
			if a, ok := item.Expr.(*ast.Agg); ok {
				agg.Aggs = append(agg.Aggs, AggSpec{Kind: a.Kind, Star: a.Star, Arg: a.Arg, OutName: out})
			} else if col, ok := item.Expr.(*ast.Column); ok && col.Name == s.GroupBy {
				// grouping column passed through; handled specially by
				// the executor via GroupKey, not as an AggSpec.
				continue
			}
		}
		root = agg
	}

	sortAboveProject := false
	if s.OrderBy != nil {
		if !hasAgg && root.Shape().IndexOfOutputName(s.OrderBy.Column) < 0 {
			// A SELECT alias only exists in the projection's output.
			sortAboveProject = true
		} else {
			root = &Sort{Child: root, Key: s.OrderBy.Column, Desc: s.OrderBy.Desc}
		}
	}

	if !hasAgg {
		items := make([]ProjectItem, 0, len(s.Columns))
		shape := root.Shape()
		if len(s.Columns) == 1 && s.Columns[0].Star {
			for _, f := range shape {
				items = append(items, ProjectItem{Expr: &ast.Column{Qualifier: f.Alias, Name: f.Name}, OutName: f.Name})
			}
		} else {
			for _, item := range s.Columns {
				items = append(items, ProjectItem{Expr: item.Expr, OutName: outputName(item)})
			}
		}
		root = &Project{Child: root, Items: items}
	} else {
		// Build the final projection over the Aggregate's shape,
		// re-expressed in terms of its output column names so it works
		// whether or not a Sort sits in between.
		items := make([]ProjectItem, 0, len(s.Columns))
		for _, item := range s.Columns {
			out := outputName(item)
			items = append(items, ProjectItem{Expr: &ast.Column{Name: out}, OutName: out})
		}
		root = &Project{Child: root, Items: items}
	}

	if sortAboveProject {
		root = &Sort{Child: root, Key: s.OrderBy.Column, Desc: s.OrderBy.Desc}
	}

	return root, nil
}

func outputName(item ast.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return item.Expr.String()
}

// splitConjuncts splits e on top-level AND into its conjuncts,
// preserving left-to-right order (spec.md §4.4 tie-break rule).
func splitConjuncts(e ast.Expr) []ast.Expr {
	if b, ok := e.(*ast.BinOp); ok && b.Op == "AND" {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []ast.Expr{e}
}

// andAll re-combines conjuncts into a single AND-tree, preserving order.
func andAll(conjuncts []ast.Expr) ast.Expr {
	out := conjuncts[0]
	for _, c := range conjuncts[1:] {
		out = &ast.BinOp{Op: "AND", Left: out, Right: c}
	}
	return out
}

// referencedAliases collects every table alias a column expression
// within e refers to; bare columns all contribute the single marker
// "" (the caller only cares about the singleton case, and absorb then
// pushes an all-bare conjunct onto the one scan that owns every bare
// column it names).
func referencedAliases(e ast.Expr) map[string]bool {
	out := map[string]bool{}
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch ex := e.(type) {
		case *ast.Column:
			if ex.Qualifier != "" {
				out[ex.Qualifier] = true
			} else {
				out[""] = true // marker: at least one unqualified reference
			}
		case *ast.BinOp:
			walk(ex.Left)
			walk(ex.Right)
		}
	}
	walk(e)
	return out
}

// absorb attempts to push conjunct down onto the SeqScan reachable
// under node whose alias matches alias (descending only through
// NestedLoopJoin nodes, since only leaf scans can absorb a predicate).
// An empty-string alias (only unqualified columns) absorbs into
// whichever single scan under node owns every column name it uses.
func absorb(node Node, alias string, conjunct ast.Expr) bool {
	switch n := node.(type) {
	case *SeqScan:
		if alias != "" && alias != n.Alias {
			return false
		}
		if alias == "" {
			shape := n.Shape()
			for _, name := range columnNamesIn(conjunct) {
				if _, err := shape.Resolve(&ast.Column{Name: name}); err != nil {
					return false
				}
			}
		}
		if n.Predicate == nil {
			n.Predicate = conjunct
		} else {
			n.Predicate = &ast.BinOp{Op: "AND", Left: n.Predicate, Right: conjunct}
		}
		return true
	case *NestedLoopJoin:
		return absorb(n.Left, alias, conjunct) || absorb(n.Right, alias, conjunct)
	default:
		return false
	}
}

// columnNamesIn returns the names of every bare Column found in e,
// used only to test whether an unqualified conjunct belongs to a
// particular scan.
func columnNamesIn(e ast.Expr) []string {
	switch ex := e.(type) {
	case *ast.Column:
		return []string{ex.Name}
	case *ast.BinOp:
		return append(columnNamesIn(ex.Left), columnNamesIn(ex.Right)...)
	default:
		return nil
	}
}
