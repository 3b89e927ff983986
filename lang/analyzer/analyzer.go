// Package analyzer implements corvid's semantic analysis pass (C8):
// it walks a parsed ast.Statement against the catalog and reports
// every cheaply-detectable SemanticError before planning begins.
package analyzer

import (
	"fmt"

	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/sqlval"
)

// CatalogReader is the read-only slice of catalog.Catalog the analyzer
// needs; kept as a narrow interface so tests can fake it.
type CatalogReader interface {
	Schema(table string) (sqlval.Schema, bool)
}

// Error is one semantic diagnostic; analysis continues after recording
// one, so a single statement can surface several at once.
type Error struct {
	Message string
}

func (e Error) Error() string { return e.Message }

// Analyzer validates statements against a catalog.
type Analyzer struct {
	cat CatalogReader
}

// New creates an Analyzer bound to cat.
func New(cat CatalogReader) *Analyzer {
	return &Analyzer{cat: cat}
}

// scope maps an effective alias to the schema it resolves to, built
// from a statement's FROM/JOIN clause.
type scope struct {
	aliases map[string]sqlval.Schema
	order   []string
}

func newScope() *scope { return &scope{aliases: map[string]sqlval.Schema{}} }

func (s *scope) add(alias string, sch sqlval.Schema) {
	s.aliases[alias] = sch
	s.order = append(s.order, alias)
}

// resolveColumn finds which alias(es) own a bare column name, or
// validates a qualified one. Returns the owning alias and the column
// index, or an error.
func (s *scope) resolveColumn(c *ast.Column) (alias string, idx int, err error) {
	if c.Qualifier != "" {
		sch, ok := s.aliases[c.Qualifier]
		if !ok {
			return "", 0, Error{fmt.Sprintf("unknown table alias %q", c.Qualifier)}
		}
		idx = sch.IndexOf(c.Name)
		if idx < 0 {
			return "", 0, Error{fmt.Sprintf("column %q not found in %q", c.Name, c.Qualifier)}
		}
		return c.Qualifier, idx, nil
	}
	var found []string
	var foundIdx int
	for _, a := range s.order {
		if i := s.aliases[a].IndexOf(c.Name); i >= 0 {
			found = append(found, a)
			foundIdx = i
		}
	}
	switch len(found) {
	case 0:
		return "", 0, Error{fmt.Sprintf("column %q not found", c.Name)}
	case 1:
		return found[0], foundIdx, nil
	default:
		return "", 0, Error{fmt.Sprintf("column %q is ambiguous across tables %v", c.Name, found)}
	}
}

// Analyze validates stmt, returning every error found. An empty slice
// means the statement is semantically sound.
func (a *Analyzer) Analyze(stmt ast.Statement) []error {
	switch s := stmt.(type) {
	case *ast.CreateTable:
		return a.analyzeCreateTable(s)
	case *ast.Insert:
		return a.analyzeInsert(s)
	case *ast.Select:
		return a.analyzeSelect(s)
	case *ast.Update:
		return a.analyzeUpdate(s)
	case *ast.Delete:
		return a.analyzeDelete(s)
	case *ast.DropTable:
		return a.analyzeDropTable(s)
	default:
		return []error{Error{"unknown statement kind"}}
	}
}

func (a *Analyzer) analyzeCreateTable(s *ast.CreateTable) []error {
	var errs []error
	if _, exists := a.cat.Schema(s.Table); exists {
		errs = append(errs, Error{fmt.Sprintf("table %q already exists", s.Table)})
	}
	seen := map[string]bool{}
	pkCount := 0
	for _, c := range s.Columns {
		if seen[c.Name] {
			errs = append(errs, Error{fmt.Sprintf("duplicate column %q", c.Name)})
		}
		seen[c.Name] = true
		if c.PrimaryKey {
			pkCount++
		}
	}
	for _, tc := range s.Constraints {
		if tc.PrimaryKeyCol != "" {
			if !seen[tc.PrimaryKeyCol] {
				errs = append(errs, Error{fmt.Sprintf("PRIMARY KEY references unknown column %q", tc.PrimaryKeyCol)})
			} else {
				pkCount++
			}
		}
		if tc.ForeignKeyCol != "" {
			if !seen[tc.ForeignKeyCol] {
				errs = append(errs, Error{fmt.Sprintf("FOREIGN KEY references unknown local column %q", tc.ForeignKeyCol)})
			}
			refSchema, ok := a.cat.Schema(tc.RefTable)
			if !ok {
				errs = append(errs, Error{fmt.Sprintf("FOREIGN KEY references unknown table %q", tc.RefTable)})
			} else if refSchema.IndexOf(tc.RefColumn) < 0 {
				errs = append(errs, Error{fmt.Sprintf("FOREIGN KEY references unknown column %q.%q", tc.RefTable, tc.RefColumn)})
			}
		}
	}
	if pkCount > 1 {
		errs = append(errs, Error{"at most one PRIMARY KEY column is allowed"})
	}
	return errs
}

func (a *Analyzer) analyzeDropTable(s *ast.DropTable) []error {
	if _, exists := a.cat.Schema(s.Table); !exists {
		return []error{Error{fmt.Sprintf("table %q does not exist", s.Table)}}
	}
	return nil
}

func (a *Analyzer) analyzeInsert(s *ast.Insert) []error {
	var errs []error
	sch, ok := a.cat.Schema(s.Table)
	if !ok {
		return []error{Error{fmt.Sprintf("table %q does not exist", s.Table)}}
	}

	targetCols := sch.Columns
	if len(s.Columns) > 0 {
		targetCols = nil
		for _, name := range s.Columns {
			idx := sch.IndexOf(name)
			if idx < 0 {
				errs = append(errs, Error{fmt.Sprintf("unknown column %q in INSERT column list", name)})
				continue
			}
			targetCols = append(targetCols, sch.Columns[idx])
		}
	}

	for _, row := range s.Rows {
		if len(row) != len(targetCols) {
			errs = append(errs, Error{fmt.Sprintf("INSERT has %d values but %d columns are targeted", len(row), len(targetCols))})
			continue
		}
		for i, e := range row {
			lit, ok := e.(*ast.Literal)
			if !ok {
				// Non-literal expressions in VALUES are evaluated at
				// execution time; only literal arity/type is checked here.
				continue
			}
			if i < len(targetCols) {
				if err := sqlval.AssignableTo(lit.Value, targetCols[i].Type, targetCols[i].MaxLen); err != nil {
					errs = append(errs, Error{err.Error()})
				}
			}
		}
	}
	return errs
}

func (a *Analyzer) buildScope(s *ast.Select) (*scope, []error) {
	var errs []error
	sc := newScope()
	fromSchema, ok := a.cat.Schema(s.From.Table)
	if !ok {
		errs = append(errs, Error{fmt.Sprintf("table %q does not exist", s.From.Table)})
	} else {
		sc.add(s.From.EffectiveAlias(), fromSchema)
	}
	if s.Join != nil {
		joinSchema, ok := a.cat.Schema(s.Join.Table)
		if !ok {
			errs = append(errs, Error{fmt.Sprintf("table %q does not exist", s.Join.Table)})
		} else {
			sc.add(s.Join.EffectiveAlias(), joinSchema)
		}
	}
	return sc, errs
}

func (a *Analyzer) analyzeSelect(s *ast.Select) []error {
	sc, errs := a.buildScope(s)

	var checkExpr func(e ast.Expr, allowAgg bool)
	checkExpr = func(e ast.Expr, allowAgg bool) {
		switch ex := e.(type) {
		case *ast.Column:
			if _, _, err := sc.resolveColumn(ex); err != nil {
				errs = append(errs, err)
			}
		case *ast.BinOp:
			checkExpr(ex.Left, false)
			checkExpr(ex.Right, false)
		case *ast.Agg:
			if !allowAgg {
				errs = append(errs, Error{"aggregate functions may only appear in the select list"})
				return
			}
			if !ex.Star {
				if _, ok := ex.Arg.(*ast.Column); !ok {
					errs = append(errs, Error{"aggregate arguments must be a scalar column or *"})
				} else {
					checkExpr(ex.Arg, false)
				}
			}
		case *ast.Literal:
		}
	}

	hasAgg := false
	for _, item := range s.Columns {
		if item.Star {
			continue
		}
		if _, ok := item.Expr.(*ast.Agg); ok {
			hasAgg = true
		}
		checkExpr(item.Expr, true)
	}

	if s.Join != nil {
		checkExpr(s.On, false)
	}
	if s.Where != nil {
		checkExpr(s.Where, false)
	}

	if s.GroupBy != "" {
		hasAgg = true
		if _, _, err := sc.resolveColumn(&ast.Column{Name: s.GroupBy}); err != nil {
			errs = append(errs, err)
		}
		for _, item := range s.Columns {
			if item.Star {
				errs = append(errs, Error{"SELECT * is not allowed with GROUP BY"})
				continue
			}
			if _, isAgg := item.Expr.(*ast.Agg); isAgg {
				continue
			}
			if col, ok := item.Expr.(*ast.Column); ok && col.Name == s.GroupBy {
				continue
			}
			errs = append(errs, Error{"non-aggregated SELECT expressions must reference the GROUP BY column"})
		}
	}
	if hasAgg && s.GroupBy == "" {
		for _, item := range s.Columns {
			if item.Star {
				errs = append(errs, Error{"SELECT * cannot be combined with an aggregate"})
				continue
			}
			if _, isAgg := item.Expr.(*ast.Agg); !isAgg {
				errs = append(errs, Error{"a SELECT list mixing scalar columns and aggregates requires GROUP BY"})
			}
		}
	}

	if s.OrderBy != nil {
		if _, _, err := sc.resolveColumn(&ast.Column{Name: s.OrderBy.Column}); err != nil {
			// ORDER BY may also reference a projected alias; that is
			// resolved at plan time once output columns are known, so
			// only report this as an error when the name matches
			// neither a source column nor any select-list alias.
			matchesAlias := false
			for _, item := range s.Columns {
				if item.Alias == s.OrderBy.Column {
					matchesAlias = true
				}
			}
			if !matchesAlias {
				errs = append(errs, err)
			}
		}
	}

	return errs
}

func (a *Analyzer) analyzeUpdate(s *ast.Update) []error {
	var errs []error
	sch, ok := a.cat.Schema(s.Table)
	if !ok {
		return []error{Error{fmt.Sprintf("table %q does not exist", s.Table)}}
	}
	sc := newScope()
	sc.add(s.Table, sch)

	for _, asg := range s.Assignments {
		idx := sch.IndexOf(asg.Column)
		if idx < 0 {
			errs = append(errs, Error{fmt.Sprintf("unknown column %q in SET", asg.Column)})
			continue
		}
		if lit, ok := asg.Value.(*ast.Literal); ok {
			col := sch.Columns[idx]
			if err := sqlval.AssignableTo(lit.Value, col.Type, col.MaxLen); err != nil {
				errs = append(errs, Error{err.Error()})
			}
		}
	}
	if s.Where != nil {
		errs = append(errs, checkWhereAgainstScope(sc, s.Where)...)
	}
	return errs
}

func (a *Analyzer) analyzeDelete(s *ast.Delete) []error {
	sch, ok := a.cat.Schema(s.Table)
	if !ok {
		return []error{Error{fmt.Sprintf("table %q does not exist", s.Table)}}
	}
	sc := newScope()
	sc.add(s.Table, sch)
	if s.Where != nil {
		return checkWhereAgainstScope(sc, s.Where)
	}
	return nil
}

func checkWhereAgainstScope(sc *scope, e ast.Expr) []error {
	var errs []error
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch ex := e.(type) {
		case *ast.Column:
			if _, _, err := sc.resolveColumn(ex); err != nil {
				errs = append(errs, err)
			}
		case *ast.BinOp:
			walk(ex.Left)
			walk(ex.Right)
		}
	}
	walk(e)
	return errs
}
