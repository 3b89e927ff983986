// Package exec implements corvid's pull-based execution engine (C10):
// one Iterator per plan.Node, each pulling rows from its children on
// demand, per spec.md §4.10 (the teacher's sql.RowIter Next/Close
// protocol, generalized). Sort, Aggregate and the right side of a
// nested-loop join materialize their input before producing rows.
package exec

import (
	"fmt"
	"io"
	"sort"

	"github.com/corvidsql/corvid/catalog"
	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/plan"
	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/table"

	"github.com/mitchellh/hashstructure"
)

// Iterator is implemented by every executor node. Next returns
// io.EOF once exhausted, mirroring the teacher's RowIter convention.
type Iterator interface {
	Next() (sqlval.Row, error)
	Close() error
}

// TableOpener resolves a table name to its row-level handle; the
// engine supplies this so exec does not need to know how tables are
// constructed from the catalog and buffer pool.
type TableOpener func(name string) (*table.Table, error)

// Context carries the per-statement state an Iterator tree needs:
// table access, the catalog for DDL/DML, and foreign-key probing.
type Context struct {
	Open TableOpener
	Cat  *catalog.Catalog
}

// Build compiles a plan.Node into an Iterator tree. DDL/DML nodes
// (CreateTable, DropTable, Insert, Update, Delete) execute immediately
// and return an iterator that yields no rows, matching the synchronous
// statement model of spec.md §6.
func Build(node plan.Node, ctx *Context) (Iterator, error) {
	switch n := node.(type) {
	case *plan.SeqScan:
		return newSeqScanIter(n, ctx)
	case *plan.Filter:
		return newFilterIter(n, ctx)
	case *plan.NestedLoopJoin:
		return newJoinIter(n, ctx)
	case *plan.Project:
		return newProjectIter(n, ctx)
	case *plan.Aggregate:
		return newAggregateIter(n, ctx)
	case *plan.Sort:
		return newSortIter(n, ctx)
	case *plan.CreateTable:
		return execCreateTable(n, ctx)
	case *plan.DropTable:
		return execDropTable(n, ctx)
	case *plan.Insert:
		return execInsert(n, ctx)
	case *plan.Update:
		return execUpdate(n, ctx)
	case *plan.Delete:
		return execDelete(n, ctx)
	default:
		return nil, fmt.Errorf("exec: unsupported node %T", node)
	}
}

// doneIter is an Iterator with no rows, used for DDL/DML nodes that
// report success purely through a nil error.
type doneIter struct{}

func (doneIter) Next() (sqlval.Row, error) { return nil, io.EOF }
func (doneIter) Close() error              { return nil }

// --- SeqScan ---

type seqScanIter struct {
	node   *plan.SeqScan
	cursor *table.Cursor
}

func newSeqScanIter(n *plan.SeqScan, ctx *Context) (Iterator, error) {
	t, err := ctx.Open(n.Table)
	if err != nil {
		return nil, err
	}
	return &seqScanIter{node: n, cursor: t.Scan()}, nil
}

func (it *seqScanIter) Next() (sqlval.Row, error) {
	for {
		_, _, row, ok, err := it.cursor.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}
		if it.node.Predicate == nil {
			return row, nil
		}
		v, err := Eval(it.node.Predicate, it.node.Shape(), row)
		if err != nil {
			return nil, err
		}
		if v.Truthy() {
			return row, nil
		}
	}
}

func (it *seqScanIter) Close() error {
	it.cursor.Close()
	return nil
}

// --- Filter ---

type filterIter struct {
	node  *plan.Filter
	child Iterator
}

func newFilterIter(n *plan.Filter, ctx *Context) (Iterator, error) {
	child, err := Build(n.Child, ctx)
	if err != nil {
		return nil, err
	}
	return &filterIter{node: n, child: child}, nil
}

func (it *filterIter) Next() (sqlval.Row, error) {
	shape := it.node.Child.Shape()
	for {
		row, err := it.child.Next()
		if err != nil {
			return nil, err
		}
		v, err := Eval(it.node.Predicate, shape, row)
		if err != nil {
			return nil, err
		}
		if v.Truthy() {
			return row, nil
		}
	}
}

func (it *filterIter) Close() error { return it.child.Close() }

// --- NestedLoopJoin ---

// joinIter materializes the right side once and rescans it for every
// left row (spec.md §4.10's nested-loop rule), holding only the
// current left row plus the fully-buffered right side in memory.
type joinIter struct {
	node      *plan.NestedLoopJoin
	left      Iterator
	rightRows []sqlval.Row
	rightIdx  int
	curLeft   sqlval.Row
	leftShape plan.RowShape
	rightShape plan.RowShape
	started   bool
}

func newJoinIter(n *plan.NestedLoopJoin, ctx *Context) (Iterator, error) {
	left, err := Build(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Build(n.Right, ctx)
	if err != nil {
		left.Close()
		return nil, err
	}
	defer right.Close()
	var rows []sqlval.Row
	for {
		row, err := right.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			left.Close()
			return nil, err
		}
		rows = append(rows, row)
	}
	return &joinIter{
		node: n, left: left, rightRows: rows,
		leftShape: n.Left.Shape(), rightShape: n.Right.Shape(),
		rightIdx: len(rows),
	}, nil
}

func (it *joinIter) Next() (sqlval.Row, error) {
	shape := it.node.Shape()
	for {
		if it.rightIdx >= len(it.rightRows) {
			row, err := it.left.Next()
			if err != nil {
				return nil, err
			}
			it.curLeft = row
			it.rightIdx = 0
		}
		rightRow := it.rightRows[it.rightIdx]
		it.rightIdx++
		combined := append(append(sqlval.Row{}, it.curLeft...), rightRow...)
		v, err := Eval(it.node.Predicate, shape, combined)
		if err != nil {
			return nil, err
		}
		if v.Truthy() {
			return combined, nil
		}
	}
}

func (it *joinIter) Close() error { return it.left.Close() }

// --- Project ---

type projectIter struct {
	node  *plan.Project
	child Iterator
}

func newProjectIter(n *plan.Project, ctx *Context) (Iterator, error) {
	child, err := Build(n.Child, ctx)
	if err != nil {
		return nil, err
	}
	return &projectIter{node: n, child: child}, nil
}

func (it *projectIter) Next() (sqlval.Row, error) {
	row, err := it.child.Next()
	if err != nil {
		return nil, err
	}
	shape := it.node.Child.Shape()
	out := make(sqlval.Row, len(it.node.Items))
	for i, item := range it.node.Items {
		v, err := Eval(item.Expr, shape, row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (it *projectIter) Close() error { return it.child.Close() }

// --- Aggregate ---

type groupAcc struct {
	key      sqlval.Value
	counts   []int64
	sums     []float64
	hasAny   []bool
}

// sameGroupKey decides whether two group-key values belong in the same
// bucket. NULL keys are grouped together, matching GROUP BY's usual
// treatment of NULL as a single group; otherwise it is ordinary value
// equality.
func sameGroupKey(a, b sqlval.Value) (bool, error) {
	if a.IsNull() && b.IsNull() {
		return true, nil
	}
	return a.Equal(b)
}

type aggregateIter struct {
	node *plan.Aggregate
	rows []sqlval.Row
	idx  int
}

func newAggregateIter(n *plan.Aggregate, ctx *Context) (Iterator, error) {
	child, err := Build(n.Child, ctx)
	if err != nil {
		return nil, err
	}
	defer child.Close()
	shape := n.Child.Shape()

	groupOrder := []*groupAcc{}
	groups := map[uint64][]*groupAcc{}

	emit := func(row sqlval.Row) error {
		var keyHash uint64
		var keyVal sqlval.Value
		hasKey := n.GroupKey != ""
		if hasKey {
			idx, err := shape.Resolve(&ast.Column{Name: n.GroupKey})
			if err != nil {
				return err
			}
			keyVal = row[idx]
			h, err := hashstructure.Hash(keyVal, nil)
			if err != nil {
				return err
			}
			keyHash = h
		}

		// hashstructure.Hash is a 64-bit digest, not a proof of equality:
		// chain on the stored key so a collision between two distinct
		// values never merges their groups.
		var acc *groupAcc
		for _, cand := range groups[keyHash] {
			same, err := sameGroupKey(cand.key, keyVal)
			if err != nil {
				return err
			}
			if same {
				acc = cand
				break
			}
		}
		if acc == nil {
			acc = &groupAcc{
				key:    keyVal,
				counts: make([]int64, len(n.Aggs)),
				sums:   make([]float64, len(n.Aggs)),
				hasAny: make([]bool, len(n.Aggs)),
			}
			groups[keyHash] = append(groups[keyHash], acc)
			groupOrder = append(groupOrder, acc)
		}
		for i, spec := range n.Aggs {
			if spec.Star {
				acc.counts[i]++
				continue
			}
			v, err := Eval(spec.Arg, shape, row)
			if err != nil {
				return err
			}
			if v.IsNull() {
				continue
			}
			acc.counts[i]++
			acc.hasAny[i] = true
			switch v.Kind {
			case sqlval.KindInt:
				acc.sums[i] += float64(v.I)
			case sqlval.KindFloat:
				acc.sums[i] += v.F
			}
		}
		return nil
	}

	sawRow := false
	for {
		row, err := child.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		sawRow = true
		if err := emit(row); err != nil {
			return nil, err
		}
	}

	// Zero-group edge case (spec.md §4.10): with no GROUP BY and no
	// input rows, COUNT still reports 0 and SUM/AVG still report NULL
	// over an implicit single empty group.
	if !sawRow && n.GroupKey == "" {
		acc := &groupAcc{
			counts: make([]int64, len(n.Aggs)),
			sums:   make([]float64, len(n.Aggs)),
			hasAny: make([]bool, len(n.Aggs)),
		}
		groups[0] = append(groups[0], acc)
		groupOrder = append(groupOrder, acc)
	}

	var rows []sqlval.Row
	for _, acc := range groupOrder {
		var row sqlval.Row
		if n.GroupKey != "" {
			row = append(row, sqlval.CoerceNumeric(acc.key, n.GroupKeyType))
		}
		for i, spec := range n.Aggs {
			switch spec.Kind {
			case ast.AggCount:
				row = append(row, sqlval.NewInt(acc.counts[i]))
			case ast.AggSum:
				if !acc.hasAny[i] {
					row = append(row, sqlval.Null)
				} else {
					row = append(row, sqlval.NewFloat(acc.sums[i]))
				}
			case ast.AggAvg:
				if !acc.hasAny[i] {
					row = append(row, sqlval.Null)
				} else {
					row = append(row, sqlval.NewFloat(acc.sums[i]/float64(acc.counts[i])))
				}
			}
		}
		rows = append(rows, row)
	}

	return &aggregateIter{node: n, rows: rows}, nil
}

func (it *aggregateIter) Next() (sqlval.Row, error) {
	if it.idx >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.idx]
	it.idx++
	return row, nil
}

func (it *aggregateIter) Close() error { return nil }

// --- Sort ---

type sortIter struct {
	rows []sqlval.Row
	idx  int
}

func newSortIter(n *plan.Sort, ctx *Context) (Iterator, error) {
	child, err := Build(n.Child, ctx)
	if err != nil {
		return nil, err
	}
	defer child.Close()
	shape := n.Child.Shape()
	idx := shape.IndexOfOutputName(n.Key)
	if idx < 0 {
		return nil, fmt.Errorf("exec: ORDER BY column %q not found", n.Key)
	}

	var rows []sqlval.Row
	for {
		row, err := child.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		cmp, ok, err := rows[i][idx].Compare(rows[j][idx])
		if err != nil {
			sortErr = err
			return false
		}
		if !ok {
			return false
		}
		if n.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &sortIter{rows: rows}, nil
}

func (it *sortIter) Next() (sqlval.Row, error) {
	if it.idx >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.idx]
	it.idx++
	return row, nil
}

func (it *sortIter) Close() error { return nil }

// --- DDL/DML ---

func execCreateTable(n *plan.CreateTable, ctx *Context) (Iterator, error) {
	ctx.Cat.CreateTable(n.Schema)
	return doneIter{}, ctx.Cat.Save()
}

func execDropTable(n *plan.DropTable, ctx *Context) (Iterator, error) {
	ctx.Cat.DropTable(n.Table)
	return doneIter{}, ctx.Cat.Save()
}

func execInsert(n *plan.Insert, ctx *Context) (Iterator, error) {
	t, err := ctx.Open(n.Table)
	if err != nil {
		return nil, err
	}

	for _, exprRow := range n.Rows {
		row := make(sqlval.Row, len(n.Schema.Columns))
		for i := range row {
			row[i] = sqlval.Null
		}
		for i, colName := range n.Columns {
			idx := n.Schema.IndexOf(colName)
			v, err := Eval(exprRow[i], nil, nil)
			if err != nil {
				return nil, err
			}
			col := n.Schema.Columns[idx]
			if err := sqlval.AssignableTo(v, col.Type, col.MaxLen); err != nil {
				return nil, err
			}
			row[idx] = sqlval.CoerceNumeric(v, col.Type)
		}

		if pkIdx := n.Schema.PrimaryKeyIndex(); pkIdx >= 0 {
			if err := checkUnique(t, pkIdx, row[pkIdx]); err != nil {
				return nil, err
			}
		}
		for i, col := range n.Schema.Columns {
			if col.ForeignKey == nil || row[i].IsNull() {
				continue
			}
			if err := checkForeignKey(ctx, col.ForeignKey, row[i]); err != nil {
				return nil, err
			}
		}

		if _, _, err := t.Append(row); err != nil {
			return nil, err
		}
	}
	return doneIter{}, nil
}

func execUpdate(n *plan.Update, ctx *Context) (Iterator, error) {
	t, err := ctx.Open(n.Table)
	if err != nil {
		return nil, err
	}
	shape := plan.RowShape{}
	for _, c := range n.Schema.Columns {
		shape = append(shape, plan.FieldInfo{Alias: n.Table, Name: c.Name, Type: c.Type})
	}

	cur := t.Scan()
	defer cur.Close()
	type loc struct {
		page uint32
		slot int
		row  sqlval.Row
	}
	var toUpdate []loc
	for {
		page, slot, row, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if n.Predicate != nil {
			v, err := Eval(n.Predicate, shape, row)
			if err != nil {
				return nil, err
			}
			if !v.Truthy() {
				continue
			}
		}
		toUpdate = append(toUpdate, loc{page, slot, row})
	}
	cur.Close()

	for _, l := range toUpdate {
		newRow := l.row.Clone()
		for _, asg := range n.Assignments {
			idx := n.Schema.IndexOf(asg.Column)
			v, err := Eval(asg.Value, shape, l.row)
			if err != nil {
				return nil, err
			}
			col := n.Schema.Columns[idx]
			if err := sqlval.AssignableTo(v, col.Type, col.MaxLen); err != nil {
				return nil, err
			}
			newRow[idx] = sqlval.CoerceNumeric(v, col.Type)
		}
		if pkIdx := n.Schema.PrimaryKeyIndex(); pkIdx >= 0 {
			eq, _ := newRow[pkIdx].Equal(l.row[pkIdx])
			if !eq {
				if err := checkUnique(t, pkIdx, newRow[pkIdx]); err != nil {
					return nil, err
				}
			}
		}
		if _, _, err := t.UpdateInPlace(l.page, l.slot, newRow); err != nil {
			return nil, err
		}
	}
	return doneIter{}, nil
}

func execDelete(n *plan.Delete, ctx *Context) (Iterator, error) {
	t, err := ctx.Open(n.Table)
	if err != nil {
		return nil, err
	}
	shape := plan.RowShape{}
	for _, c := range n.Schema.Columns {
		shape = append(shape, plan.FieldInfo{Alias: n.Table, Name: c.Name, Type: c.Type})
	}

	cur := t.Scan()
	type loc struct {
		page uint32
		slot int
	}
	var toDelete []loc
	for {
		page, slot, row, ok, err := cur.Next()
		if err != nil {
			cur.Close()
			return nil, err
		}
		if !ok {
			break
		}
		if n.Predicate != nil {
			v, err := Eval(n.Predicate, shape, row)
			if err != nil {
				cur.Close()
				return nil, err
			}
			if !v.Truthy() {
				continue
			}
		}
		toDelete = append(toDelete, loc{page, slot})
	}
	cur.Close()

	for _, l := range toDelete {
		if err := t.Delete(l.page, l.slot); err != nil {
			return nil, err
		}
	}
	return doneIter{}, nil
}

// checkUnique enforces PRIMARY KEY uniqueness via a full scan, since
// corvid keeps no secondary index structures (spec.md §4.9 Non-goals).
func checkUnique(t *table.Table, pkIdx int, v sqlval.Value) error {
	cur := t.Scan()
	defer cur.Close()
	for {
		_, _, row, ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		eq, err := row[pkIdx].Equal(v)
		if err != nil {
			return err
		}
		if eq {
			return sqlval.ErrConstraint.New(fmt.Sprintf("duplicate primary key value %s", v.String()))
		}
	}
}

// checkForeignKey asks the catalog to verify v against ref, scanning
// ref.Table via ctx.Open when the catalog needs a row probe.
func checkForeignKey(ctx *Context, ref *sqlval.ForeignKeyRef, v sqlval.Value) error {
	return ctx.Cat.CheckForeignKey(*ref, v, func(table, column string, v sqlval.Value) (bool, error) {
		return scanForValue(ctx, table, column, v)
	})
}

// scanForValue reports whether some row of table has value v in column.
func scanForValue(ctx *Context, table, column string, v sqlval.Value) (bool, error) {
	sch, _ := ctx.Cat.Schema(table)
	colIdx := sch.IndexOf(column)
	t, err := ctx.Open(table)
	if err != nil {
		return false, err
	}
	cur := t.Scan()
	defer cur.Close()
	for {
		_, _, row, ok, err := cur.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		eq, err := row[colIdx].Equal(v)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
}
