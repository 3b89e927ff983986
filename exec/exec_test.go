package exec_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/catalog"
	"github.com/corvidsql/corvid/exec"
	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/lang/parser"
	"github.com/corvidsql/corvid/plan"
	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/buffer"
	"github.com/corvidsql/corvid/storage/pager"
	"github.com/corvidsql/corvid/storage/table"
)

type testEnv struct {
	cat    *catalog.Catalog
	pool   *buffer.Pool
	tables map[string]*table.Table
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat := catalog.New(t.TempDir() + "/catalog.json")
	pg := pager.New(t.TempDir())
	pool := buffer.New(pg, 16, buffer.LRU)
	return &testEnv{cat: cat, pool: pool, tables: map[string]*table.Table{}}
}

func (e *testEnv) open(name string) (*table.Table, error) {
	if t, ok := e.tables[name]; ok {
		return t, nil
	}
	sch, ok := e.cat.Schema(name)
	if !ok {
		return nil, sqlval.ErrRuntime.New("no such table " + name)
	}
	t := table.New(name, sch, e.cat, e.pool)
	e.tables[name] = t
	return t, nil
}

func (e *testEnv) ctx() *exec.Context {
	return &exec.Context{Open: e.open, Cat: e.cat}
}

func (e *testEnv) run(t *testing.T, src string) exec.Iterator {
	t.Helper()
	stmts, diags, err := parser.New(src).ParseProgram()
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, stmts, 1)
	n, err := plan.Build(stmts[0], e.cat, plan.PushDownOn)
	require.NoError(t, err)
	it, err := exec.Build(n, e.ctx())
	require.NoError(t, err)
	return it
}

func drain(t *testing.T, it exec.Iterator) []sqlval.Row {
	t.Helper()
	defer it.Close()
	var rows []sqlval.Row
	for {
		row, err := it.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func setupUsers(t *testing.T, e *testEnv) {
	drain(t, e.run(t, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(16));"))
	drain(t, e.run(t, "INSERT INTO users VALUES (1, 'ann'), (2, 'bob');"))
}

func TestExecCreateInsertSelectRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)

	rows := drain(t, e.run(t, "SELECT * FROM users;"))
	require.Len(t, rows, 2)
}

func TestExecSelectWithWhere(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)

	rows := drain(t, e.run(t, "SELECT name FROM users WHERE id = 2;"))
	require.Len(t, rows, 1)
	require.Equal(t, "bob", rows[0][0].S)
}

func TestExecUpdateAppliesToMatchingRows(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)

	drain(t, e.run(t, "UPDATE users SET name = 'carol' WHERE id = 1;"))
	rows := drain(t, e.run(t, "SELECT name FROM users WHERE id = 1;"))
	require.Len(t, rows, 1)
	require.Equal(t, "carol", rows[0][0].S)
}

func TestExecDeleteRemovesMatchingRows(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)

	drain(t, e.run(t, "DELETE FROM users WHERE id = 1;"))
	rows := drain(t, e.run(t, "SELECT * FROM users;"))
	require.Len(t, rows, 1)
}

func TestExecInsertDuplicatePrimaryKeyIsConstraintError(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)

	stmts, _, err := parser.New("INSERT INTO users VALUES (1, 'dup');").ParseProgram()
	require.NoError(t, err)
	n, err := plan.Build(stmts[0], e.cat, plan.PushDownOn)
	require.NoError(t, err)
	_, err = exec.Build(n, e.ctx())
	require.Error(t, err)
}

func TestExecJoinAndAggregateWithGroupBy(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)
	drain(t, e.run(t, "CREATE TABLE orders (id INT PRIMARY KEY, customer INT, FOREIGN KEY (customer) REFERENCES users(id));"))
	drain(t, e.run(t, "INSERT INTO orders VALUES (1, 1), (2, 1), (3, 2);"))

	rows := drain(t, e.run(t, "SELECT customer, COUNT(*) FROM orders GROUP BY customer ORDER BY customer;"))
	require.Len(t, rows, 2)
	require.Equal(t, int64(1), rows[0][0].I)
	require.Equal(t, int64(2), rows[0][1].I)
	require.Equal(t, int64(2), rows[1][0].I)
	require.Equal(t, int64(1), rows[1][1].I)

	joined := drain(t, e.run(t, "SELECT u.name FROM orders o JOIN users u ON o.customer = u.id WHERE o.id = 3;"))
	require.Len(t, joined, 1)
	require.Equal(t, "bob", joined[0][0].S)
}

func TestExecInsertForeignKeyViolation(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)
	drain(t, e.run(t, "CREATE TABLE orders (id INT PRIMARY KEY, customer INT, FOREIGN KEY (customer) REFERENCES users(id));"))

	stmts, _, err := parser.New("INSERT INTO orders VALUES (1, 99);").ParseProgram()
	require.NoError(t, err)
	n, err := plan.Build(stmts[0], e.cat, plan.PushDownOn)
	require.NoError(t, err)
	_, err = exec.Build(n, e.ctx())
	require.Error(t, err)
}

func TestExecAggregateOverEmptyTableYieldsZeroCountAndNullSum(t *testing.T) {
	e := newTestEnv(t)
	drain(t, e.run(t, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(16));"))

	rows := drain(t, e.run(t, "SELECT COUNT(*), SUM(id) FROM users;"))
	require.Len(t, rows, 1)
	require.Equal(t, int64(0), rows[0][0].I)
	require.True(t, rows[0][1].IsNull())
}

func TestExecSortDescending(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)

	rows := drain(t, e.run(t, "SELECT id FROM users ORDER BY id DESC;"))
	require.Len(t, rows, 2)
	require.Equal(t, int64(2), rows[0][0].I)
	require.Equal(t, int64(1), rows[1][0].I)
}

func TestExecDropTableRemovesSchema(t *testing.T) {
	e := newTestEnv(t)
	setupUsers(t, e)
	drain(t, e.run(t, "DROP TABLE users;"))
	_, ok := e.cat.Schema("users")
	require.False(t, ok)
}

func TestEvalArithmeticAndComparison(t *testing.T) {
	shape := plan.RowShape{{Name: "x", Type: sqlval.TypeInt}}
	row := sqlval.Row{sqlval.NewInt(3)}
	expr := &ast.BinOp{Op: ">", Left: &ast.Column{Name: "x"}, Right: &ast.Literal{Value: sqlval.NewInt(2)}}
	v, err := exec.Eval(expr, shape, row)
	require.NoError(t, err)
	require.True(t, v.Truthy())
}

func TestEvalAggregateExprIsRejected(t *testing.T) {
	_, err := exec.Eval(&ast.Agg{Kind: ast.AggCount, Star: true}, nil, nil)
	require.Error(t, err)
}

func TestEvalNotEqualNullOperandIsFalsy(t *testing.T) {
	shape := plan.RowShape{{Name: "x", Type: sqlval.TypeVarchar}}
	row := sqlval.Row{sqlval.Null}
	expr := &ast.BinOp{Op: "!=", Left: &ast.Column{Name: "x"}, Right: &ast.Literal{Value: sqlval.NewVarchar("x")}}
	v, err := exec.Eval(expr, shape, row)
	require.NoError(t, err)
	require.False(t, v.Truthy())
}

func TestExecSelectNotEqualExcludesNullRows(t *testing.T) {
	e := newTestEnv(t)
	drain(t, e.run(t, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(16));"))
	stmts, _, err := parser.New("INSERT INTO users VALUES (1, NULL), (2, 'bob');").ParseProgram()
	require.NoError(t, err)
	n, err := plan.Build(stmts[0], e.cat, plan.PushDownOn)
	require.NoError(t, err)
	_, err = exec.Build(n, e.ctx())
	require.NoError(t, err)

	rows := drain(t, e.run(t, "SELECT id FROM users WHERE name != 'bob';"))
	require.Empty(t, rows)
}

func TestExecAggregateGroupsByValueNotJustHash(t *testing.T) {
	e := newTestEnv(t)
	drain(t, e.run(t, "CREATE TABLE orders (id INT PRIMARY KEY, customer INT);"))
	drain(t, e.run(t, "INSERT INTO orders VALUES (1, 1), (2, 1), (3, 2), (4, 2), (5, 2);"))

	rows := drain(t, e.run(t, "SELECT customer, COUNT(*) FROM orders GROUP BY customer ORDER BY customer;"))
	require.Len(t, rows, 2)
	require.Equal(t, int64(1), rows[0][0].I)
	require.Equal(t, int64(2), rows[0][1].I)
	require.Equal(t, int64(2), rows[1][0].I)
	require.Equal(t, int64(3), rows[1][1].I)
}
