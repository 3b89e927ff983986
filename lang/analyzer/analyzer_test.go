package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/lang/analyzer"
	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/lang/parser"
	"github.com/corvidsql/corvid/sqlval"
)

type fakeCatalog map[string]sqlval.Schema

func (f fakeCatalog) Schema(table string) (sqlval.Schema, bool) {
	s, ok := f[table]
	return s, ok
}

func usersSchema() sqlval.Schema {
	return sqlval.Schema{
		TableName: "users",
		Columns: []sqlval.Column{
			{Name: "id", Type: sqlval.TypeInt, PrimaryKey: true},
			{Name: "name", Type: sqlval.TypeVarchar, MaxLen: 10},
		},
	}
}

func ordersSchema() sqlval.Schema {
	return sqlval.Schema{
		TableName: "orders",
		Columns: []sqlval.Column{
			{Name: "id", Type: sqlval.TypeInt, PrimaryKey: true},
			{Name: "customer", Type: sqlval.TypeInt},
		},
	}
}

func parseOne(t *testing.T, src string) ast.Statement {
	t.Helper()
	stmts, diags, err := parser.New(src).ParseProgram()
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func TestAnalyzeSelectUnknownTable(t *testing.T) {
	cat := fakeCatalog{}
	stmt := parseOne(t, "SELECT * FROM ghost;")
	errs := analyzer.New(cat).Analyze(stmt)
	require.Len(t, errs, 1)
}

func TestAnalyzeSelectKnownTableNoErrors(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema()}
	stmts, diags, err := parser.New("SELECT * FROM users;").ParseProgram()
	require.NoError(t, err)
	require.Empty(t, diags)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.Empty(t, errs)
}

func TestAnalyzeSelectUnknownColumnErrors(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema()}
	stmts, _, err := parser.New("SELECT missing FROM users;").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.Len(t, errs, 1)
}

func TestAnalyzeGroupByRejectsStar(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema()}
	stmts, _, err := parser.New("SELECT * FROM users GROUP BY name;").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeMixedAggregateWithoutGroupByErrors(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema()}
	stmts, _, err := parser.New("SELECT name, COUNT(*) FROM users;").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeInsertArityMismatch(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema()}
	stmts, _, err := parser.New("INSERT INTO users VALUES (1);").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeInsertTypeMismatch(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema()}
	stmts, _, err := parser.New("INSERT INTO users VALUES (1, 99);").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeCreateTableDuplicateColumn(t *testing.T) {
	cat := fakeCatalog{}
	stmts, _, err := parser.New("CREATE TABLE t (id INT, id INT);").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeCreateTableMultiplePrimaryKeysRejected(t *testing.T) {
	cat := fakeCatalog{}
	stmts, _, err := parser.New("CREATE TABLE t (a INT PRIMARY KEY, b INT PRIMARY KEY);").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeForeignKeyUnknownTable(t *testing.T) {
	cat := fakeCatalog{}
	stmts, _, err := parser.New("CREATE TABLE t (a INT, FOREIGN KEY (a) REFERENCES ghost(id));").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeJoinAmbiguousColumn(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema(), "orders": ordersSchema()}
	stmts, _, err := parser.New("SELECT id FROM orders o JOIN users u ON o.id = u.id;").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeUpdateUnknownColumnInSet(t *testing.T) {
	cat := fakeCatalog{"users": usersSchema()}
	stmts, _, err := parser.New("UPDATE users SET missing = 1;").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.NotEmpty(t, errs)
}

func TestAnalyzeDeleteUnknownTable(t *testing.T) {
	cat := fakeCatalog{}
	stmts, _, err := parser.New("DELETE FROM ghost;").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.Len(t, errs, 1)
}

func TestAnalyzeDropTableUnknownTable(t *testing.T) {
	cat := fakeCatalog{}
	stmts, _, err := parser.New("DROP TABLE ghost;").ParseProgram()
	require.NoError(t, err)

	errs := analyzer.New(cat).Analyze(stmts[0])
	require.Len(t, errs, 1)
}
