package sqlval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/sqlval"
)

func testSchema() sqlval.Schema {
	return sqlval.Schema{
		TableName: "users",
		Columns: []sqlval.Column{
			{Name: "id", Type: sqlval.TypeInt, PrimaryKey: true},
			{Name: "name", Type: sqlval.TypeVarchar, MaxLen: 8},
			{Name: "score", Type: sqlval.TypeFloat},
		},
	}
}

func TestSchemaIndexOf(t *testing.T) {
	sch := testSchema()
	require.Equal(t, 0, sch.IndexOf("id"))
	require.Equal(t, 2, sch.IndexOf("score"))
	require.Equal(t, -1, sch.IndexOf("missing"))
}

func TestSchemaPrimaryKeyIndex(t *testing.T) {
	sch := testSchema()
	require.Equal(t, 0, sch.PrimaryKeyIndex())

	sch.Columns[0].PrimaryKey = false
	require.Equal(t, -1, sch.PrimaryKeyIndex())
}

func TestAssignableToVarcharLength(t *testing.T) {
	err := sqlval.AssignableTo(sqlval.NewVarchar("short"), sqlval.TypeVarchar, 8)
	require.NoError(t, err)

	err = sqlval.AssignableTo(sqlval.NewVarchar("way too long"), sqlval.TypeVarchar, 8)
	require.Error(t, err)
}

func TestAssignableToTypeMismatch(t *testing.T) {
	err := sqlval.AssignableTo(sqlval.NewVarchar("x"), sqlval.TypeInt, 0)
	require.Error(t, err)
}

func TestAssignableToNullAlwaysOk(t *testing.T) {
	require.NoError(t, sqlval.AssignableTo(sqlval.Null, sqlval.TypeInt, 0))
}

func TestCoerceNumericWidensIntToFloat(t *testing.T) {
	v := sqlval.CoerceNumeric(sqlval.NewInt(3), sqlval.TypeFloat)
	require.Equal(t, sqlval.KindFloat, v.Kind)
	require.Equal(t, 3.0, v.F)
}
