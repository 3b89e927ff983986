package sqlval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/sqlval"
)

func TestValueArithmeticPromotion(t *testing.T) {
	sum, err := sqlval.NewInt(2).Add(sqlval.NewFloat(1.5))
	require.NoError(t, err)
	require.Equal(t, sqlval.KindFloat, sum.Kind)
	require.Equal(t, 3.5, sum.F)

	intSum, err := sqlval.NewInt(2).Add(sqlval.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, sqlval.KindInt, intSum.Kind)
	require.Equal(t, int64(5), intSum.I)
}

func TestValueAddTypeMismatch(t *testing.T) {
	_, err := sqlval.NewInt(2).Add(sqlval.NewVarchar("x"))
	require.Error(t, err)
}

func TestValueDivByZero(t *testing.T) {
	_, err := sqlval.NewInt(1).Div(sqlval.NewInt(0))
	require.Error(t, err)
}

func TestValueDivAlwaysFloat(t *testing.T) {
	v, err := sqlval.NewInt(4).Div(sqlval.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, sqlval.KindFloat, v.Kind)
	require.Equal(t, 2.0, v.F)
}

func TestValueNullPropagation(t *testing.T) {
	v, err := sqlval.Null.Add(sqlval.NewInt(1))
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestValueCompareNullNotOk(t *testing.T) {
	_, ok, err := sqlval.Null.Compare(sqlval.NewInt(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValueEqualNullIsFalse(t *testing.T) {
	eq, err := sqlval.Null.Equal(sqlval.Null)
	require.NoError(t, err)
	require.False(t, eq)
}

func TestValueTruthy(t *testing.T) {
	require.False(t, sqlval.Null.Truthy())
	require.False(t, sqlval.NewInt(0).Truthy())
	require.True(t, sqlval.NewInt(1).Truthy())
	require.False(t, sqlval.NewVarchar("").Truthy())
	require.True(t, sqlval.NewVarchar("x").Truthy())
}

func TestValueCompareStrings(t *testing.T) {
	cmp, ok, err := sqlval.NewVarchar("a").Compare(sqlval.NewVarchar("b"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, -1, cmp)
}
