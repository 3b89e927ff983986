package driver

import (
	"testing"

	stddriver "database/sql/driver"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/sqlval"
)

func TestConvertValueMapsEachKind(t *testing.T) {
	require.Nil(t, convertValue(sqlval.Null))
	require.Equal(t, int64(5), convertValue(sqlval.NewInt(5)))
	require.Equal(t, 1.5, convertValue(sqlval.NewFloat(1.5)))
	require.Equal(t, "x", convertValue(sqlval.NewVarchar("x")))
}

func TestExecResultReportsRowsAffectedNotLastInsertID(t *testing.T) {
	var r stddriver.Result = execResult{rowsAffected: 3}
	n, err := r.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	_, err = r.LastInsertId()
	require.Error(t, err)
}
