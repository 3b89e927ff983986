package table_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/catalog"
	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/buffer"
	"github.com/corvidsql/corvid/storage/pager"
	"github.com/corvidsql/corvid/storage/table"
)

func newTestTable(t *testing.T) (*table.Table, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New(t.TempDir() + "/catalog.json")
	sch := sqlval.Schema{
		TableName: "users",
		Columns: []sqlval.Column{
			{Name: "id", Type: sqlval.TypeInt, PrimaryKey: true},
			{Name: "name", Type: sqlval.TypeVarchar, MaxLen: 16},
		},
	}
	cat.CreateTable(sch)
	pg := pager.New(t.TempDir())
	pool := buffer.New(pg, 4, buffer.LRU)
	return table.New("users", sch, cat, pool), cat
}

func TestAppendThenScanReturnsRow(t *testing.T) {
	tb, _ := newTestTable(t)
	_, _, err := tb.Append(sqlval.Row{sqlval.NewInt(1), sqlval.NewVarchar("ann")})
	require.NoError(t, err)

	c := tb.Scan()
	defer c.Close()
	_, _, row, ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), row[0].I)

	_, _, _, ok, err = c.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpdateInPlaceSameSize(t *testing.T) {
	tb, _ := newTestTable(t)
	pid, slot, err := tb.Append(sqlval.Row{sqlval.NewInt(1), sqlval.NewVarchar("ann")})
	require.NoError(t, err)

	newPid, newSlot, err := tb.UpdateInPlace(pid, slot, sqlval.Row{sqlval.NewInt(1), sqlval.NewVarchar("bob")})
	require.NoError(t, err)
	require.Equal(t, pid, newPid)
	require.Equal(t, slot, newSlot)

	c := tb.Scan()
	defer c.Close()
	_, _, row, ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bob", row[1].S)
}

func TestUpdateInPlaceOverflowRelocatesRow(t *testing.T) {
	tb, _ := newTestTable(t)
	pid, slot, err := tb.Append(sqlval.Row{sqlval.NewInt(1), sqlval.NewVarchar("a")})
	require.NoError(t, err)

	newPid, newSlot, err := tb.UpdateInPlace(pid, slot, sqlval.Row{sqlval.NewInt(1), sqlval.NewVarchar("aaaaaaaaaaaaaaaa")})
	require.NoError(t, err)
	require.NotEqual(t, slot, newSlot)

	c := tb.Scan()
	defer c.Close()
	var rows []sqlval.Row
	for {
		_, _, row, ok, err := c.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.Len(t, rows, 1)
	require.Equal(t, "aaaaaaaaaaaaaaaa", rows[0][1].S)
}

func TestDeleteTombstonesRow(t *testing.T) {
	tb, _ := newTestTable(t)
	pid, slot, err := tb.Append(sqlval.Row{sqlval.NewInt(1), sqlval.NewVarchar("ann")})
	require.NoError(t, err)
	require.NoError(t, tb.Delete(pid, slot))

	c := tb.Scan()
	defer c.Close()
	_, _, _, ok, err := c.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAppendSpillsToNewPageWhenFull(t *testing.T) {
	tb, _ := newTestTable(t)
	var count int
	for i := 0; i < 400; i++ {
		_, _, err := tb.Append(sqlval.Row{sqlval.NewInt(int64(i)), sqlval.NewVarchar("0123456789")})
		require.NoError(t, err)
		count++
	}

	c := tb.Scan()
	defer c.Close()
	n := 0
	for {
		_, _, _, ok, err := c.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		n++
	}
	require.Equal(t, count, n)
}
