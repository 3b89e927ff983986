package page_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/page"
)

func TestInsertAndReadRoundTrip(t *testing.T) {
	p := page.New(1)
	data := page.EncodeRow(sqlval.Row{sqlval.NewInt(42), sqlval.NewVarchar("ann")})
	slot, err := p.Insert(data)
	require.NoError(t, err)
	require.Equal(t, 0, slot)

	got, err := p.Read(slot)
	require.NoError(t, err)
	row, err := page.DecodeRow(got, 2)
	require.NoError(t, err)
	require.Equal(t, int64(42), row[0].I)
	require.Equal(t, "ann", row[1].S)
}

func TestFromBytesRejectsBadMagic(t *testing.T) {
	garbage := make([]byte, page.Size)
	_, err := page.FromBytes(garbage)
	require.Error(t, err)
}

func TestFromBytesRoundTripsThroughBytes(t *testing.T) {
	p := page.New(5)
	_, err := p.Insert(page.EncodeRow(sqlval.Row{sqlval.NewInt(1)}))
	require.NoError(t, err)

	reloaded, err := page.FromBytes(p.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint32(5), reloaded.ID())
	require.Equal(t, 1, reloaded.RowCount())
}

func TestInsertFailsWhenFull(t *testing.T) {
	p := page.New(1)
	big := make([]byte, page.Size)
	_, err := p.Insert(big)
	require.ErrorIs(t, err, page.ErrNoSpace)
}

func TestTombstoneHidesRowButKeepsSlot(t *testing.T) {
	p := page.New(1)
	slot, err := p.Insert(page.EncodeRow(sqlval.Row{sqlval.NewInt(1)}))
	require.NoError(t, err)
	require.True(t, p.IsLive(slot))

	require.NoError(t, p.Tombstone(slot))
	require.False(t, p.IsLive(slot))
	_, err = p.Read(slot)
	require.Error(t, err)
}

func TestOverwriteInPlaceWhenNotLarger(t *testing.T) {
	p := page.New(1)
	slot, err := p.Insert(page.EncodeRow(sqlval.Row{sqlval.NewVarchar("longer")}))
	require.NoError(t, err)

	require.NoError(t, p.Overwrite(slot, page.EncodeRow(sqlval.Row{sqlval.NewVarchar("sh")})))
	got, err := p.Read(slot)
	require.NoError(t, err)
	row, err := page.DecodeRow(got, 1)
	require.NoError(t, err)
	require.Equal(t, "sh", row[0].S)
}

func TestOverwriteLargerFailsWithNoSpace(t *testing.T) {
	p := page.New(1)
	slot, err := p.Insert(page.EncodeRow(sqlval.Row{sqlval.NewVarchar("sh")}))
	require.NoError(t, err)

	err = p.Overwrite(slot, page.EncodeRow(sqlval.Row{sqlval.NewVarchar("much longer string")}))
	require.ErrorIs(t, err, page.ErrNoSpace)
}

func TestDecodeRowTruncatedIsError(t *testing.T) {
	_, err := page.DecodeRow([]byte{1, 2, 3}, 1)
	require.Error(t, err)
}

func TestEncodeDecodeNullAndFloat(t *testing.T) {
	data := page.EncodeRow(sqlval.Row{sqlval.Null, sqlval.NewFloat(3.5)})
	row, err := page.DecodeRow(data, 2)
	require.NoError(t, err)
	require.True(t, row[0].IsNull())
	require.Equal(t, 3.5, row[1].F)
}
