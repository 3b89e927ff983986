// Package table implements corvid's row-level file manager (C4): the
// append/scan/update-in-place/delete API built on top of the page
// manager and buffer pool (spec.md §4.8).
package table

import (
	"github.com/corvidsql/corvid/catalog"
	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/buffer"
	"github.com/corvidsql/corvid/storage/page"
)

// Table is the row-level handle for one catalog table.
type Table struct {
	name   string
	schema sqlval.Schema
	cat    *catalog.Catalog
	pool   *buffer.Pool
}

// New returns a Table handle for an already-cataloged table.
func New(name string, schema sqlval.Schema, cat *catalog.Catalog, pool *buffer.Pool) *Table {
	return &Table{name: name, schema: schema, cat: cat, pool: pool}
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Schema returns the table's schema.
func (t *Table) Schema() sqlval.Schema { return t.schema }

// Append serializes row and inserts it into the first page with
// sufficient free space, allocating a new page if none has room.
// Returns the (pageID, slot) the row was stored at.
func (t *Table) Append(row sqlval.Row) (uint32, int, error) {
	data := page.EncodeRow(row)

	for _, pid := range t.cat.Pages(t.name) {
		pinned, err := t.pool.Fetch(t.name, pid)
		if err != nil {
			return 0, 0, err
		}
		if pinned.Page().CanFit(len(data)) {
			slot, err := pinned.Page().Insert(data)
			pinned.Release(true)
			if err != nil {
				return 0, 0, err
			}
			return pid, slot, nil
		}
		pinned.Release(false)
	}

	pinned, err := t.pool.FetchNew(t.name)
	if err != nil {
		return 0, 0, err
	}
	slot, err := pinned.Page().Insert(data)
	pageID := pinned.Page().ID()
	pinned.Release(true)
	if err != nil {
		return 0, 0, err
	}
	t.cat.AppendPage(t.name, pageID)
	return pageID, slot, nil
}

// UpdateInPlace overwrites the row at (pageID, slot) if the new
// serialization fits in the existing slot; otherwise it tombstones the
// old slot and appends the row elsewhere, returning its new location.
func (t *Table) UpdateInPlace(pageID uint32, slot int, newRow sqlval.Row) (uint32, int, error) {
	data := page.EncodeRow(newRow)

	pinned, err := t.pool.Fetch(t.name, pageID)
	if err != nil {
		return 0, 0, err
	}
	err = pinned.Page().Overwrite(slot, data)
	if err == nil {
		pinned.Release(true)
		return pageID, slot, nil
	}
	if err != page.ErrNoSpace {
		pinned.Release(false)
		return 0, 0, err
	}
	if tombErr := pinned.Page().Tombstone(slot); tombErr != nil {
		pinned.Release(false)
		return 0, 0, tombErr
	}
	pinned.Release(true)

	newPageID, newSlot, err := t.Append(newRow)
	if err != nil {
		return 0, 0, err
	}
	return newPageID, newSlot, nil
}

// Delete tombstones the row at (pageID, slot).
func (t *Table) Delete(pageID uint32, slot int) error {
	pinned, err := t.pool.Fetch(t.name, pageID)
	if err != nil {
		return err
	}
	if err := pinned.Page().Tombstone(slot); err != nil {
		pinned.Release(false)
		return err
	}
	pinned.Release(true)
	return nil
}

// Cursor lazily walks every non-tombstoned row in page-list order,
// holding at most one pinned page at a time: Next releases the
// previous page before pinning the next, per spec.md §5's
// shared-resource policy.
type Cursor struct {
	t       *Table
	pageIDs []uint32
	pageIdx int

	pinned  *buffer.PinnedPage
	slot    int
}

// Scan returns a fresh Cursor over the table's current page list.
func (t *Table) Scan() *Cursor {
	return &Cursor{t: t, pageIDs: append([]uint32(nil), t.cat.Pages(t.name)...)}
}

func (c *Cursor) releaseCurrent() {
	if c.pinned != nil {
		c.pinned.Release(false)
		c.pinned = nil
	}
}

// Next returns the next live (pageID, slot, row), or ok=false at
// end of stream.
func (c *Cursor) Next() (pageID uint32, slot int, row sqlval.Row, ok bool, err error) {
	for {
		if c.pinned == nil {
			if c.pageIdx >= len(c.pageIDs) {
				return 0, 0, nil, false, nil
			}
			pid := c.pageIDs[c.pageIdx]
			c.pageIdx++
			pinned, ferr := c.t.pool.Fetch(c.t.name, pid)
			if ferr != nil {
				return 0, 0, nil, false, ferr
			}
			c.pinned = pinned
			c.slot = 0
		}

		pg := c.pinned.Page()
		if c.slot >= pg.RowCount() {
			c.releaseCurrent()
			continue
		}
		slotIdx := c.slot
		c.slot++
		if !pg.IsLive(slotIdx) {
			continue
		}
		data, rerr := pg.Read(slotIdx)
		if rerr != nil {
			c.releaseCurrent()
			return 0, 0, nil, false, rerr
		}
		r, derr := page.DecodeRow(data, len(c.t.schema.Columns))
		if derr != nil {
			c.releaseCurrent()
			return 0, 0, nil, false, derr
		}
		return c.pinned.Page().ID(), slotIdx, r, true, nil
	}
}

// Close releases any pinned page the cursor still holds. Safe to call
// after Next has already returned ok=false.
func (c *Cursor) Close() {
	c.releaseCurrent()
}
