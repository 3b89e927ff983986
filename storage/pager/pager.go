// Package pager implements corvid's page manager (C2): physical
// read/allocate of fixed-size pages from per-table files, one file per
// table, exactly one page read or written per I/O (spec.md §4.6).
package pager

import (
	"os"
	"path/filepath"

	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/page"
)

// Pager maps (table, page id) to a byte offset inside a table's file
// under dir, and performs the raw reads/writes/allocations.
type Pager struct {
	dir   string
	files map[string]*os.File
}

// New creates a Pager rooted at dir (created on first use).
func New(dir string) *Pager {
	return &Pager{dir: dir, files: map[string]*os.File{}}
}

func (p *Pager) filePath(table string) string {
	return filepath.Join(p.dir, table+".tbl")
}

func (p *Pager) file(table string) (*os.File, error) {
	if f, ok := p.files[table]; ok {
		return f, nil
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, sqlval.ErrIO.New(err.Error())
	}
	f, err := os.OpenFile(p.filePath(table), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, sqlval.ErrIO.New(err.Error())
	}
	p.files[table] = f
	return f, nil
}

// ReadPage reads exactly one 4KB page image for (table, pageID).
func (p *Pager) ReadPage(table string, pageID uint32) (*page.Page, error) {
	f, err := p.file(table)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, page.Size)
	off := int64(pageID) * int64(page.Size)
	if _, err := f.ReadAt(buf, off); err != nil {
		return nil, sqlval.ErrIO.New(err.Error())
	}
	pg, err := page.FromBytes(buf)
	if err != nil {
		return nil, sqlval.ErrIO.New(err.Error())
	}
	return pg, nil
}

// AllocatePage extends table's file by one page, initializes it, and
// returns its new id (position in the file).
func (p *Pager) AllocatePage(table string) (*page.Page, uint32, error) {
	f, err := p.file(table)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, 0, sqlval.ErrIO.New(err.Error())
	}
	pageID := uint32(info.Size() / int64(page.Size))
	pg := page.New(pageID)
	if err := p.WritePage(table, pg); err != nil {
		return nil, 0, err
	}
	return pg, pageID, nil
}

// WritePage flushes pg's full 4KB image to its slot in table's file.
func (p *Pager) WritePage(table string, pg *page.Page) error {
	f, err := p.file(table)
	if err != nil {
		return err
	}
	off := int64(pg.ID()) * int64(page.Size)
	if _, err := f.WriteAt(pg.Bytes(), off); err != nil {
		return sqlval.ErrIO.New(err.Error())
	}
	return nil
}

// Close releases every open table file handle.
func (p *Pager) Close() error {
	var firstErr error
	for _, f := range p.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = sqlval.ErrIO.New(err.Error())
		}
	}
	return firstErr
}
