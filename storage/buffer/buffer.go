// Package buffer implements corvid's bounded buffer pool (C3): a
// fixed-capacity cache of pages keyed by (table, page id), with pin
// counts and a selectable LRU or FIFO replacement policy (spec.md §4.7).
package buffer

import (
	"container/list"
	"fmt"

	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/page"
	"github.com/corvidsql/corvid/storage/pager"
)

// Policy selects the eviction strategy used when the pool is full.
type Policy int

const (
	// LRU evicts the least-recently-accessed unpinned frame.
	LRU Policy = iota
	// FIFO evicts the longest-resident unpinned frame, ignoring access
	// recency.
	FIFO
)

type frameKey struct {
	table  string
	pageID uint32
}

type frame struct {
	key      frameKey
	page     *page.Page
	pinCount int
	dirty    bool
	elem     *list.Element
}

// Pool is a bounded, pinned-page cache in front of a Pager.
type Pool struct {
	capacity int
	policy   Policy
	pager    *pager.Pager
	frames   map[frameKey]*frame
	order    *list.List // elements are *frame; front = eviction candidate first
}

// New creates a Pool of the given capacity and policy, backed by p.
// Capacity must be at least 1.
func New(p *pager.Pager, capacity int, policy Policy) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		capacity: capacity,
		policy:   policy,
		pager:    p,
		frames:   map[frameKey]*frame{},
		order:    list.New(),
	}
}

// PinnedPage is a scoped handle to a cached page. Callers must call
// Release exactly once; the page's backing memory is exclusively
// owned by the Pool and must never be retained past Release.
type PinnedPage struct {
	pool  *Pool
	frame *frame
}

// Page returns the underlying 4KB page, valid until Release.
func (h *PinnedPage) Page() *page.Page { return h.frame.page }

// Release unpins the page, marking it dirty if the caller wrote to it.
func (h *PinnedPage) Release(dirty bool) {
	h.frame.pinCount--
	if h.frame.pinCount < 0 {
		h.frame.pinCount = 0
	}
	if dirty {
		h.frame.dirty = true
	}
}

// Fetch pins and returns the page for (table, pageID), reading it from
// the pager on a cache miss. On a miss with a full pool, it evicts an
// unpinned victim per policy, flushing it first if dirty. If every
// frame is pinned, it fails with BufferExhausted and the pool's state
// is left unchanged.
func (p *Pool) Fetch(table string, pageID uint32) (*PinnedPage, error) {
	key := frameKey{table, pageID}
	if f, ok := p.frames[key]; ok {
		f.pinCount++
		if p.policy == LRU {
			p.order.MoveToBack(f.elem)
		}
		return &PinnedPage{pool: p, frame: f}, nil
	}

	if len(p.frames) >= p.capacity {
		if err := p.evictOne(); err != nil {
			return nil, err
		}
	}

	pg, err := p.pager.ReadPage(table, pageID)
	if err != nil {
		return nil, err
	}
	f := &frame{key: key, page: pg, pinCount: 1}
	f.elem = p.order.PushBack(f)
	p.frames[key] = f
	return &PinnedPage{pool: p, frame: f}, nil
}

// FetchNew pins and returns a newly allocated page for table,
// following the same eviction discipline as Fetch on a full pool.
func (p *Pool) FetchNew(table string) (*PinnedPage, error) {
	if len(p.frames) >= p.capacity {
		if err := p.evictOne(); err != nil {
			return nil, err
		}
	}
	pg, pageID, err := p.pager.AllocatePage(table)
	if err != nil {
		return nil, err
	}
	key := frameKey{table, pageID}
	f := &frame{key: key, page: pg, pinCount: 1}
	f.elem = p.order.PushBack(f)
	p.frames[key] = f
	return &PinnedPage{pool: p, frame: f}, nil
}

// evictOne removes one unpinned frame from the cache, in policy order,
// flushing it first if dirty. Both LRU and FIFO keep `order` as a
// list from least- to most-recently-touched: LRU re-positions a frame
// to the back on every Fetch hit, FIFO never does, so scanning from
// the front always finds the correct policy victim.
func (p *Pool) evictOne() error {
	for e := p.order.Front(); e != nil; e = e.Next() {
		f := e.Value.(*frame)
		if f.pinCount > 0 {
			continue
		}
		if f.dirty {
			if err := p.pager.WritePage(f.key.table, f.page); err != nil {
				return err
			}
		}
		p.order.Remove(e)
		delete(p.frames, f.key)
		return nil
	}
	return sqlval.ErrBuffer.New(fmt.Sprintf("all %d frames pinned", p.capacity))
}

// FlushAll writes back every dirty frame and clears their dirty flags.
// Called after every DDL and at shutdown (spec.md §5).
func (p *Pool) FlushAll() error {
	for _, f := range p.frames {
		if !f.dirty {
			continue
		}
		if err := p.pager.WritePage(f.key.table, f.page); err != nil {
			return err
		}
		f.dirty = false
	}
	return nil
}

// Len reports how many frames are currently cached (test/debug use).
func (p *Pool) Len() int { return len(p.frames) }
