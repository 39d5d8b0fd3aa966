package mem

import (
	"iter"
	"log"

	"github.com/google/btree"
)

// Degree of the ordered page number index.
const pageIndexDegree = 32

// PhysMem is a sparse store of pages covering a fixed capacity.
//
// Pages are created on first touch by a store and live until Release.
type PhysMem struct {
	Verbose bool // If set, logs page allocations.

	capacity uint64
	pages    map[uint64]*Page
	index    *btree.BTreeG[uint64] // Present page numbers, ascending.
}

// NewPhysMem creates a physical store of capacity bytes, rounded down to
// whole pages. No page is allocated.
func NewPhysMem(capacity uint64) (pm *PhysMem) {
	pm = &PhysMem{
		capacity: capacity &^ OFFSET_MASK,
		pages:    make(map[uint64]*Page),
		index:    btree.NewOrderedG[uint64](pageIndexDegree),
	}

	return
}

// Capacity returns the addressable size in bytes.
func (pm *PhysMem) Capacity() uint64 {
	return pm.capacity
}

// PageLimit returns the number of page slots.
func (pm *PhysMem) PageLimit() uint64 {
	return pm.capacity >> OFFSET_BIT_LENGTH
}

// PageCount returns the number of allocated pages.
func (pm *PhysMem) PageCount() int {
	return len(pm.pages)
}

// Pages iterates the allocated pages by ascending page number.
func (pm *PhysMem) Pages() iter.Seq2[uint64, *Page] {
	return func(yield func(id uint64, page *Page) bool) {
		pm.index.Ascend(func(id uint64) bool {
			return yield(id, pm.pages[id])
		})
	}
}

// Release drops every page.
func (pm *PhysMem) Release() {
	if pm.Verbose {
		log.Printf("mem: release %d pages", len(pm.pages))
	}

	clear(pm.pages)
	pm.index.Clear(false)
}

// Pointer returns the page buffer for page id starting at offset.
//
// A missing page is created when alloc is set; otherwise the access fails
// with ErrPageMissing. Page numbers outside of the capacity fail with
// ErrPageRange.
func (pm *PhysMem) Pointer(id uint64, offset uint64, alloc bool) (ptr []byte, err error) {
	if offset >= PAGE_SIZE {
		panic(f("mem: page offset 0x%x out of range", offset))
	}

	page, err := pm.Page(id)
	if err == ErrPageMissing && alloc {
		page = newPage(id)
		pm.pages[id] = page
		pm.index.ReplaceOrInsert(id)
		err = nil

		if pm.Verbose {
			log.Printf("mem: page 0x%x allocated", id)
		}
	}
	if err != nil {
		return
	}

	ptr = page.data[offset:]
	return
}

// Page returns an allocated page, without allocating.
func (pm *PhysMem) Page(id uint64) (page *Page, err error) {
	if id >= pm.PageLimit() {
		err = ErrPageRange
		return
	}

	page, ok := pm.pages[id]
	if !ok {
		err = ErrPageMissing
		return
	}

	return
}

// AtOnePage reports whether size bytes at offset stay within one page.
func (pm *PhysMem) AtOnePage(offset uint64, size uint64) bool {
	return offset+size <= PAGE_SIZE
}

// NextAfterLastOccupiedByte returns the first location of the first page,
// by ascending page number, that is not fully occupied.
//
// With no pages allocated this is (0, 0). When every allocated page is
// full, it is the start of the page after the last one.
//
// The scan visits every allocated page; callers polling it often should
// cache the result.
func (pm *PhysMem) NextAfterLastOccupiedByte() (id uint64, offset uint64) {
	found := false
	pm.index.Ascend(func(pid uint64) bool {
		page := pm.pages[pid]
		id = pid
		if page.OccupiedSize() == PAGE_SIZE {
			return true
		}
		offset = page.OccupiedSize()
		found = true
		return false
	})

	if !found && pm.index.Len() != 0 {
		id++
		offset = 0
	}

	return
}
