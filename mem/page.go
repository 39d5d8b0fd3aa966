package mem

const (
	OFFSET_BIT_LENGTH = 12                     // Width of the in-page offset.
	PAGE_SIZE         = 1 << OFFSET_BIT_LENGTH // Bytes per page.
	OFFSET_MASK       = uint64(PAGE_SIZE - 1)  // In-page offset bits of an address.
	ID_MASK           = ^OFFSET_MASK           // Page number bits of an address.

	DEFAULT_CAPACITY = uint64(16 << 30) // 16 GiB of guest memory.
)

// Page is a fixed-size unit of guest memory.
//
// The occupied size is a high-water mark over the start of the page, kept
// independently of the page contents.
type Page struct {
	start    uint64
	data     []byte
	occupied uint64
}

func newPage(id uint64) *Page {
	return &Page{
		start: id << OFFSET_BIT_LENGTH,
		data:  make([]byte, PAGE_SIZE),
	}
}

// Start returns the guest address of the first byte of the page.
func (pg *Page) Start() uint64 {
	return pg.start
}

// OccupiedSize returns the length of the occupied prefix.
func (pg *Page) OccupiedSize() uint64 {
	return pg.occupied
}

// FreeSize returns the bytes left after the occupied prefix.
func (pg *Page) FreeSize() uint64 {
	return PAGE_SIZE - pg.occupied
}

// FreePointer returns the guest address of the first unoccupied byte.
func (pg *Page) FreePointer() uint64 {
	return pg.start + pg.occupied
}

// SetFreePointer moves the occupancy mark to addr, which must lie within
// [Start(), Start()+PAGE_SIZE].
func (pg *Page) SetFreePointer(addr uint64) {
	if addr < pg.start || addr-pg.start > PAGE_SIZE {
		panic(f("mem: free pointer 0x%x outside of page 0x%x", addr, pg.start))
	}
	pg.occupied = addr - pg.start
}
