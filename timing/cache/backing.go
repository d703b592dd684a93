// Package cache provides cache hierarchy modeling using Akita cache components.
package cache

const pageSize = 4096

// SparseMemory is a byte-addressable memory that allocates 4KB pages on
// first write. Unwritten bytes read as zero.
type SparseMemory struct {
	pages map[uint64]*[pageSize]byte
}

// NewSparseMemory creates an empty SparseMemory.
func NewSparseMemory() *SparseMemory {
	return &SparseMemory{pages: make(map[uint64]*[pageSize]byte)}
}

// Read fetches size bytes starting at addr.
func (m *SparseMemory) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = m.Read8(addr + uint64(i))
	}
	return data
}

// Write stores data starting at addr.
func (m *SparseMemory) Write(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// Read8 reads one byte.
func (m *SparseMemory) Read8(addr uint64) byte {
	page, ok := m.pages[addr/pageSize]
	if !ok {
		return 0
	}
	return page[addr%pageSize]
}

// Write8 writes one byte.
func (m *SparseMemory) Write8(addr uint64, value byte) {
	page, ok := m.pages[addr/pageSize]
	if !ok {
		page = new([pageSize]byte)
		m.pages[addr/pageSize] = page
	}
	page[addr%pageSize] = value
}

// Read64 reads a little-endian 64-bit value.
func (m *SparseMemory) Read64(addr uint64) uint64 {
	return extractData(m.Read(addr, 8), 0, 8)
}

// Write64 writes a little-endian 64-bit value.
func (m *SparseMemory) Write64(addr uint64, value uint64) {
	data := make([]byte, 8)
	storeData(data, 0, 8, value)
	m.Write(addr, data)
}
