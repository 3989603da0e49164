package machine

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Virtual address layout. Entry addresses live in the text window; stack
// regions are carved out of a fixed arena above it.
const (
	TextBase  = 0x1_0000_0000
	StackBase = 0x2_0000_0000
)

// ExitStubAddr is the text address of the always-exits stub. Spawn writes
// it into the return slot of every fresh stack, so an entry function that
// returns normally lands in the stub instead of garbage.
const ExitStubAddr = TextBase

var (
	ErrNoMemory  = errors.New("machine: out of memory")
	ErrBadAccess = errors.New("machine: invalid memory access")
)

// Region is an owned block of machine memory with a fixed virtual base.
type Region struct {
	base uint64
	buf  []byte
}

// Base returns the region's first virtual address.
func (r *Region) Base() uint64 { return r.base }

// Size returns the region's length in bytes.
func (r *Region) Size() uint64 { return uint64(len(r.buf)) }

// Top returns the first address past the region. Stacks grow down from
// here.
func (r *Region) Top() uint64 { return r.base + uint64(len(r.buf)) }

func (r *Region) contains(addr, n uint64) bool {
	if addr < r.base {
		return false
	}
	off := addr - r.base
	return off <= uint64(len(r.buf)) && n <= uint64(len(r.buf))-off
}

// Memory is the machine's data memory: a fixed arena handed out as owned
// regions, resolved back through virtual addresses.
type Memory struct {
	arena   []byte
	next    uint64 // bump offset into arena
	regions []*Region
	free    map[uint64][]*Region // released regions by size
}

func newMemory(size uint64) *Memory {
	return &Memory{
		arena: make([]byte, size),
		free:  map[uint64][]*Region{},
	}
}

// AllocStack hands out a dedicated region of exactly size bytes. It fails
// when the arena is exhausted; no partial region is created.
func (m *Memory) AllocStack(size uint64) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("alloc stack: %w", ErrBadAccess)
	}
	if l := m.free[size]; len(l) > 0 {
		r := l[len(l)-1]
		m.free[size] = l[:len(l)-1]
		for i := range r.buf {
			r.buf[i] = 0
		}
		m.regions = append(m.regions, r)
		return r, nil
	}
	if m.next+size > uint64(len(m.arena)) {
		return nil, fmt.Errorf("alloc stack (%d bytes): %w", size, ErrNoMemory)
	}
	r := &Region{
		base: StackBase + m.next,
		buf:  m.arena[m.next : m.next+size : m.next+size],
	}
	m.next += size
	m.regions = append(m.regions, r)
	return r, nil
}

// Free returns a region to the allocator. Its addresses stop translating.
func (m *Memory) Free(r *Region) {
	if r == nil {
		return
	}
	for i, reg := range m.regions {
		if reg == r {
			m.regions = append(m.regions[:i], m.regions[i+1:]...)
			m.free[r.Size()] = append(m.free[r.Size()], r)
			return
		}
	}
}

// Translate resolves [addr, addr+n) to the backing bytes of the owning
// region. Ranges that leave the region, or point nowhere, fail.
func (m *Memory) Translate(addr, n uint64) ([]byte, error) {
	for _, r := range m.regions {
		if r.contains(addr, n) {
			off := addr - r.base
			return r.buf[off : off+n], nil
		}
	}
	return nil, fmt.Errorf("translate %#x+%d: %w", addr, n, ErrBadAccess)
}

// Store64 writes a little-endian 64-bit value at addr.
func (m *Memory) Store64(addr, v uint64) error {
	b, err := m.Translate(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// Load64 reads a little-endian 64-bit value at addr.
func (m *Memory) Load64(addr uint64) (uint64, error) {
	b, err := m.Translate(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
