package flash

import (
	"fmt"
)

// Memory is an in-memory NOR flash simulator.
type Memory struct {
	data        []byte
	eraseUnit   uint32
	eraseCounts []uint32
}

// NewMemory returns an erased device of size bytes split into erase units of
// eraseUnit bytes. size must be a positive multiple of eraseUnit.
func NewMemory(size, eraseUnit uint32) (*Memory, error) {
	if eraseUnit == 0 || size == 0 || size%eraseUnit != 0 {
		return nil, fmt.Errorf("flash: size %d is not a positive multiple of erase unit %d", size, eraseUnit)
	}
	m := &Memory{
		data:        make([]byte, size),
		eraseUnit:   eraseUnit,
		eraseCounts: make([]uint32, size/eraseUnit),
	}
	for i := range m.data {
		m.data[i] = Erased
	}
	return m, nil
}

// NewMemoryFromImage returns a device whose contents are a copy of image.
func NewMemoryFromImage(image []byte, eraseUnit uint32) (*Memory, error) {
	m, err := NewMemory(uint32(len(image)), eraseUnit)
	if err != nil {
		return nil, err
	}
	copy(m.data, image)
	return m, nil
}

// Size returns the device size in bytes.
func (m *Memory) Size() uint32 { return uint32(len(m.data)) }

// EraseUnit returns the erase unit size in bytes.
func (m *Memory) EraseUnit() uint32 { return m.eraseUnit }

func (m *Memory) Read(addr uint32, p []byte) error {
	if err := checkRange(m.Size(), addr, len(p)); err != nil {
		return err
	}
	copy(p, m.data[addr:])
	return nil
}

func (m *Memory) Write(addr uint32, p []byte) error {
	if err := checkRange(m.Size(), addr, len(p)); err != nil {
		return err
	}
	return program(addr, m.data[addr:addr+uint32(len(p))], p)
}

func (m *Memory) Erase(addr uint32) error {
	if err := checkRange(m.Size(), addr, int(m.eraseUnit)); err != nil {
		return err
	}
	if addr%m.eraseUnit != 0 {
		return fmt.Errorf("%w: 0x%x", ErrUnaligned, addr)
	}
	unit := m.data[addr : addr+m.eraseUnit]
	for i := range unit {
		unit[i] = Erased
	}
	m.eraseCounts[addr/m.eraseUnit]++
	return nil
}

// EraseCount returns how many times the unit containing addr was erased.
func (m *Memory) EraseCount(addr uint32) uint32 {
	if addr >= m.Size() {
		return 0
	}
	return m.eraseCounts[addr/m.eraseUnit]
}

// Bytes returns a copy of the whole device contents.
func (m *Memory) Bytes() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
