package eeprom

import (
	"fmt"
)

const (
	// StatusSize is the width of the page status header in bytes.
	StatusSize = 2

	// MaxWordSize bounds the value part of a record.
	MaxWordSize = 16
)

// Config describes where the two pages live and how records are shaped.
// All fields are fixed at provisioning time; changing any of them requires
// a Format.
type Config struct {
	Page0Address  uint32 `yaml:"page0_address" json:"page0_address"`
	Page1Address  uint32 `yaml:"page1_address" json:"page1_address"`
	PageSize      uint32 `yaml:"page_size" json:"page_size"`
	EraseUnitSize uint32 `yaml:"erase_unit_size" json:"erase_unit_size"`
	WordSize      int    `yaml:"word_size" json:"word_size"`
	IndexSize     int    `yaml:"index_size" json:"index_size"`
}

// DefaultConfig returns two adjacent 1 KiB pages of 4 byte words with 2 byte
// indices, each page a single erase unit.
func DefaultConfig() Config {
	return Config{
		Page0Address:  0,
		Page1Address:  1024,
		PageSize:      1024,
		EraseUnitSize: 1024,
		WordSize:      4,
		IndexSize:     2,
	}
}

// RecordSize is the size of one (value, index) record.
func (c Config) RecordSize() int { return c.WordSize + c.IndexSize }

// SlotsPerPage is the number of records that fit after the status header.
func (c Config) SlotsPerPage() int {
	if c.RecordSize() <= 0 || c.PageSize <= StatusSize {
		return 0
	}
	return int(c.PageSize-StatusSize) / c.RecordSize()
}

// CapacityRecords is the number of addressable words.
func (c Config) CapacityRecords() int { return c.SlotsPerPage() }

// Capacity is the size of the virtual byte range.
func (c Config) Capacity() int { return c.CapacityRecords() * c.WordSize }

// DeviceSize is the smallest device that holds both pages.
func (c Config) DeviceSize() uint32 {
	return max(c.Page0Address, c.Page1Address) + c.PageSize
}

// maxIndexCount is the number of index values whose most significant byte
// differs from 0xFF.
func maxIndexCount(indexSize int) uint64 {
	return uint64(0xFF) << (8 * (indexSize - 1))
}

// Validate checks the geometry. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.PageSize == 0 || c.EraseUnitSize == 0 {
		return fmt.Errorf("%w: page_size and erase_unit_size must be positive", ErrInvalidConfig)
	}
	if c.PageSize%c.EraseUnitSize != 0 {
		return fmt.Errorf("%w: page_size %d is not a multiple of erase_unit_size %d", ErrInvalidConfig, c.PageSize, c.EraseUnitSize)
	}
	if c.Page0Address%c.EraseUnitSize != 0 || c.Page1Address%c.EraseUnitSize != 0 {
		return fmt.Errorf("%w: page addresses must be aligned to erase_unit_size %d", ErrInvalidConfig, c.EraseUnitSize)
	}
	lo, hi := min(c.Page0Address, c.Page1Address), max(c.Page0Address, c.Page1Address)
	if uint64(lo)+uint64(c.PageSize) > uint64(hi) {
		return fmt.Errorf("%w: pages at 0x%x and 0x%x overlap", ErrInvalidConfig, c.Page0Address, c.Page1Address)
	}
	if uint64(hi)+uint64(c.PageSize) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: page at 0x%x does not fit a 32 bit address space", ErrInvalidConfig, hi)
	}
	if c.WordSize < 1 || c.WordSize > MaxWordSize {
		return fmt.Errorf("%w: word_size %d must be between 1 and %d", ErrInvalidConfig, c.WordSize, MaxWordSize)
	}
	switch c.IndexSize {
	case 1, 2, 4:
	default:
		return fmt.Errorf("%w: index_size %d must be 1, 2 or 4", ErrInvalidConfig, c.IndexSize)
	}
	if c.SlotsPerPage() < 1 {
		return fmt.Errorf("%w: page_size %d holds no record of %d bytes", ErrInvalidConfig, c.PageSize, c.RecordSize())
	}
	if uint64(c.CapacityRecords()) > maxIndexCount(c.IndexSize) {
		return fmt.Errorf("%w: %d records need more than %d index bytes", ErrInvalidConfig, c.CapacityRecords(), c.IndexSize)
	}
	return nil
}
