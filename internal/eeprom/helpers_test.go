package eeprom

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/veeprom/internal/flash"
)

// exampleConfig is two 512 byte pages of 4 byte words with 2 byte indices.
func exampleConfig() Config {
	return Config{
		Page0Address:  0,
		Page1Address:  512,
		PageSize:      512,
		EraseUnitSize: 512,
		WordSize:      4,
		IndexSize:     2,
	}
}

// smallConfig has 20 slots per page split over two erase units.
func smallConfig() Config {
	return Config{
		Page0Address:  0,
		Page1Address:  64,
		PageSize:      64,
		EraseUnitSize: 32,
		WordSize:      2,
		IndexSize:     1,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemory(t *testing.T, cfg Config) *flash.Memory {
	t.Helper()
	mem, err := flash.NewMemory(cfg.DeviceSize(), cfg.EraseUnitSize)
	require.NoError(t, err)
	return mem
}

// openStore builds a store over dev and runs Init.
func openStore(t *testing.T, dev flash.Device, cfg Config, opts ...Option) (*Store, Recovery) {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	s, err := New(dev, cfg, opts...)
	require.NoError(t, err)
	rec, err := s.Init()
	require.NoError(t, err)
	return s, rec
}

func newTestStore(t *testing.T, cfg Config) (*Store, *flash.Memory) {
	t.Helper()
	mem := newMemory(t, cfg)
	s, _ := openStore(t, mem, cfg)
	return s, mem
}

// rawRecord encodes a record the way appendRecord lays it out.
func rawRecord(cfg Config, idx uint32, value []byte) []byte {
	b := make([]byte, cfg.RecordSize())
	copy(b, value)
	encodeIndex(idx, b[cfg.WordSize:])
	return b
}

// writeRaw programs a header and records straight into page p.
func writeRaw(t *testing.T, mem *flash.Memory, cfg Config, p int, st Status, records ...[]byte) {
	t.Helper()
	base := []uint32{cfg.Page0Address, cfg.Page1Address}[p]
	if st != StatusEmpty {
		require.NoError(t, mem.Write(base, st.encode()))
	}
	addr := base + StatusSize
	for _, r := range records {
		require.NoError(t, mem.Write(addr, r))
		addr += uint32(len(r))
	}
}

func word(cfg Config, seed int) []byte {
	b := make([]byte, cfg.WordSize)
	for i := range b {
		b[i] = byte(seed*7 + i)
	}
	return b
}
