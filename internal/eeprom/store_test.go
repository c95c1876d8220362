package eeprom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/veeprom/internal/flash"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := exampleConfig()
	cfg.WordSize = 0
	_, err := New(newMemory(t, exampleConfig()), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(nil, exampleConfig())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStore_NotReadyBeforeInit(t *testing.T) {
	cfg := exampleConfig()
	s, err := New(newMemory(t, cfg), cfg)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Read(0, make([]byte, 4)), ErrNotReady)
	assert.ErrorIs(t, s.Write(0, []byte{1, 2, 3, 4}), ErrNotReady)
}

func TestStore_ExampleScenario(t *testing.T) {
	cfg := exampleConfig()
	s, _ := newTestStore(t, cfg)
	require.Equal(t, 340, s.Capacity())

	require.NoError(t, s.Write(0, []byte{1, 2, 3, 4}))
	require.NoError(t, s.Write(0, []byte{5, 6, 7, 8}))

	got := make([]byte, 4)
	require.NoError(t, s.Read(0, got))
	assert.Equal(t, []byte{5, 6, 7, 8}, got)

	// 85 slots per page: two are used, fill the remaining 83
	for i := 1; i <= 83; i++ {
		require.NoError(t, s.Write(uint32(4*i), word(cfg, i)))
	}
	assert.Equal(t, uint64(0), s.Stats().Compactions)

	require.NoError(t, s.Write(4*84, word(cfg, 84)))
	assert.Equal(t, uint64(1), s.Stats().Compactions)
	assert.Equal(t, 1, s.ActivePage())

	require.NoError(t, s.Read(0, got))
	assert.Equal(t, []byte{5, 6, 7, 8}, got)
	for i := 1; i <= 84; i++ {
		require.NoError(t, s.Read(uint32(4*i), got))
		assert.Equal(t, word(cfg, i), got, "word %d", i)
	}
}

func TestStore_ReadAfterWrite(t *testing.T) {
	cfg := exampleConfig()
	tests := []struct {
		name string
		addr uint32
		data []byte
	}{
		{"first word", 0, []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"all erased value", 8, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{"all zero", 16, []byte{0, 0, 0, 0}},
		{"multi word", 100, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
		{"last word", 336, []byte{9, 9, 9, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, cfg)
			require.NoError(t, s.Write(tt.addr, tt.data))

			got := make([]byte, len(tt.data))
			require.NoError(t, s.Read(tt.addr, got))
			assert.Equal(t, tt.data, got)
		})
	}
}

func TestStore_ReadUnalignedRange(t *testing.T) {
	cfg := exampleConfig()
	s, _ := newTestStore(t, cfg)
	require.NoError(t, s.Write(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	got := make([]byte, 4)
	require.NoError(t, s.Read(2, got))
	assert.Equal(t, []byte{3, 4, 5, 6}, got)

	one := make([]byte, 1)
	require.NoError(t, s.Read(7, one))
	assert.Equal(t, []byte{8}, one)
}

func TestStore_ReadNoData(t *testing.T) {
	cfg := exampleConfig()
	s, _ := newTestStore(t, cfg)

	got := []byte{0, 0, 0, 0}
	require.ErrorIs(t, s.Read(0, got), ErrNoData)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, got)

	require.NoError(t, s.Write(0, []byte{1, 2, 3, 4}))
	got = make([]byte, 8)
	require.ErrorIs(t, s.Read(0, got), ErrNoData)
	assert.Equal(t, []byte{1, 2, 3, 4, 0xFF, 0xFF, 0xFF, 0xFF}, got)

	require.ErrorIs(t, s.Read(338, make([]byte, 4)), ErrNoData, "past capacity")
	require.NoError(t, s.Read(0, nil))
}

func TestStore_WriteRejectsUnaligned(t *testing.T) {
	cfg := exampleConfig()
	s, mem := newTestStore(t, cfg)
	before := mem.Bytes()

	for _, addr := range []uint32{1, 2, 3, 5, 339} {
		err := s.Write(addr, []byte{1, 2, 3, 4})
		assert.ErrorIs(t, err, ErrBadAlignment, "addr %d", addr)
	}
	assert.ErrorIs(t, s.Write(6, []byte{1}), ErrBadAlignment)
	assert.Equal(t, before, mem.Bytes(), "rejected writes must not touch flash")
}

func TestStore_WritePartialWord(t *testing.T) {
	cfg := exampleConfig()
	s, _ := newTestStore(t, cfg)

	require.NoError(t, s.Write(0, []byte{1, 2, 3, 4, 5, 6}))
	got := make([]byte, 8)
	require.NoError(t, s.Read(0, got))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 0xFF, 0xFF}, got)

	// the tail keeps the bytes it does not cover
	require.NoError(t, s.Write(4, []byte{9}))
	got = make([]byte, 4)
	require.NoError(t, s.Read(4, got))
	assert.Equal(t, []byte{9, 6, 0xFF, 0xFF}, got)
	require.NoError(t, s.Read(0, got))
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	slots, err := s.Records(s.ActivePage())
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for _, sl := range slots {
		assert.Len(t, sl.Value, cfg.WordSize, "records stay whole")
	}

	assert.ErrorIs(t, s.Write(336, []byte{1, 2, 3, 4, 5}), ErrFull)
}

func TestStore_WritePartialWordAcrossCompaction(t *testing.T) {
	cfg := smallConfig()
	s, _ := newTestStore(t, cfg)

	require.NoError(t, s.Write(4, []byte{0xAA, 0xBB}))
	for i := 0; i < cfg.CapacityRecords()-1; i++ {
		require.NoError(t, s.Write(0, word(cfg, i)))
	}
	require.NoError(t, s.Write(4, []byte{0x11}))
	require.Equal(t, uint64(1), s.Stats().Compactions)

	got := make([]byte, 2)
	require.NoError(t, s.Read(4, got))
	assert.Equal(t, []byte{0x11, 0xBB}, got)
}

func TestStore_ReadAcrossCapacity(t *testing.T) {
	cfg := exampleConfig()
	s, _ := newTestStore(t, cfg)
	require.NoError(t, s.Write(336, []byte{9, 9, 9, 9}))

	got := make([]byte, 8)
	require.ErrorIs(t, s.Read(336, got), ErrNoData)
	assert.Equal(t, []byte{9, 9, 9, 9, 0xFF, 0xFF, 0xFF, 0xFF}, got)

	got = make([]byte, 6)
	require.ErrorIs(t, s.Read(338, got), ErrNoData)
	assert.Equal(t, []byte{9, 9, 0xFF, 0xFF, 0xFF, 0xFF}, got)
}

func TestStore_CompactionKeepsLatest(t *testing.T) {
	cfg := smallConfig()
	s, _ := newTestStore(t, cfg)

	require.NoError(t, s.Write(10, []byte{0xAA, 0xBB}))
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Write(6, []byte{byte(i), ^byte(i)}))
	}
	require.GreaterOrEqual(t, s.Stats().Compactions, uint64(1))

	got := make([]byte, 2)
	require.NoError(t, s.Read(6, got))
	assert.Equal(t, []byte{99, ^byte(99)}, got)
	require.NoError(t, s.Read(10, got))
	assert.Equal(t, []byte{0xAA, 0xBB}, got)

	slots, err := s.Records(s.ActivePage())
	require.NoError(t, err)
	live := 0
	for _, sl := range slots {
		if sl.Index == 3 && sl.Live {
			live++
			assert.Equal(t, []byte{99, ^byte(99)}, sl.Value)
		}
	}
	assert.Equal(t, 1, live)

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusActive, st[s.ActivePage()])
	assert.Equal(t, StatusEmpty, st[1-s.ActivePage()])
}

func TestStore_CapacityBoundary(t *testing.T) {
	cfg := smallConfig()
	s, _ := newTestStore(t, cfg)
	require.Equal(t, 40, s.Capacity())

	for i := 0; i < cfg.CapacityRecords(); i++ {
		require.NoError(t, s.Write(uint32(2*i), word(cfg, i)))
	}
	err := s.Write(uint32(s.Capacity()), word(cfg, 99))
	require.ErrorIs(t, err, ErrFull)

	// a full store still accepts overwrites of existing words
	for i := 0; i < cfg.CapacityRecords(); i++ {
		require.NoError(t, s.Write(uint32(2*i), word(cfg, i+100)))
	}
	got := make([]byte, 2)
	for i := 0; i < cfg.CapacityRecords(); i++ {
		require.NoError(t, s.Read(uint32(2*i), got))
		assert.Equal(t, word(cfg, i+100), got, "word %d", i)
	}
	assert.Greater(t, s.Stats().Compactions, uint64(0))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	cfg := smallConfig()
	s, mem := newTestStore(t, cfg)
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Write(uint32(2*(i%7)), word(cfg, i)))
	}

	s2, rec := openStore(t, mem, cfg)
	assert.Equal(t, ActionNone, rec.Action)
	assert.Equal(t, s.ActivePage(), s2.ActivePage())

	got := make([]byte, 2)
	for k := 0; k < 7; k++ {
		last := 49 - (49-k)%7
		require.NoError(t, s2.Read(uint32(2*k), got))
		assert.Equal(t, word(cfg, last), got, "word %d", k)
	}
}

func TestStore_Format(t *testing.T) {
	cfg := smallConfig()
	s, _ := newTestStore(t, cfg)
	require.NoError(t, s.Write(0, []byte{1, 2}))

	require.NoError(t, s.Format())
	assert.ErrorIs(t, s.Read(0, make([]byte, 2)), ErrNoData)
	assert.Equal(t, 0, s.ActivePage())
	assert.Equal(t, uint64(2), s.Stats().Formats)
}

// failingDevice fails writes or erases once armed.
type failingDevice struct {
	flash.Device
	fail      bool
	failErase bool
}

var errInjected = errors.New("injected failure")

func (d *failingDevice) Write(addr uint32, p []byte) error {
	if d.fail {
		return errInjected
	}
	return d.Device.Write(addr, p)
}

func (d *failingDevice) Erase(addr uint32) error {
	if d.failErase {
		return errInjected
	}
	return d.Device.Erase(addr)
}

func TestStore_FlashErrorSurfaces(t *testing.T) {
	cfg := smallConfig()
	dev := &failingDevice{Device: newMemory(t, cfg)}
	s, _ := openStore(t, dev, cfg)

	dev.fail = true
	err := s.Write(0, []byte{1, 2})
	require.ErrorIs(t, err, ErrFlash)
	require.ErrorIs(t, err, errInjected)

	var fe *FlashError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "write", fe.Op)
	assert.Equal(t, uint32(StatusSize), fe.Addr)
	assert.Equal(t, CodeFlash, Code(err))

	// no retry happened and the store keeps working once the device does
	dev.fail = false
	require.NoError(t, s.Write(0, []byte{1, 2}))
}

func TestStore_FlashErrorDuringCompaction(t *testing.T) {
	cfg := smallConfig()
	dev := &failingDevice{Device: newMemory(t, cfg)}
	s, _ := openStore(t, dev, cfg)

	for i := 0; i < cfg.CapacityRecords(); i++ {
		require.NoError(t, s.Write(uint32(2*i), word(cfg, i)))
	}
	require.Equal(t, uint64(0), s.Stats().Compactions)

	dev.failErase = true
	err := s.Write(0, word(cfg, 99))
	require.ErrorIs(t, err, ErrFlash)
	require.ErrorIs(t, err, errInjected)
	var fe *FlashError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "erase", fe.Op)
	assert.Equal(t, cfg.Page1Address, fe.Addr)

	assert.ErrorIs(t, s.Read(0, make([]byte, 2)), ErrNotReady)
	assert.ErrorIs(t, s.Write(0, word(cfg, 100)), ErrNotReady)

	dev.failErase = false
	rec, err := s.Init()
	require.NoError(t, err)
	assert.Equal(t, ActionNone, rec.Action)
	assert.False(t, rec.Lossy)

	got := make([]byte, 2)
	require.NoError(t, s.Read(0, got))
	assert.Equal(t, word(cfg, 0), got)

	// the swap goes through once the device recovers
	require.NoError(t, s.Write(0, word(cfg, 99)))
	assert.Equal(t, uint64(1), s.Stats().Compactions)
	require.NoError(t, s.Read(0, got))
	assert.Equal(t, word(cfg, 99), got)
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeOK, Code(nil))
	assert.Equal(t, CodeNoData, Code(ErrNoData))
	assert.Equal(t, CodeFull, Code(ErrFull))
	assert.Equal(t, CodeBadAlignment, Code(ErrBadAlignment))
	assert.Equal(t, CodeNotReady, Code(ErrNotReady))
	assert.Equal(t, CodeInvalidConfig, Code(ErrInvalidConfig))
	assert.Equal(t, CodeUnknown, Code(errInjected))
	assert.Equal(t, CodeFlash, Code(&FlashError{Op: "erase", Err: errInjected}))
}
