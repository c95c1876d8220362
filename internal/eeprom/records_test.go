package eeprom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/veeprom/internal/flash"
)

func TestIndexCodec(t *testing.T) {
	b := make([]byte, 2)
	encodeIndex(0x0102, b)
	assert.Equal(t, []byte{0x02, 0x01}, b, "little endian")
	assert.Equal(t, uint32(0x0102), decodeIndex(b))
	assert.True(t, indexWritten(b))

	assert.False(t, indexWritten([]byte{0xFF, 0xFF}))
	assert.False(t, indexWritten([]byte{0x02, 0xFF}), "torn index")
	assert.True(t, indexWritten([]byte{0xFF, 0x00}))
}

func TestLocateLast_CachesPerRole(t *testing.T) {
	cfg := smallConfig()
	mem := newMemory(t, cfg)
	writeRaw(t, mem, cfg, 0, StatusActive,
		rawRecord(cfg, 0, []byte{1, 1}),
		rawRecord(cfg, 1, []byte{2, 2}),
		rawRecord(cfg, 0, []byte{3, 3}),
	)
	rec := flash.NewRecorder(mem)
	s, err := New(rec, cfg, WithLogger(discardLogger()))
	require.NoError(t, err)

	c, err := s.locateLast(0, roleActive)
	require.NoError(t, err)
	assert.Equal(t, uint32(StatusSize+3*3), c.addr)
	reads := rec.Reads()

	_, err = s.locateLast(0, roleActive)
	require.NoError(t, err)
	assert.Equal(t, reads, rec.Reads(), "cached cursor must not rescan")

	// the donor role has its own slot
	_, err = s.locateLast(0, roleDonor)
	require.NoError(t, err)
	assert.Greater(t, rec.Reads(), reads)

	s.invalidate(0)
	assert.False(t, s.cursors[roleActive].valid)
	assert.False(t, s.cursors[roleDonor].valid)
}

func TestScan_ChunkBoundaries(t *testing.T) {
	cfg := smallConfig()
	for _, chunk := range []int{1, 2, 3, 7, 20, 64} {
		mem := newMemory(t, cfg)
		var records [][]byte
		for i := 0; i < 13; i++ {
			records = append(records, rawRecord(cfg, uint32(i%5), []byte{byte(i), 0}))
		}
		writeRaw(t, mem, cfg, 1, StatusActive, records...)

		s, err := New(mem, cfg, WithLogger(discardLogger()), WithScanChunk(chunk))
		require.NoError(t, err)
		addr, sealed, err := s.scan(1)
		require.NoError(t, err)
		assert.False(t, sealed)
		assert.Equal(t, cfg.Page1Address+StatusSize+13*3, addr, "chunk %d", chunk)
	}
}

func TestScan_FullPage(t *testing.T) {
	cfg := smallConfig()
	mem := newMemory(t, cfg)
	var records [][]byte
	for i := 0; i < cfg.SlotsPerPage(); i++ {
		records = append(records, rawRecord(cfg, uint32(i), []byte{0, 0}))
	}
	writeRaw(t, mem, cfg, 0, StatusActive, records...)

	s, err := New(mem, cfg, WithLogger(discardLogger()))
	require.NoError(t, err)
	addr, _, err := s.scan(0)
	require.NoError(t, err)
	assert.Equal(t, s.slotsEnd(0), addr)

	require.ErrorIs(t, s.appendRecord(0, roleActive, 1, []byte{1, 1}), errPageFull)
}

func TestReadRecord_LatestWins(t *testing.T) {
	cfg := smallConfig()
	mem := newMemory(t, cfg)
	writeRaw(t, mem, cfg, 0, StatusActive,
		rawRecord(cfg, 4, []byte{1, 1}),
		rawRecord(cfg, 2, []byte{2, 2}),
		rawRecord(cfg, 4, []byte{3, 3}),
	)
	s, err := New(mem, cfg, WithLogger(discardLogger()))
	require.NoError(t, err)

	v, err := s.readRecord(0, roleActive, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 3}, v)

	_, err = s.readRecord(0, roleActive, 9)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRecords_MarksLive(t *testing.T) {
	cfg := smallConfig()
	s, _ := newTestStore(t, cfg)
	require.NoError(t, s.Write(0, []byte{1, 1}))
	require.NoError(t, s.Write(2, []byte{2, 2}))
	require.NoError(t, s.Write(0, []byte{3, 3}))

	slots, err := s.Records(0)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.False(t, slots[0].Live)
	assert.True(t, slots[1].Live)
	assert.True(t, slots[2].Live)
	assert.Equal(t, []byte{3, 3}, slots[2].Value)
	assert.Equal(t, uint32(StatusSize+6), slots[2].Addr)

	_, err = s.Records(2)
	assert.Error(t, err)
}
