package eeprom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_FreshDeviceFormats(t *testing.T) {
	cfg := smallConfig()
	mem := newMemory(t, cfg)
	s, rec := openStore(t, mem, cfg)

	assert.Equal(t, ActionFormat, rec.Action)
	assert.False(t, rec.Lossy)
	assert.Equal(t, [2]Status{StatusEmpty, StatusEmpty}, rec.Status)

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, [2]Status{StatusActive, StatusEmpty}, st)
}

func TestInit_StatusTable(t *testing.T) {
	cfg := smallConfig()
	a := rawRecord(cfg, 0, []byte{0x11, 0x22})
	b := rawRecord(cfg, 4, []byte{0x33, 0x44})

	tests := []struct {
		name     string
		action   Action
		lossy    bool
		active   int
		keepData bool
	}{
		{
			name:   "active empty",
			action: ActionNone, active: 0, keepData: true,
		},
		{
			name:   "empty active",
			action: ActionNone, active: 1, keepData: true,
		},
		{
			name:   "receiving empty",
			action: ActionPromote, active: 0, keepData: true,
		},
		{
			name:   "empty receiving",
			action: ActionPromote, active: 1, keepData: true,
		},
		{
			name:   "active receiving",
			action: ActionRecompact, active: 1, keepData: true,
		},
		{
			name:   "receiving active",
			action: ActionRecompact, active: 0, keepData: true,
		},
		{
			name:   "active active",
			action: ActionFormat, lossy: true, active: 0,
		},
		{
			name:   "receiving receiving",
			action: ActionFormat, lossy: true, active: 0,
		},
	}
	layouts := map[string][2]Status{
		"active empty":        {StatusActive, StatusEmpty},
		"empty active":        {StatusEmpty, StatusActive},
		"receiving empty":     {StatusReceiving, StatusEmpty},
		"empty receiving":     {StatusEmpty, StatusReceiving},
		"active receiving":    {StatusActive, StatusReceiving},
		"receiving active":    {StatusReceiving, StatusActive},
		"active active":       {StatusActive, StatusActive},
		"receiving receiving": {StatusReceiving, StatusReceiving},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newMemory(t, cfg)
			layout := layouts[tt.name]
			for p, st := range layout {
				if st == StatusEmpty {
					continue
				}
				var records [][]byte
				// the page that keeps the data: Active, or Receiving next to Empty
				if st == StatusActive || layout[1-p] == StatusEmpty {
					records = [][]byte{a, b}
				} else {
					// half-copied recipient
					records = [][]byte{a}
				}
				writeRaw(t, mem, cfg, p, st, records...)
			}

			s, rec := openStore(t, mem, cfg)
			assert.Equal(t, tt.action, rec.Action)
			assert.Equal(t, tt.lossy, rec.Lossy)
			assert.Equal(t, layout, rec.Status)
			assert.Equal(t, tt.active, s.ActivePage())

			got := make([]byte, 2)
			if tt.keepData {
				require.NoError(t, s.Read(0, got))
				assert.Equal(t, []byte{0x11, 0x22}, got)
				require.NoError(t, s.Read(8, got))
				assert.Equal(t, []byte{0x33, 0x44}, got)
			} else {
				assert.ErrorIs(t, s.Read(0, got), ErrNoData)
			}

			st, err := s.Status()
			require.NoError(t, err)
			assert.Equal(t, StatusActive, st[tt.active])
			assert.Equal(t, StatusEmpty, st[1-tt.active])

			// recovery is idempotent
			_, again := openStore(t, mem, cfg)
			assert.Equal(t, ActionNone, again.Action)
		})
	}
}

func TestInit_TornHeaderReadsAsReceiving(t *testing.T) {
	cfg := smallConfig()
	mem := newMemory(t, cfg)
	writeRaw(t, mem, cfg, 0, StatusActive, rawRecord(cfg, 2, []byte{7, 7}))
	// first byte of a Receiving header landed, the second did not
	require.NoError(t, mem.Write(cfg.Page1Address, []byte{0xEE}))

	s, rec := openStore(t, mem, cfg)
	assert.Equal(t, ActionRecompact, rec.Action)
	assert.Equal(t, StatusReceiving, rec.Status[1])

	got := make([]byte, 2)
	require.NoError(t, s.Read(4, got))
	assert.Equal(t, []byte{7, 7}, got)
}

func TestInit_TornActiveOverReceiving(t *testing.T) {
	cfg := smallConfig()
	mem := newMemory(t, cfg)
	writeRaw(t, mem, cfg, 1, StatusReceiving, rawRecord(cfg, 1, []byte{5, 6}))
	// promotion torn after one byte: 00 EE
	require.NoError(t, mem.Write(cfg.Page1Address, []byte{0x00}))

	s, rec := openStore(t, mem, cfg)
	assert.Equal(t, ActionPromote, rec.Action)
	assert.Equal(t, 1, s.ActivePage())

	got := make([]byte, 2)
	require.NoError(t, s.Read(2, got))
	assert.Equal(t, []byte{5, 6}, got)
}

func TestInit_InterruptedAppendSealsPage(t *testing.T) {
	cfg := smallConfig()
	mem := newMemory(t, cfg)
	writeRaw(t, mem, cfg, 0, StatusActive,
		rawRecord(cfg, 0, []byte{1, 1}),
		// value landed, index did not
		[]byte{2, 2, 0xFF},
	)

	s, rec := openStore(t, mem, cfg)
	assert.Equal(t, ActionNone, rec.Action)

	got := make([]byte, 2)
	require.NoError(t, s.Read(0, got))
	assert.Equal(t, []byte{1, 1}, got)

	// the dirty slot cannot be reused: the next write compacts
	require.NoError(t, s.Write(2, []byte{3, 3}))
	assert.Equal(t, uint64(1), s.Stats().Compactions)
	assert.Equal(t, 1, s.ActivePage())

	require.NoError(t, s.Read(0, got))
	assert.Equal(t, []byte{1, 1}, got)
	require.NoError(t, s.Read(2, got))
	assert.Equal(t, []byte{3, 3}, got)
}

func TestInit_TornIndexSealsPage(t *testing.T) {
	cfg := exampleConfig()
	mem := newMemory(t, cfg)
	writeRaw(t, mem, cfg, 0, StatusActive,
		rawRecord(cfg, 1, []byte{1, 2, 3, 4}),
		// low index byte landed: 0x0002 torn to 0xFF02
		[]byte{9, 9, 9, 9, 0x02, 0xFF},
	)

	s, _ := openStore(t, mem, cfg)
	got := make([]byte, 4)
	assert.ErrorIs(t, s.Read(8, got), ErrNoData)

	require.NoError(t, s.Write(8, []byte{4, 4, 4, 4}))
	assert.Equal(t, uint64(1), s.Stats().Compactions)
	require.NoError(t, s.Read(4, got))
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "format", ActionFormat.String())
	assert.Equal(t, "promote", ActionPromote.String())
	assert.Equal(t, "recompact", ActionRecompact.String())
	assert.Equal(t, "invalid", Action(42).String())
}
