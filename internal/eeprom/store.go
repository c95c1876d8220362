package eeprom

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/veeprom/internal/flash"
)

// DefaultScanChunk is the number of records read per flash access while
// looking for the end of a page's log.
const DefaultScanChunk = 16

// Stats counts store activity since construction.
type Stats struct {
	Appends     uint64 `json:"appends"`
	Compactions uint64 `json:"compactions"`
	Formats     uint64 `json:"formats"`
}

// Store is a virtual EEPROM on top of a flash device.
//
// Call Init (or Format) once before Read and Write.
type Store struct {
	dev    flash.Device
	cfg    Config
	logger *slog.Logger

	pages     [2]uint32 // base addresses
	active    int
	ready     bool
	scanChunk int
	cursors   [2]cursor // indexed by role
	stats     Stats
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScanChunk sets how many records are read per flash access when
// scanning a page. Values below 1 are ignored.
func WithScanChunk(records int) Option {
	return func(s *Store) {
		if records > 0 {
			s.scanChunk = records
		}
	}
}

// New returns a store over dev. The store is not usable until Init or Format.
func New(dev flash.Device, cfg Config, opts ...Option) (*Store, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil flash device", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		dev:       dev,
		cfg:       cfg,
		logger:    slog.Default(),
		pages:     [2]uint32{cfg.Page0Address, cfg.Page1Address},
		scanChunk: DefaultScanChunk,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the store geometry.
func (s *Store) Config() Config { return s.cfg }

// Capacity returns the size of the virtual byte range.
func (s *Store) Capacity() int { return s.cfg.Capacity() }

// ActivePage returns the page currently receiving writes (0 or 1).
func (s *Store) ActivePage() int { return s.active }

// Stats returns activity counters.
func (s *Store) Stats() Stats { return s.stats }

// Format erases both pages and makes page 0 Active. All data is lost.
func (s *Store) Format() error {
	if err := s.format(); err != nil {
		s.ready = false
		return err
	}
	s.ready = true
	return nil
}

func (s *Store) format() error {
	s.logger.Info("formatting store", "page0", fmt.Sprintf("0x%x", s.pages[0]), "page1", fmt.Sprintf("0x%x", s.pages[1]))
	if err := s.erasePage(0); err != nil {
		return err
	}
	if err := s.erasePage(1); err != nil {
		return err
	}
	if err := s.writeStatus(0, StatusActive); err != nil {
		return err
	}
	s.active = 0
	s.resetCursors()
	s.cursors[roleActive] = cursor{page: 0, addr: s.slotStart(0), valid: true}
	s.stats.Formats++
	return nil
}

// Read fills buf with the bytes at [addr, addr+len(buf)).
//
// The range may start and end in the middle of a word. Words that were never
// written, and bytes past the capacity, read as 0xFF and make Read return
// ErrNoData; the other bytes of buf are still filled.
func (s *Store) Read(addr uint32, buf []byte) error {
	if !s.ready {
		return ErrNotReady
	}
	if len(buf) == 0 {
		return nil
	}
	start := uint64(addr)
	end := start + uint64(len(buf))
	if limit := uint64(s.Capacity()); end > limit {
		in := 0
		if start < limit {
			in = int(limit - start)
		}
		fill(buf[in:], flash.Erased)
		if in > 0 {
			if err := s.Read(addr, buf[:in]); err != nil && !errors.Is(err, ErrNoData) {
				return err
			}
		}
		return fmt.Errorf("%w: range [%d, %d) exceeds capacity %d", ErrNoData, start, end, s.Capacity())
	}

	w := uint64(s.cfg.WordSize)
	missing := false
	for word := start / w; word*w < end; word++ {
		wordStart := word * w
		lo, hi := max(start, wordStart), min(end, wordStart+w)
		dst := buf[lo-start : hi-start]

		value, err := s.readRecord(s.active, roleActive, uint32(word))
		if errors.Is(err, ErrNoData) {
			missing = true
			fill(dst, flash.Erased)
			continue
		}
		if err != nil {
			return err
		}
		copy(dst, value[lo-wordStart:hi-wordStart])
	}
	if missing {
		return ErrNoData
	}
	return nil
}

// Write stores data at [addr, addr+len(data)).
//
// addr must be a multiple of the word size; otherwise Write returns
// ErrBadAlignment without touching flash. Each word is appended as its own
// record, so a power loss during a multi-word write keeps a prefix of it. A
// trailing partial word is merged with the word's current value (0xFF if it
// was never written) and appended whole.
func (s *Store) Write(addr uint32, data []byte) error {
	if !s.ready {
		return ErrNotReady
	}
	w := s.cfg.WordSize
	if addr%uint32(w) != 0 {
		return fmt.Errorf("%w: address %d, word size %d", ErrBadAlignment, addr, w)
	}
	if end := uint64(addr) + uint64(len(data)); end > uint64(s.Capacity()) {
		return fmt.Errorf("%w: range [%d, %d) exceeds capacity %d", ErrFull, addr, end, s.Capacity())
	}
	for off := 0; off < len(data); off += w {
		idx := (addr + uint32(off)) / uint32(w)
		value := data[off:min(off+w, len(data))]
		if len(value) < w {
			merged, err := s.mergeTail(idx, value)
			if err != nil {
				return err
			}
			value = merged
		}
		if err := s.writeWord(idx, value); err != nil {
			return err
		}
	}
	return nil
}

// mergeTail overlays head on the current value of word idx.
func (s *Store) mergeTail(idx uint32, head []byte) ([]byte, error) {
	value, err := s.readRecord(s.active, roleActive, idx)
	if errors.Is(err, ErrNoData) {
		value = make([]byte, s.cfg.WordSize)
		fill(value, flash.Erased)
	} else if err != nil {
		return nil, err
	}
	copy(value, head)
	return value, nil
}

func (s *Store) writeWord(idx uint32, value []byte) error {
	err := s.appendRecord(s.active, roleActive, idx, value)
	if err == nil {
		s.stats.Appends++
		return nil
	}
	if !errors.Is(err, errPageFull) {
		return err
	}
	s.logger.Debug("active page full", "page", s.active, "index", idx)
	if err := s.compact(s.active, &pendingRecord{index: idx, value: value}); err != nil {
		return err
	}
	s.stats.Appends++
	return nil
}

// Status reads both page headers.
func (s *Store) Status() ([2]Status, error) {
	var st [2]Status
	for p := range st {
		v, err := s.readStatus(p)
		if err != nil {
			return st, err
		}
		st[p] = v
	}
	return st, nil
}

func (s *Store) readStatus(p int) (Status, error) {
	var b [StatusSize]byte
	if err := s.devRead(s.pages[p], b[:]); err != nil {
		return 0, err
	}
	return decodeStatus(b[:]), nil
}

func (s *Store) writeStatus(p int, st Status) error {
	if st == StatusEmpty {
		// an erased header already reads Empty
		return nil
	}
	return s.devWrite(s.pages[p], st.encode())
}

// erasePage erases every unit of page p in ascending order, header unit first.
func (s *Store) erasePage(p int) error {
	base := s.pages[p]
	for off := uint32(0); off < s.cfg.PageSize; off += s.cfg.EraseUnitSize {
		if err := s.devErase(base + off); err != nil {
			s.invalidate(p)
			return err
		}
	}
	s.invalidate(p)
	return nil
}

func (s *Store) devRead(addr uint32, p []byte) error {
	if err := s.dev.Read(addr, p); err != nil {
		return &FlashError{Op: "read", Addr: addr, Err: err}
	}
	return nil
}

func (s *Store) devWrite(addr uint32, p []byte) error {
	if err := s.dev.Write(addr, p); err != nil {
		return &FlashError{Op: "write", Addr: addr, Err: err}
	}
	return nil
}

func (s *Store) devErase(addr uint32) error {
	if err := s.dev.Erase(addr); err != nil {
		return &FlashError{Op: "erase", Addr: addr, Err: err}
	}
	return nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
