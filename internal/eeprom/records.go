package eeprom

import (
	"fmt"

	"github.com/roach88/veeprom/internal/flash"
)

// role names the job a page plays for the cursor cache. Compaction reads the
// donor while appending to the recipient, so each role keeps its own cursor.
type role int

const (
	roleActive role = iota // page receiving appends
	roleDonor              // page being drained by compaction
)

// cursor caches the end of the valid log of one page.
type cursor struct {
	page  int
	addr  uint32 // first byte after the last valid record
	valid bool
	// sealed marks a page whose next slot holds a torn record. Nothing more
	// may be appended until the page is compacted away.
	sealed bool
}

func (s *Store) slotStart(p int) uint32 { return s.pages[p] + StatusSize }

func (s *Store) slotsEnd(p int) uint32 {
	return s.slotStart(p) + uint32(s.cfg.SlotsPerPage()*s.cfg.RecordSize())
}

func (s *Store) resetCursors() {
	s.cursors = [2]cursor{}
}

// invalidate drops every cached cursor that points into page p.
func (s *Store) invalidate(p int) {
	for r := range s.cursors {
		if s.cursors[r].page == p {
			s.cursors[r] = cursor{}
		}
	}
}

// indexWritten reports whether an index field holds a committed value. The
// most significant byte is programmed last, so it is erased until the whole
// field is.
func indexWritten(b []byte) bool {
	return b[len(b)-1] != 0xFF
}

func encodeIndex(idx uint32, b []byte) {
	for i := range b {
		b[i] = byte(idx >> (8 * i))
	}
}

func decodeIndex(b []byte) uint32 {
	var v uint32
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

// locateLast returns the cursor of page p, scanning the page on a cache miss.
func (s *Store) locateLast(p int, r role) (*cursor, error) {
	c := &s.cursors[r]
	if c.valid && c.page == p {
		return c, nil
	}
	addr, sealed, err := s.scan(p)
	if err != nil {
		return nil, err
	}
	*c = cursor{page: p, addr: addr, valid: true, sealed: sealed}
	return c, nil
}

// scan walks page p forward in chunks of whole records and stops at the
// first slot without a committed index. A slot that is not fully erased at
// that point is the remains of an interrupted append and seals the page.
func (s *Store) scan(p int) (addr uint32, sealed bool, err error) {
	rec := uint32(s.cfg.RecordSize())
	start, end := s.slotStart(p), s.slotsEnd(p)
	buf := make([]byte, uint32(s.scanChunk)*rec)

	for addr = start; addr < end; {
		chunk := buf[:min(uint32(len(buf)), end-addr)]
		if err := s.devRead(addr, chunk); err != nil {
			return 0, false, err
		}
		for off := uint32(0); off < uint32(len(chunk)); off += rec {
			slot := chunk[off : off+rec]
			if indexWritten(slot[s.cfg.WordSize:]) {
				continue
			}
			if !flash.IsErased(slot) {
				s.logger.Warn("interrupted record found, page sealed until compaction",
					"page", p, "addr", fmt.Sprintf("0x%x", addr+off))
				return addr + off, true, nil
			}
			return addr + off, false, nil
		}
		addr += uint32(len(chunk))
	}
	return end, false, nil
}

// readRecord returns the value of the latest record for idx in page p.
func (s *Store) readRecord(p int, r role, idx uint32) ([]byte, error) {
	c, err := s.locateLast(p, r)
	if err != nil {
		return nil, err
	}
	rec := uint32(s.cfg.RecordSize())
	start := s.slotStart(p)
	buf := make([]byte, rec)
	for addr := c.addr; addr > start; {
		addr -= rec
		if err := s.devRead(addr, buf); err != nil {
			return nil, err
		}
		if decodeIndex(buf[s.cfg.WordSize:]) == idx {
			return buf[:s.cfg.WordSize], nil
		}
	}
	return nil, ErrNoData
}

// appendRecord writes value then idx at the cursor of page p.
func (s *Store) appendRecord(p int, r role, idx uint32, value []byte) error {
	c, err := s.locateLast(p, r)
	if err != nil {
		return err
	}
	rec := uint32(s.cfg.RecordSize())
	if c.sealed || c.addr+rec > s.slotsEnd(p) {
		return errPageFull
	}
	at := c.addr
	if err := s.devWrite(at, value); err != nil {
		s.invalidate(p)
		return err
	}
	index := make([]byte, s.cfg.IndexSize)
	encodeIndex(idx, index)
	if err := s.devWrite(at+uint32(s.cfg.WordSize), index); err != nil {
		s.invalidate(p)
		return err
	}
	c.addr = at + rec
	return nil
}

// Slot is one decoded record slot, for inspection tools.
type Slot struct {
	Addr  uint32 `json:"addr"`
	Index uint32 `json:"index"`
	Value []byte `json:"value"`
	// Live is false for records superseded by a later one with the same index.
	Live bool `json:"live"`
}

// Records decodes the committed records of page p in log order.
func (s *Store) Records(p int) ([]Slot, error) {
	if p != 0 && p != 1 {
		return nil, fmt.Errorf("eeprom: no page %d", p)
	}
	addr, _, err := s.scan(p)
	if err != nil {
		return nil, err
	}
	rec := uint32(s.cfg.RecordSize())
	start := s.slotStart(p)
	raw := make([]byte, addr-start)
	if err := s.devRead(start, raw); err != nil {
		return nil, err
	}
	slots := make([]Slot, 0, len(raw)/int(rec))
	last := make(map[uint32]int)
	for off := uint32(0); off < uint32(len(raw)); off += rec {
		b := raw[off : off+rec]
		idx := decodeIndex(b[s.cfg.WordSize:])
		last[idx] = len(slots)
		slots = append(slots, Slot{
			Addr:  start + off,
			Index: idx,
			Value: append([]byte(nil), b[:s.cfg.WordSize]...),
		})
	}
	for _, i := range last {
		slots[i].Live = true
	}
	return slots, nil
}
