package eeprom

import (
	"errors"
	"fmt"
)

// pendingRecord is the write that overflowed the active page. Compaction
// appends it in place of the donor's copy of the same index.
type pendingRecord struct {
	index uint32
	value []byte
}

// compact moves the live records of donor to the other page and makes that
// page Active. Each step leaves a header combination that Init knows how to
// finish or redo:
//
//  1. erase recipient, mark it Receiving        (Active, Receiving): redo
//  2. copy the latest record of every index     (Active, Receiving): redo
//  3. erase donor, header unit first            (Empty, Receiving):  promote
//  4. mark recipient Active                     (Empty, Active):     done
//
// Flash errors abort the swap without retry.
func (s *Store) compact(donor int, pending *pendingRecord) error {
	recipient := 1 - donor
	s.logger.Debug("compaction started", "donor", donor, "recipient", recipient)

	// the donor's cursor is already known from its time as the active page
	if c := s.cursors[roleActive]; c.valid && c.page == donor {
		s.cursors[roleDonor] = c
	}

	if err := s.erasePage(recipient); err != nil {
		return s.abortCompaction(err)
	}
	if err := s.writeStatus(recipient, StatusReceiving); err != nil {
		return s.abortCompaction(err)
	}
	s.cursors[roleActive] = cursor{page: recipient, addr: s.slotStart(recipient), valid: true}

	copied := 0
	for idx := uint32(0); idx < uint32(s.cfg.CapacityRecords()); idx++ {
		if pending != nil && idx == pending.index {
			continue
		}
		value, err := s.readRecord(donor, roleDonor, idx)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return s.abortCompaction(err)
		}
		if err := s.appendRecord(recipient, roleActive, idx, value); err != nil {
			return s.abortCompaction(err)
		}
		copied++
	}
	if pending != nil {
		if err := s.appendRecord(recipient, roleActive, pending.index, pending.value); err != nil {
			return s.abortCompaction(err)
		}
	}

	if err := s.erasePage(donor); err != nil {
		return s.abortCompaction(err)
	}
	if err := s.writeStatus(recipient, StatusActive); err != nil {
		return s.abortCompaction(err)
	}
	s.active = recipient
	s.stats.Compactions++
	s.logger.Info("compaction finished", "active", recipient, "records", copied, "pending", pending != nil)
	return nil
}

// abortCompaction leaves the store unusable until the next Init, which
// resolves the half-finished swap from the page headers.
func (s *Store) abortCompaction(err error) error {
	s.ready = false
	s.resetCursors()
	if errors.Is(err, errPageFull) {
		return fmt.Errorf("%w: live records do not fit a compacted page", ErrFull)
	}
	s.logger.Error("compaction aborted", "error", err)
	return err
}
