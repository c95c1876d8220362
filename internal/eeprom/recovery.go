package eeprom

import (
	"fmt"
)

// Action is what Init did to reach a consistent state.
type Action int

const (
	ActionNone      Action = iota // one page Active, the other Empty
	ActionFormat                  // headers unusable, both pages re-provisioned
	ActionPromote                 // copy had finished, recipient marked Active
	ActionRecompact               // copy was interrupted, swap redone from the donor
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionFormat:
		return "format"
	case ActionPromote:
		return "promote"
	case ActionRecompact:
		return "recompact"
	default:
		return "invalid"
	}
}

// MarshalText renders the action by name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Recovery reports the page headers found by Init and what was done.
type Recovery struct {
	Status [2]Status `json:"status"`
	Action Action    `json:"action"`
	// Page is the page promoted or used as donor; -1 otherwise.
	Page int `json:"page"`
	// Lossy is set when previously stored data had to be discarded.
	Lossy bool `json:"lossy"`
}

// Init resolves the page headers to a consistent state and readies the store.
//
//	s0         s1         action
//	equal      equal      format (lossy unless both Empty)
//	Active     Empty      none
//	Receiving  Empty      promote the Receiving page
//	Active     Receiving  redo the swap from the Active page
//
// and the mirror images. Running Init again right after a successful Init
// reports ActionNone.
func (s *Store) Init() (Recovery, error) {
	s.ready = false
	s.resetCursors()

	st, err := s.Status()
	if err != nil {
		return Recovery{Page: -1}, err
	}
	rec := Recovery{Status: st, Page: -1}
	s0, s1 := st[0], st[1]

	switch {
	case s0 == s1:
		rec.Action = ActionFormat
		rec.Lossy = s0 != StatusEmpty
		err = s.format()
	case s0 == StatusActive && s1 == StatusEmpty:
		s.active = 0
	case s0 == StatusEmpty && s1 == StatusActive:
		s.active = 1
	case s0 == StatusReceiving && s1 == StatusEmpty:
		rec.Action, rec.Page = ActionPromote, 0
		err = s.promote(0)
	case s0 == StatusEmpty && s1 == StatusReceiving:
		rec.Action, rec.Page = ActionPromote, 1
		err = s.promote(1)
	case s0 == StatusActive && s1 == StatusReceiving:
		rec.Action, rec.Page = ActionRecompact, 0
		s.active = 0
		err = s.compact(0, nil)
	case s0 == StatusReceiving && s1 == StatusActive:
		rec.Action, rec.Page = ActionRecompact, 1
		s.active = 1
		err = s.compact(1, nil)
	default:
		rec.Action, rec.Lossy = ActionFormat, true
		err = s.format()
	}

	attrs := []any{"page0", s0.String(), "page1", s1.String(), "action", rec.Action.String()}
	if err != nil {
		s.logger.Error("recovery failed", append(attrs, "error", err)...)
		return rec, fmt.Errorf("eeprom: recovery %s: %w", rec.Action, err)
	}
	if rec.Lossy {
		s.logger.Warn("recovery discarded stored data", attrs...)
	} else if rec.Action != ActionNone {
		s.logger.Info("recovered interrupted operation", attrs...)
	}
	s.ready = true
	return rec, nil
}

// promote finishes a swap whose copy completed: the Receiving header is
// overwritten with Active in place.
func (s *Store) promote(p int) error {
	if err := s.writeStatus(p, StatusActive); err != nil {
		return err
	}
	s.active = p
	return nil
}
