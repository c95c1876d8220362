package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/veeprom/internal/eeprom"
	"github.com/roach88/veeprom/internal/flash"
)

// Write is one Store.Write call of a sweep workload.
type Write struct {
	Addr uint32 `json:"addr"`
	Data []byte `json:"data"`
}

// SweepFailure is a power-loss point whose recovery produced a state the
// workload could not have produced.
type SweepFailure struct {
	Budget  int    `json:"budget"`
	Message string `json:"message"`
	// Image is the flash contents after the failed recovery.
	Image []byte `json:"-"`
}

// SweepReport summarises a sweep.
type SweepReport struct {
	Geometry eeprom.Config `json:"geometry"`
	Writes   int           `json:"writes"`
	// Steps is the number of flash steps of the uninterrupted run.
	Steps int `json:"steps"`
	// Runs is Steps+1: one run per power-loss point plus the clean one.
	Runs int `json:"runs"`
	// Actions counts the recovery actions taken across all runs.
	Actions  map[string]int `json:"actions"`
	Failures []SweepFailure `json:"failures,omitempty"`
}

// Pass reports whether every run recovered correctly.
func (r *SweepReport) Pass() bool { return len(r.Failures) == 0 }

// DefaultWorkload returns writes that overflow the first page, so a sweep
// over them crosses at least one compaction. The last write spans two words
// when capacity allows.
func DefaultWorkload(cfg eeprom.Config) []Write {
	w := cfg.WordSize
	records := cfg.CapacityRecords()
	n := cfg.SlotsPerPage() + 2

	writes := make([]Write, 0, n+1)
	for i := 0; i < n; i++ {
		word := (i * 3) % records
		writes = append(writes, Write{
			Addr: uint32(word * w),
			Data: bytes.Repeat([]byte{byte(i + 1)}, w),
		})
	}
	if records >= 2 {
		writes = append(writes, Write{Addr: 0, Data: bytes.Repeat([]byte{0xA5}, 2*w)})
	}
	return writes
}

// Sweep runs writes from a blank device once without faults to count its
// flash steps, then once for every budget in [0, steps], cutting power after
// that many steps. After each cut the device is powered back up and
// initialised; every word must then hold the value of the last completed
// write, or the value of the interrupted write, or nothing if it was never
// written. Recovery must not be lossy, and a second Init must find nothing
// left to do.
//
// The returned error reports a workload that fails even without faults.
func Sweep(cfg eeprom.Config, writes []Write) (*SweepReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	steps, err := cleanRun(cfg, writes, logger)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{
		Geometry: cfg,
		Writes:   len(writes),
		Steps:    steps,
		Runs:     steps + 1,
		Actions:  map[string]int{},
	}
	for budget := 0; budget <= steps; budget++ {
		action, failure, err := sweepOnce(cfg, writes, budget, logger)
		if err != nil {
			return nil, fmt.Errorf("budget %d: %w", budget, err)
		}
		if action != "" {
			report.Actions[action]++
		}
		if failure != nil {
			report.Failures = append(report.Failures, *failure)
		}
	}
	return report, nil
}

func cleanRun(cfg eeprom.Config, writes []Write, logger *slog.Logger) (int, error) {
	mem, err := flash.NewMemory(cfg.DeviceSize(), cfg.EraseUnitSize)
	if err != nil {
		return 0, err
	}
	faulty := flash.NewFaulty(mem)
	st, err := eeprom.New(faulty, cfg, eeprom.WithLogger(logger))
	if err != nil {
		return 0, err
	}
	if _, err := st.Init(); err != nil {
		return 0, fmt.Errorf("clean init: %w", err)
	}
	for i, w := range writes {
		if err := st.Write(w.Addr, w.Data); err != nil {
			return 0, fmt.Errorf("clean write %d: %w", i, err)
		}
	}
	return faulty.Steps(), nil
}

// model tracks the words the workload has completed.
type model struct {
	wordSize int
	words    map[uint32][]byte
}

func (m *model) apply(w Write) {
	for idx := w.Addr / uint32(m.wordSize); ; idx++ {
		v, ok := m.after(w, idx)
		if !ok {
			return
		}
		m.words[idx] = v
	}
}

// after returns the value w leaves in word idx. A partial tail word keeps the
// bytes w does not cover.
func (m *model) after(w Write, idx uint32) ([]byte, bool) {
	first := w.Addr / uint32(m.wordSize)
	if idx < first {
		return nil, false
	}
	off := int(idx-first) * m.wordSize
	if off >= len(w.Data) {
		return nil, false
	}
	end := min(off+m.wordSize, len(w.Data))
	if end-off == m.wordSize {
		return w.Data[off:end], true
	}
	v := bytes.Repeat([]byte{flash.Erased}, m.wordSize)
	copy(v, m.words[idx])
	copy(v, w.Data[off:end])
	return v, true
}

// inflight returns the value the interrupted write had for word idx.
func (m *model) inflight(w *Write, idx uint32) ([]byte, bool) {
	if w == nil {
		return nil, false
	}
	return m.after(*w, idx)
}

func sweepOnce(cfg eeprom.Config, writes []Write, budget int, logger *slog.Logger) (string, *SweepFailure, error) {
	mem, err := flash.NewMemory(cfg.DeviceSize(), cfg.EraseUnitSize)
	if err != nil {
		return "", nil, err
	}
	faulty := flash.NewFaulty(mem)
	faulty.Arm(budget)

	fail := func(format string, args ...any) *SweepFailure {
		return &SweepFailure{Budget: budget, Message: fmt.Sprintf(format, args...), Image: mem.Bytes()}
	}

	st, err := eeprom.New(faulty, cfg, eeprom.WithLogger(logger))
	if err != nil {
		return "", nil, err
	}
	m := &model{wordSize: cfg.WordSize, words: map[uint32][]byte{}}
	var pending *Write

	if _, err := st.Init(); err != nil {
		if !faulty.PoweredOff() {
			return "", fail("first init: %v", err), nil
		}
	} else {
		for i := range writes {
			err := st.Write(writes[i].Addr, writes[i].Data)
			if err == nil {
				m.apply(writes[i])
				continue
			}
			if !faulty.PoweredOff() {
				return "", fail("write %d: %v", i, err), nil
			}
			pending = &writes[i]
			break
		}
	}

	faulty.Restore()
	st, err = eeprom.New(faulty, cfg, eeprom.WithLogger(logger))
	if err != nil {
		return "", nil, err
	}
	rec, err := st.Init()
	if err != nil {
		return "", fail("recovery: %v", err), nil
	}
	action := rec.Action.String()
	if rec.Lossy {
		return action, fail("recovery from %s/%s discarded data", rec.Status[0], rec.Status[1]), nil
	}

	buf := make([]byte, cfg.WordSize)
	for idx := uint32(0); idx < uint32(cfg.CapacityRecords()); idx++ {
		err := st.Read(idx*uint32(cfg.WordSize), buf)
		if err != nil && !errors.Is(err, eeprom.ErrNoData) {
			return action, fail("read word %d: %v", idx, err), nil
		}
		got := buf
		if err != nil {
			got = nil
		}

		want := m.words[idx]
		if bytes.Equal(got, want) {
			continue
		}
		if alt, ok := m.inflight(pending, idx); ok && bytes.Equal(got, alt) {
			continue
		}
		return action, fail("word %d: got %x, want %x", idx, got, want), nil
	}

	again, err := eeprom.New(faulty, cfg, eeprom.WithLogger(logger))
	if err != nil {
		return "", nil, err
	}
	rec, err = again.Init()
	if err != nil {
		return action, fail("second init: %v", err), nil
	}
	if rec.Action != eeprom.ActionNone {
		return action, fail("second init took action %s", rec.Action), nil
	}
	return action, nil, nil
}
