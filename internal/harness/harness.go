package harness

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/veeprom/internal/eeprom"
	"github.com/roach88/veeprom/internal/flash"
)

// Harness holds the device stack of one scenario run:
//
//	Store -> Recorder -> Faulty -> Memory
//
// The stack outlives reboots; only the Store is rebuilt.
type Harness struct {
	cfg      eeprom.Config
	mem      *flash.Memory
	faulty   *flash.Faulty
	recorder *flash.Recorder
	store    *eeprom.Store
	logger   *slog.Logger
}

func newHarness(cfg eeprom.Config) (*Harness, error) {
	mem, err := flash.NewMemory(cfg.DeviceSize(), cfg.EraseUnitSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create flash: %w", err)
	}
	faulty := flash.NewFaulty(mem)
	h := &Harness{
		cfg:      cfg,
		mem:      mem,
		faulty:   faulty,
		recorder: flash.NewRecorder(faulty),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	if err := h.boot(); err != nil {
		return nil, err
	}
	return h, nil
}

// boot builds a Store that has not been initialised yet.
func (h *Harness) boot() error {
	st, err := eeprom.New(h.recorder, h.cfg, eeprom.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	h.store = st
	return nil
}

// Run executes a scenario on a fresh in-memory device.
//
// Mismatched expectations are reported in Result.Errors; the returned error
// is reserved for scenarios that cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	h, err := newHarness(scenario.Config())
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.recorder.Reset()
		ev, err := h.execute(i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		ev.Flash = h.recorder.Events()
		result.Trace = append(result.Trace, ev)
		checkStep(result, step, ev)
	}
	result.Steps = h.faulty.Steps()
	return result, nil
}

func (h *Harness) execute(i int, step Step) (TraceEvent, error) {
	ev := TraceEvent{Step: i, Op: step.Op, Code: eeprom.CodeOK}

	switch step.Op {
	case OpFormat:
		ev.Code = eeprom.Code(h.store.Format())

	case OpInit:
		rec, err := h.store.Init()
		ev.Code = eeprom.Code(err)
		if err == nil {
			ev.Output = rec.Action.String()
			if rec.Lossy {
				ev.Output += " lossy"
			}
		}

	case OpWrite:
		data, err := hex.DecodeString(step.Data)
		if err != nil {
			return ev, err
		}
		ev.Args = fmt.Sprintf("0x%04x %s", step.Addr, step.Data)
		ev.Code = eeprom.Code(h.store.Write(step.Addr, data))

	case OpRead:
		buf := make([]byte, step.Len)
		ev.Args = fmt.Sprintf("0x%04x %d", step.Addr, step.Len)
		ev.Code = eeprom.Code(h.store.Read(step.Addr, buf))
		ev.Output = hex.EncodeToString(buf)

	case OpCrash:
		ev.Args = fmt.Sprintf("budget=%d", step.Budget)
		h.faulty.Arm(step.Budget)

	case OpReboot:
		h.faulty.Restore()
		if err := h.boot(); err != nil {
			return ev, err
		}

	default:
		return ev, fmt.Errorf("unknown op %q", step.Op)
	}
	return ev, nil
}

func checkStep(result *Result, step Step, ev TraceEvent) {
	want := step.ExpectError
	if want == "" {
		want = eeprom.CodeOK
	}
	if ev.Code != want {
		result.AddError(fmt.Sprintf("step %d (%s): got %s, want %s", ev.Step, ev.Op, ev.Code, want))
	}
	if step.Expect == "" {
		return
	}

	switch step.Op {
	case OpRead:
		if ev.Output != step.Expect {
			result.AddError(fmt.Sprintf("step %d (read): got %s, want %s", ev.Step, ev.Output, step.Expect))
		}
	case OpInit:
		action := strings.TrimSuffix(ev.Output, " lossy")
		if action != step.Expect {
			result.AddError(fmt.Sprintf("step %d (init): got action %q, want %q", ev.Step, action, step.Expect))
		}
	}
}
