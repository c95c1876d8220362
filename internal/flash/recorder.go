package flash

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Op kinds recorded by Recorder.
const (
	OpWrite = "write"
	OpErase = "erase"
)

// Event is one mutating operation seen by a Recorder.
type Event struct {
	Seq  int    `json:"seq"`
	Op   string `json:"op"`
	Addr uint32 `json:"addr"`
	// Data is the hex encoded payload of a write.
	Data string `json:"data,omitempty"`
	Err  string `json:"err,omitempty"`
}

// String renders the event on one line, e.g. "write 0x0002 0102".
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 0x%04x", e.Op, e.Addr)
	if e.Data != "" {
		b.WriteString(" " + e.Data)
	}
	if e.Err != "" {
		b.WriteString(" ! " + e.Err)
	}
	return b.String()
}

// Recorder wraps a device and keeps a log of writes and erases.
type Recorder struct {
	dev    Device
	events []Event
	reads  int
	seq    int
}

// NewRecorder wraps dev.
func NewRecorder(dev Device) *Recorder {
	return &Recorder{dev: dev}
}

// Events returns the recorded events.
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// Reads returns how many reads went through the recorder.
func (r *Recorder) Reads() int { return r.reads }

// Reset clears the log. Sequence numbers keep increasing.
func (r *Recorder) Reset() {
	r.events = nil
	r.reads = 0
}

func (r *Recorder) record(op string, addr uint32, data []byte, err error) {
	r.seq++
	ev := Event{Seq: r.seq, Op: op, Addr: addr}
	if len(data) > 0 {
		ev.Data = hex.EncodeToString(data)
	}
	if err != nil {
		ev.Err = err.Error()
	}
	r.events = append(r.events, ev)
}

func (r *Recorder) Read(addr uint32, p []byte) error {
	r.reads++
	return r.dev.Read(addr, p)
}

func (r *Recorder) Write(addr uint32, p []byte) error {
	err := r.dev.Write(addr, p)
	r.record(OpWrite, addr, p, err)
	return err
}

func (r *Recorder) Erase(addr uint32) error {
	err := r.dev.Erase(addr)
	r.record(OpErase, addr, nil, err)
	return err
}
