// Package harness drives an eeprom.Store through scripted scenarios and
// exhaustive power-loss sweeps.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: compaction
//	description: "Overwrites past the end of the page force a swap"
//	geometry:
//	  page0_address: 0
//	  page1_address: 16
//	  page_size: 16
//	  erase_unit_size: 16
//	  word_size: 2
//	  index_size: 1
//	steps:
//	  - op: init
//	    expect: format
//	  - op: write
//	    addr: 0
//	    data: "aabb"
//	  - op: crash
//	    budget: 6
//	  - op: write
//	    addr: 2
//	    data: "ccdd"
//	    expect_error: flash
//	  - op: reboot
//	  - op: read
//	    addr: 0
//	    len: 4
//	    expect: "aabbffff"
//	    expect_error: no_data
//
// Ops are format, init, write, read, crash and reboot. expect is the hex
// buffer for read and the recovery action for init. expect_error is an error
// code from eeprom.Code and defaults to "ok". crash arms a power loss after
// budget flash steps; reboot restores power and builds a fresh Store over the
// same flash, which must be initialised again.
//
// # Traces
//
// Every step records the writes and erases it issued. RunWithGolden renders
// the trace as text and compares it with testdata/golden/<name>.golden:
//
//	go test ./internal/harness -update
//
// regenerates the golden files.
//
// # Sweeps
//
// Sweep replays a write sequence once for every possible power-loss point and
// checks that recovery always yields a state the writes could have produced.
package harness
