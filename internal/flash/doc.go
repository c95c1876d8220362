// Package flash models erase-before-write flash memory for the virtual EEPROM.
//
// The store only ever talks to a [Device]: byte-granular reads, writes that may
// only clear bits, and erases that restore a whole erase unit to 0xFF.
//
// # Devices
//
//   - [Memory]: in-memory NOR simulator. Rejects writes that would set a bit and
//     erases that are not aligned to an erase unit. Counts erases per unit.
//   - [File]: flash image kept in a regular file. Mapped into memory on unix
//     systems (golang.org/x/sys/unix), plain ReadAt/WriteAt elsewhere.
//   - [Faulty]: wraps a device and cuts power after a budget of flash steps.
//     A step is one programmed byte or one erased unit, so a write can be torn
//     at any byte offset while a single unit erase is all-or-nothing.
//   - [Recorder]: wraps a device and records every mutating operation, used
//     for golden traces.
//
// None of the devices are safe for concurrent use.
package flash
