// Package eeprom emulates a byte-addressable EEPROM on two pages of
// erase-before-write flash.
//
// # Layout
//
// Each page starts with a two byte status header followed by record slots:
//
//	page   = [status:2][record]*
//	record = [value:word_size][index:index_size, little endian]
//
// The index is written after the value and is the commit point of a record.
// Index bytes are programmed low byte first, so a write cut short by power
// loss always leaves the most significant index byte erased (0xFF). Scanning
// treats such a slot as the end of the log.
//
// # Page status
//
// Status values only ever clear bits: Empty (FF FF) -> Receiving (EE EE) ->
// Active (00 00). Going back to Empty takes an erase. Decoding is total: a
// header that is neither all-erased nor all-cleared reads as Receiving, which
// is how a torn header write is recovered.
//
// # Page swap
//
// Writes append to the Active page. When it fills up, the latest record of
// every index is copied to the other page, the old page is erased and the new
// one promoted to Active. Init inspects both headers and finishes or redoes an
// interrupted swap.
//
// A Store is not safe for concurrent use. Callers serialise access.
package eeprom
