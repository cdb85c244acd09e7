// Package trace locates and decodes FeatherTrace fault records.
//
// A FeatherTrace record is a fixed 380-byte block that the fault handler on a
// SAMD21 board writes into flash just before the watchdog resets the chip.
// It sits somewhere inside an otherwise arbitrary flash image, so recovery is
// a two-stage process:
//
//	┌─────────────────┐
//	│ Flash image     │  raw bytes from bossac, OpenOCD or a file
//	└────────┬────────┘
//	         │
//	         v
//	┌─────────────────┐
//	│ Scanner         │  finds the magic word, rejects collisions
//	└────────┬────────┘
//	         │
//	         v
//	┌─────────────────┐
//	│ Decode          │  fixed little-endian layout, marker checks
//	└────────┬────────┘
//	         │
//	         v
//	┌─────────────────┐
//	│ FaultReport     │  cause, trace, registers, last marked line
//	└─────────────────┘
//
// Decoding never fails on content. Unknown cause codes are kept as
// Unrecognized causes and mismatched markers only clear MarkersValid. The
// only structural failure is a window of the wrong length, which the scanner
// treats as a non-match and skips.
//
// Everything in this package is synchronous and works on in-memory buffers.
package trace
