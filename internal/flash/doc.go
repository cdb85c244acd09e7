// Package flash acquires raw flash images from a board for FeatherTrace
// recovery.
//
// Acquisition always goes through an external tool and never writes to the
// device:
//
//   - BossacReader runs "bossac -r" against a board sitting in its bootloader
//   - OpenOCDReader drives arm-none-eabi-gdb against a running OpenOCD and
//     dumps the flash range with "dump binary memory"
//   - FileReader loads an image that was captured earlier
//
// All readers return an Image holding the bytes and the flash address of the
// first byte, so an offset found by the scanner can be mapped back to a
// device address.
//
// The board catalog (boards/boards.yaml) is embedded and describes where the
// sketch area starts and how large the flash is for each supported board.
package flash
