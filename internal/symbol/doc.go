// Package symbol turns raw program addresses into function, file and line
// information.
//
// Addresses come from two places: the live stack trace of a decoded
// FeatherTrace record, or free text typed by a user (see ParseTokens). Both
// feed a Symbolicator, which resolves each address against a Source. The
// usual Source is an ELFSource built from the firmware's .elf file.
//
// Resolution is best effort and per address. A Source that cannot resolve a
// piece of information leaves it empty, and a Source that fails or panics on
// one address only blanks that address.
package symbol
