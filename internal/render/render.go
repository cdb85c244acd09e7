package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/muurk/feathertrace/internal/symbol"
	"github.com/muurk/feathertrace/internal/trace"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. An empty name selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: text, yaml, json)", s)
	}
}

// Document is everything known about one recovered record.
type Document struct {
	Report *trace.FaultReport
	// Source describes where the image came from
	Source string
	// Base is the device address of the scanned image's first byte
	Base uint32
	// Symbols holds one entry per live stack trace address, or nil when no
	// debug info was available
	Symbols []symbol.Info
}

// RecordAddress returns the device address of the record.
func (d *Document) RecordAddress() uint32 {
	return d.Base + uint32(d.Report.Offset)
}

// Write renders doc to w in format f.
func Write(w io.Writer, f Format, doc *Document) error {
	switch f {
	case FormatYAML:
		return YAML(w, doc)
	case FormatJSON:
		return JSON(w, doc)
	default:
		return Text(w, doc)
	}
}

// Text writes the report in the classic recover_trace layout.
func Text(w io.Writer, doc *Document) error {
	r := doc.Report
	var b strings.Builder

	b.WriteString("Found trace data!\n")
	fmt.Fprintf(&b, "\tFault: %s\n", r.Cause)
	fmt.Fprintf(&b, "\tFaulted during recording: %s\n", yesNo(r.IsCorrupted))
	fmt.Fprintf(&b, "\tLast Marked Line: %d\n", r.Line)
	fmt.Fprintf(&b, "\tLast Marked File: %s\n", r.File)
	fmt.Fprintf(&b, "\tInterrupt type: %d\n", r.InterruptType)

	live := r.LiveTrace()
	if doc.Symbols != nil {
		b.WriteString("\tDecoded Stacktrace:\n")
		for _, info := range doc.Symbols {
			b.WriteString("\t\t" + SymbolLine(info) + "\n")
		}
	} else {
		hex := make([]string, len(live))
		for i, addr := range live {
			hex[i] = fmt.Sprintf("0x%08x", addr)
		}
		fmt.Fprintf(&b, "\tStacktrace: %s\n", strings.Join(hex, ", "))
	}

	if r.HasRegisters() {
		b.WriteString("\tRegisters:\n")
		regs := make([]string, trace.RegSP)
		for i, v := range r.GeneralRegisters() {
			regs[i] = fmt.Sprintf("R%d 0x%08x", i, v)
		}
		fmt.Fprintf(&b, "\t\t%s\t\n", strings.Join(regs[:7], ", "))
		fmt.Fprintf(&b, "\t\t%s\t\n", strings.Join(regs[7:], ", "))
		fmt.Fprintf(&b, "\t\tSP: 0x%08x\tLR: 0x%08x\tPC: 0x%08x\txPSR: 0x%08x\n", r.SP(), r.LR(), r.PC(), r.XPSR)
	}
	fmt.Fprintf(&b, "\tFailures since upload: %d\n", r.FailureCount)

	if !r.MarkersValid {
		fmt.Fprintf(&b, "\tWarning: record markers do not match (%s), data may be corrupted\n",
			strings.Join(r.BadMarkers, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// SymbolLine formats one symbol lookup as "0x00002a4d: loop() at sketch.ino:42",
// with "unknown" in place of anything that was not resolved.
func SymbolLine(info symbol.Info) string {
	fn, file, line := "unknown", "unknown", "unknown"
	if info.Function != "" {
		fn = info.Function
	}
	if info.File != "" {
		file = info.File
	}
	if info.Line != 0 {
		line = fmt.Sprint(info.Line)
	}
	return fmt.Sprintf("0x%08x: %s() at %s:%s", info.Address, fn, file, line)
}

// Symbols writes one SymbolLine per entry, each prefixed with indent.
func Symbols(w io.Writer, infos []symbol.Info, indent string) error {
	for _, info := range infos {
		if _, err := fmt.Fprintln(w, indent+SymbolLine(info)); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// YAML writes the document as YAML.
func YAML(w io.Writer, doc *Document) error {
	return encodeYAML(w, newView(doc))
}

// JSON writes the document as indented JSON.
func JSON(w io.Writer, doc *Document) error {
	return encodeJSON(w, newView(doc))
}

// WriteSymbols renders the result of a standalone address lookup.
func WriteSymbols(w io.Writer, f Format, infos []symbol.Info) error {
	v := symbolsView{Frames: framesView(infos)}
	switch f {
	case FormatYAML:
		return encodeYAML(w, v)
	case FormatJSON:
		return encodeJSON(w, v)
	}
	if _, err := io.WriteString(w, "Decoded stacktrace:\n"); err != nil {
		return err
	}
	return Symbols(w, infos, "\t")
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
