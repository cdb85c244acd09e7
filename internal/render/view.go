package render

import (
	"fmt"

	"github.com/muurk/feathertrace/internal/symbol"
)

// view is the structured form of a Document. Addresses and register values
// are hex strings so they read the same as the text output.
type view struct {
	Source        string         `yaml:"source,omitempty" json:"source,omitempty"`
	RecordOffset  int            `yaml:"record_offset" json:"record_offset"`
	RecordAddress string         `yaml:"record_address" json:"record_address"`
	Version       uint32         `yaml:"version" json:"version"`
	Cause         string         `yaml:"cause" json:"cause"`
	CauseCode     uint32         `yaml:"cause_code" json:"cause_code"`
	InterruptType int32          `yaml:"interrupt_type" json:"interrupt_type"`
	IsCorrupted   bool           `yaml:"faulted_during_recording" json:"faulted_during_recording"`
	FailureCount  uint32         `yaml:"failures_since_upload" json:"failures_since_upload"`
	LastMarked    markView       `yaml:"last_marked" json:"last_marked"`
	MarkersValid  bool           `yaml:"markers_valid" json:"markers_valid"`
	BadMarkers    []string       `yaml:"bad_markers,omitempty" json:"bad_markers,omitempty"`
	StackTrace    []frameView    `yaml:"stack_trace" json:"stack_trace"`
	Registers     *registersView `yaml:"registers,omitempty" json:"registers,omitempty"`
}

type markView struct {
	File string `yaml:"file" json:"file"`
	Line int32  `yaml:"line" json:"line"`
}

type frameView struct {
	Address  string `yaml:"address" json:"address"`
	Function string `yaml:"function,omitempty" json:"function,omitempty"`
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
	Line     int    `yaml:"line,omitempty" json:"line,omitempty"`
}

type registersView struct {
	General []string `yaml:"general,flow" json:"general"`
	SP      string   `yaml:"sp" json:"sp"`
	LR      string   `yaml:"lr" json:"lr"`
	PC      string   `yaml:"pc" json:"pc"`
	XPSR    string   `yaml:"xpsr" json:"xpsr"`
}

type symbolsView struct {
	Frames []frameView `yaml:"frames" json:"frames"`
}

func framesView(infos []symbol.Info) []frameView {
	frames := make([]frameView, 0, len(infos))
	for _, info := range infos {
		frames = append(frames, frameView{
			Address:  hex32(info.Address),
			Function: info.Function,
			File:     info.File,
			Line:     info.Line,
		})
	}
	return frames
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}

func newView(doc *Document) view {
	r := doc.Report
	v := view{
		Source:        doc.Source,
		RecordOffset:  r.Offset,
		RecordAddress: hex32(doc.RecordAddress()),
		Version:       r.Version,
		Cause:         r.Cause.String(),
		CauseCode:     r.Cause.Code(),
		InterruptType: r.InterruptType,
		IsCorrupted:   r.IsCorrupted,
		FailureCount:  r.FailureCount,
		LastMarked:    markView{File: r.File, Line: r.Line},
		MarkersValid:  r.MarkersValid,
		BadMarkers:    r.BadMarkers,
		StackTrace:    []frameView{},
	}

	if doc.Symbols != nil {
		v.StackTrace = framesView(doc.Symbols)
	} else {
		for _, addr := range r.LiveTrace() {
			v.StackTrace = append(v.StackTrace, frameView{Address: hex32(addr)})
		}
	}

	if r.HasRegisters() {
		regs := &registersView{
			SP:   hex32(r.SP()),
			LR:   hex32(r.LR()),
			PC:   hex32(r.PC()),
			XPSR: hex32(r.XPSR),
		}
		for _, reg := range r.GeneralRegisters() {
			regs.General = append(regs.General, hex32(reg))
		}
		v.Registers = regs
	}
	return v
}
