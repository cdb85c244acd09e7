package symbol

import (
	"debug/dwarf"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ELFOptions configures an ELFSource.
type ELFOptions struct {
	Demangle DemangleMode
}

// ELFSource resolves addresses using the DWARF line tables and subprogram
// entries of an ELF image, falling back to the symbol table for function
// names. Line tables and subprograms are parsed lazily per compile unit and
// cached.
type ELFSource struct {
	ef      *elf.File
	dw      *dwarf.Data
	closer  io.Closer
	opts    ELFOptions
	thumb   bool
	units   []addrRange
	symbols []elf.Symbol

	lines map[dwarf.Offset]*lineTable
	subs  map[dwarf.Offset][]addrRange
}

type addrRange struct {
	low   uint64
	high  uint64
	entry *dwarf.Entry
}

type lineTable struct {
	entries []dwarf.LineEntry
}

// OpenELF opens the ELF file at path.
func OpenELF(path string, opts ELFOptions) (*ELFSource, error) {
	ef, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF %s: %w", path, err)
	}
	src, err := newELFSource(ef, opts)
	if err != nil {
		ef.Close()
		return nil, fmt.Errorf("failed to load debug info from %s: %w", path, err)
	}
	src.closer = ef
	return src, nil
}

// NewELFSource reads an ELF image from r. The caller owns r.
func NewELFSource(r io.ReaderAt, opts ELFOptions) (*ELFSource, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF: %w", err)
	}
	return newELFSource(ef, opts)
}

func newELFSource(ef *elf.File, opts ELFOptions) (*ELFSource, error) {
	dw, err := ef.DWARF()
	if err != nil {
		return nil, fmt.Errorf("no DWARF data (was the sketch built with -g?): %w", err)
	}
	if opts.Demangle == "" {
		opts.Demangle = DemangleFull
	}

	s := &ELFSource{
		ef:    ef,
		dw:    dw,
		opts:  opts,
		thumb: ef.Machine == elf.EM_ARM,
		lines: make(map[dwarf.Offset]*lineTable),
		subs:  make(map[dwarf.Offset][]addrRange),
	}
	s.loadSymbols()
	if err := s.indexUnits(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying file when the source was opened by OpenELF.
func (s *ELFSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// loadSymbols keeps sized function symbols sorted by address. On ARM the
// Thumb bit is cleared so symbol values line up with code addresses.
func (s *ELFSource) loadSymbols() {
	syms, err := s.ef.Symbols()
	if err != nil {
		return
	}
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Size == 0 || sym.Name == "" {
			continue
		}
		if s.thumb {
			sym.Value &^= 1
		}
		s.symbols = append(s.symbols, sym)
	}
	sort.Slice(s.symbols, func(i, j int) bool {
		if s.symbols[i].Value != s.symbols[j].Value {
			return s.symbols[i].Value < s.symbols[j].Value
		}
		return s.symbols[i].Size < s.symbols[j].Size
	})
}

func (s *ELFSource) indexUnits() error {
	r := s.dw.Reader()
	for {
		entry, err := r.Next()
		if err != nil {
			return fmt.Errorf("failed to index compile units: %w", err)
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}
		ranges, err := s.dw.Ranges(entry)
		if err != nil {
			continue
		}
		for _, rng := range ranges {
			s.units = append(s.units, addrRange{low: rng[0], high: rng[1], entry: entry})
		}
		r.SkipChildren()
	}
	sort.Slice(s.units, func(i, j int) bool {
		return s.units[i].low < s.units[j].low
	})
	return nil
}

// Resolve looks up the function, file and line for addr. Pieces that are not
// covered by the debug info are left empty.
func (s *ELFSource) Resolve(addr uint32) (Info, error) {
	pc := uint64(addr)
	if s.thumb {
		pc &^= 1
	}
	info := Info{Address: addr}

	if cu := findRange(s.units, pc); cu != nil {
		lt, err := s.lineTable(cu)
		if err != nil {
			return Info{Address: addr}, err
		}
		if e := lt.lookup(pc); e != nil && e.Line != 0 {
			if e.File != nil {
				info.File = e.File.Name
			}
			info.Line = e.Line
		}

		subs, err := s.subprograms(cu)
		if err != nil {
			return Info{Address: addr}, err
		}
		if fn := findRange(subs, pc); fn != nil {
			info.Function = s.functionName(fn)
		}
	}

	if info.Function == "" {
		info.Function = s.findSymbol(pc)
	}
	return info, nil
}

func findRange(ranges []addrRange, pc uint64) *dwarf.Entry {
	idx := sort.Search(len(ranges), func(i int) bool {
		return ranges[i].high > pc
	})
	if idx < len(ranges) && ranges[idx].low <= pc {
		return ranges[idx].entry
	}
	return nil
}

func (s *ELFSource) lineTable(cu *dwarf.Entry) (*lineTable, error) {
	if lt, ok := s.lines[cu.Offset]; ok {
		return lt, nil
	}

	lr, err := s.dw.LineReader(cu)
	if err != nil {
		return nil, fmt.Errorf("failed to read line table at %#x: %w", cu.Offset, err)
	}
	lt := &lineTable{}
	if lr != nil {
		var entry dwarf.LineEntry
		for {
			err := lr.Next(&entry)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read line table at %#x: %w", cu.Offset, err)
			}
			lt.entries = append(lt.entries, entry)
		}
		sort.SliceStable(lt.entries, func(i, j int) bool {
			return lt.entries[i].Address < lt.entries[j].Address
		})
	}
	s.lines[cu.Offset] = lt
	return lt, nil
}

// lookup returns the row covering pc: the last row at or below pc, unless
// that row ends a sequence.
func (lt *lineTable) lookup(pc uint64) *dwarf.LineEntry {
	idx := sort.Search(len(lt.entries), func(i int) bool {
		return lt.entries[i].Address > pc
	})
	if idx == 0 {
		return nil
	}
	e := &lt.entries[idx-1]
	if e.EndSequence {
		return nil
	}
	return e
}

func (s *ELFSource) subprograms(cu *dwarf.Entry) ([]addrRange, error) {
	if subs, ok := s.subs[cu.Offset]; ok {
		return subs, nil
	}

	var subs []addrRange
	r := s.dw.Reader()
	r.Seek(cu.Offset)
	if _, err := r.Next(); err != nil {
		return nil, fmt.Errorf("failed to read compile unit at %#x: %w", cu.Offset, err)
	}
	for {
		entry, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read subprograms at %#x: %w", cu.Offset, err)
		}
		if entry == nil || entry.Tag == 0 {
			break
		}
		if entry.Tag == dwarf.TagSubprogram {
			if ranges, err := s.dw.Ranges(entry); err == nil {
				for _, rng := range ranges {
					subs = append(subs, addrRange{low: rng[0], high: rng[1], entry: entry})
				}
			}
		}
		if entry.Children {
			r.SkipChildren()
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].low < subs[j].low
	})
	s.subs[cu.Offset] = subs
	return subs, nil
}

// functionName prefers the linkage name so C++ methods demangle with their
// class, then the plain name, following DW_AT_specification and
// DW_AT_abstract_origin once.
func (s *ELFSource) functionName(fn *dwarf.Entry) string {
	candidates := []*dwarf.Entry{fn}
	for _, attr := range []dwarf.Attr{dwarf.AttrSpecification, dwarf.AttrAbstractOrigin} {
		if ref, ok := fn.Val(attr).(dwarf.Offset); ok {
			if e := s.entryAt(ref); e != nil {
				candidates = append(candidates, e)
			}
		}
	}

	for _, e := range candidates {
		if name, ok := e.Val(dwarf.AttrLinkageName).(string); ok && name != "" {
			return s.opts.Demangle.Demangle(name)
		}
	}
	for _, e := range candidates {
		if name, ok := e.Val(dwarf.AttrName).(string); ok && name != "" {
			return name
		}
	}
	return ""
}

func (s *ELFSource) entryAt(off dwarf.Offset) *dwarf.Entry {
	r := s.dw.Reader()
	r.Seek(off)
	e, err := r.Next()
	if err != nil {
		return nil
	}
	return e
}

func (s *ELFSource) findSymbol(pc uint64) string {
	idx := sort.Search(len(s.symbols), func(i int) bool {
		return s.symbols[i].Value > pc
	})
	for i := idx - 1; i >= 0; i-- {
		sym := s.symbols[i]
		if pc < sym.Value+sym.Size {
			return s.opts.Demangle.Demangle(sym.Name)
		}
		// Symbols can nest, so keep walking back over nearby starts.
		if pc-sym.Value > maxFunctionSize {
			break
		}
	}
	return ""
}

const maxFunctionSize = 1 << 20
