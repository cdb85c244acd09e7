package symbol

import (
	"fmt"

	"go.uber.org/zap"
)

// Info is the resolution of a single address. Empty Function and File and a
// zero Line mean that piece could not be resolved.
type Info struct {
	Address  uint32 `yaml:"address" json:"address"`
	Function string `yaml:"function,omitempty" json:"function,omitempty"`
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
	Line     int    `yaml:"line,omitempty" json:"line,omitempty"`
}

// Resolved reports whether any piece of the address was resolved.
func (i Info) Resolved() bool {
	return i.Function != "" || i.File != "" || i.Line != 0
}

// Source resolves addresses to symbol information. Implementations need not
// be safe for concurrent use.
type Source interface {
	Resolve(addr uint32) (Info, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(addr uint32) (Info, error)

func (f SourceFunc) Resolve(addr uint32) (Info, error) {
	return f(addr)
}

// Symbolicator resolves batches of addresses against one Source.
type Symbolicator struct {
	source Source
	logger *zap.Logger
}

// NewSymbolicator creates a Symbolicator. A nil logger disables logging.
func NewSymbolicator(source Source, logger *zap.Logger) *Symbolicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Symbolicator{source: source, logger: logger}
}

// Symbolicate resolves addrs with a silent Symbolicator.
func Symbolicate(source Source, addrs []uint32) []Info {
	return NewSymbolicator(source, nil).Symbolicate(addrs)
}

// Symbolicate returns exactly one Info per address, in input order. A failure
// on one address never affects the others.
func (s *Symbolicator) Symbolicate(addrs []uint32) []Info {
	out := make([]Info, len(addrs))
	for i, addr := range addrs {
		out[i] = s.resolve(addr)
	}
	return out
}

func (s *Symbolicator) resolve(addr uint32) (info Info) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("Symbol source panicked",
				zap.String("address", fmt.Sprintf("0x%08x", addr)),
				zap.Any("panic", r))
			info = Info{Address: addr}
		}
	}()

	info, err := s.source.Resolve(addr)
	if err != nil {
		s.logger.Debug("Failed to resolve address",
			zap.String("address", fmt.Sprintf("0x%08x", addr)),
			zap.Error(err))
		return Info{Address: addr}
	}
	info.Address = addr
	if !info.Resolved() {
		s.logger.Debug("Address not covered by debug info", zap.String("address", fmt.Sprintf("0x%08x", addr)))
	}
	return info
}
