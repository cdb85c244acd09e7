package symbol

import (
	"fmt"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// DemangleMode controls how C++ symbol names are rendered.
type DemangleMode string

const (
	DemangleNone       DemangleMode = "none"
	DemangleSimplified DemangleMode = "simplified"
	DemangleTemplates  DemangleMode = "templates"
	DemangleFull       DemangleMode = "full"
)

// ParseDemangleMode validates a mode name. An empty name selects DemangleFull.
func ParseDemangleMode(s string) (DemangleMode, error) {
	switch m := DemangleMode(strings.ToLower(s)); m {
	case "":
		return DemangleFull, nil
	case DemangleNone, DemangleSimplified, DemangleTemplates, DemangleFull:
		return m, nil
	default:
		return "", fmt.Errorf("unknown demangle mode %q (valid: none, simplified, templates, full)", s)
	}
}

// options never keep the parameter list, so demangled names look like the
// plain DW_AT_name of a C function.
func (m DemangleMode) options() []demangle.Option {
	switch m {
	case DemangleSimplified:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams, demangle.NoTemplateParams}
	case DemangleTemplates:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams}
	default:
		return []demangle.Option{demangle.NoParams, demangle.NoClones}
	}
}

// Demangle renders name according to m. Names that are not mangled are
// returned unchanged.
func (m DemangleMode) Demangle(name string) string {
	if m == DemangleNone {
		return name
	}
	if d, err := demangle.ToString(name, m.options()...); err == nil {
		return d
	}
	return name
}
