package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/opfilter"
)

// Builtin identities.
var (
	FactoryAddress  = ident.Labeled("factory")
	TemplateAddress = ident.Labeled("template")
)

var builtins = map[string]ident.Address{
	"factory":   FactoryAddress,
	"template":  TemplateAddress,
	"canonical": opfilter.CanonicalFilter,
	"zero":      ident.Zero,
}

// symbols resolves "@label" and "$var" references and renders values back.
type symbols struct {
	labels map[string]string // address hex -> "@label"
	vars   map[string]ir.IRValue
}

func newSymbols() *symbols {
	s := &symbols{
		labels: make(map[string]string),
		vars:   make(map[string]ir.IRValue),
	}
	for name, addr := range builtins {
		s.labels[addr.Hex()] = "@" + name
	}
	return s
}

func (s *symbols) label(name string) ident.Address {
	addr, ok := builtins[name]
	if !ok {
		addr = ident.Labeled(name)
	}
	s.labels[addr.Hex()] = "@" + name
	return addr
}

func (s *symbols) set(name string, v ir.IRValue) {
	s.vars[name] = v
}

// generate defines name as the address list described by ls.
func (s *symbols) generate(name string, ls ListSpec) {
	arr := make(ir.IRArray, ls.Count)
	for i := range arr {
		arr[i] = ir.Addr(s.label(fmt.Sprintf(ls.Label, i)))
	}
	s.set(name, arr)
}

// address resolves a symbol that must denote an identity. The empty string
// is the zero identity.
func (s *symbols) address(ref string) (ident.Address, error) {
	if ref == "" {
		return ident.Zero, nil
	}
	v, err := s.resolve(ref)
	if err != nil {
		return ident.Zero, err
	}
	str, ok := v.(ir.IRString)
	if !ok {
		return ident.Zero, fmt.Errorf("%s: expected an identity, got %T", ref, v)
	}
	return ident.Parse(string(str))
}

// resolve converts a YAML value to an IRValue, substituting symbols.
func (s *symbols) resolve(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null values are forbidden in IR (canonical JSON does not support null)")
	case string:
		switch {
		case strings.HasPrefix(val, "@"):
			return ir.Addr(s.label(val[1:])), nil
		case strings.HasPrefix(val, "$"):
			saved, ok := s.vars[val[1:]]
			if !ok {
				return nil, fmt.Errorf("undefined variable %s", val)
			}
			return saved, nil
		}
		return ir.IRString(val), nil
	case []any:
		arr := make(ir.IRArray, len(val))
		for i, elem := range val {
			e, err := s.resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		return s.resolveObject(val)
	default:
		return ir.FromAny(v)
	}
}

func (s *symbols) resolveObject(m map[string]any) (ir.IRObject, error) {
	obj := make(ir.IRObject, len(m))
	for k, elem := range m {
		e, err := s.resolve(elem)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		obj[k] = e
	}
	return obj, nil
}

// render replaces identities and saved strings with their symbols.
func (s *symbols) render(v ir.IRValue) ir.IRValue {
	names := s.reverse()
	return renderWith(v, names)
}

// reverse maps string values to symbols. Saved variables win over labels.
func (s *symbols) reverse() map[string]string {
	names := make(map[string]string, len(s.labels)+len(s.vars))
	for hex, label := range s.labels {
		names[hex] = label
	}
	keys := make([]string, 0, len(s.vars))
	for k := range s.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if str, ok := s.vars[k].(ir.IRString); ok {
			names[string(str)] = "$" + k
		}
	}
	return names
}

func renderWith(v ir.IRValue, names map[string]string) ir.IRValue {
	switch val := v.(type) {
	case ir.IRString:
		if name, ok := names[string(val)]; ok {
			return ir.IRString(name)
		}
		return val
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, e := range val {
			out[i] = renderWith(e, names)
		}
		return out
	case ir.IRObject:
		out := make(ir.IRObject, len(val))
		for k, e := range val {
			out[k] = renderWith(e, names)
		}
		return out
	default:
		return v
	}
}
