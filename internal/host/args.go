package host

import (
	"fmt"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
)

// args reads typed call arguments and keeps the first decoding error.
type args struct {
	obj   ir.IRObject
	first error
}

func (a *args) fail(key string, err error) {
	if a.first == nil {
		a.first = faults.Wrap(faults.CodeInvalidArgument, "invalid argument", err).With("arg", key)
	}
}

func (a *args) err() error {
	if a.first == nil {
		return nil
	}
	return a.first
}

func (a *args) str(key string) string {
	s, err := a.obj.String(key)
	if err != nil {
		a.fail(key, err)
	}
	return s
}

func (a *args) strOr(key, def string) string {
	s, err := a.obj.StringOr(key, def)
	if err != nil {
		a.fail(key, err)
	}
	return s
}

func (a *args) int(key string) int64 {
	n, err := a.obj.Int(key)
	if err != nil {
		a.fail(key, err)
	}
	return n
}

func (a *args) intOr(key string, def int64) int64 {
	n, err := a.obj.IntOr(key, def)
	if err != nil {
		a.fail(key, err)
	}
	return n
}

func (a *args) boolOr(key string, def bool) bool {
	b, err := a.obj.BoolOr(key, def)
	if err != nil {
		a.fail(key, err)
	}
	return b
}

func (a *args) addr(key string) ident.Address {
	v, err := a.obj.Address(key)
	if err != nil {
		a.fail(key, err)
	}
	return v
}

func (a *args) addrOr(key string, def ident.Address) ident.Address {
	v, err := a.obj.AddressOr(key, def)
	if err != nil {
		a.fail(key, err)
	}
	return v
}

func (a *args) addrs(key string) []ident.Address {
	v, ok := a.obj[key]
	if !ok {
		a.fail(key, fmt.Errorf("missing %q", key))
		return nil
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		a.fail(key, fmt.Errorf("%q: expected array, got %T", key, v))
		return nil
	}
	out := make([]ident.Address, 0, len(arr))
	for i, item := range arr {
		s, ok := item.(ir.IRString)
		if !ok {
			a.fail(key, fmt.Errorf("%q[%d]: expected string, got %T", key, i, item))
			return nil
		}
		addr, err := ident.Parse(string(s))
		if err != nil {
			a.fail(key, fmt.Errorf("%q[%d]: %w", key, i, err))
			return nil
		}
		out = append(out, addr)
	}
	return out
}

func (a *args) strings(key string) map[string]string {
	obj, err := a.obj.Object(key)
	if err != nil {
		a.fail(key, err)
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(ir.IRString)
		if !ok {
			a.fail(key, fmt.Errorf("%q.%s: expected string, got %T", key, k, v))
			return nil
		}
		out[k] = string(s)
	}
	return out
}

func (a *args) hexBytes(key string) []byte {
	s := a.str(key)
	if a.first != nil {
		return nil
	}
	b, err := DecodeHex(s)
	if err != nil {
		a.fail(key, err)
	}
	return b
}
